package ilp

import (
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"
)

// Wire format, one row per line:
//
//	table,symbol=value field=value,field=value timestamp\n
//
// Escaping is per-context: table and column names and symbol values are
// written unquoted with backslash escapes, string field values are written
// inside double quotes with their own escape set. A literal newline is only
// ever emitted as the row terminator.

// validTableName checks a table name against the server's naming rules.
// Reserved punctuation and control characters are rejected outright; spaces,
// commas and equals signs are allowed because the encoder escapes them.
func validTableName(name string, maxLen int) error {
	if name == "" {
		return fmt.Errorf("%w: table name is empty", ErrInvalidName)
	}
	if len(name) > maxLen {
		return fmt.Errorf("%w: table name exceeds %d bytes", ErrInvalidName, maxLen)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: table name is not valid UTF-8", ErrEncoding)
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch c {
		case '?', ',', '\'', '"', '\\', '/', ':', ')', '(', '+', '*', '%', '~':
			return fmt.Errorf("%w: table name contains %q", ErrInvalidName, c)
		case '.':
			if i == 0 || i == len(name)-1 {
				return fmt.Errorf("%w: table name starts or ends with '.'", ErrInvalidName)
			}
		}
		if c < 0x20 || c == 0x7f {
			return fmt.Errorf("%w: table name contains control character", ErrInvalidName)
		}
	}
	return nil
}

// validColumnName checks a symbol or field name. Stricter than table names:
// '.' and '-' are rejected anywhere.
func validColumnName(name string, maxLen int) error {
	if name == "" {
		return fmt.Errorf("%w: column name is empty", ErrInvalidName)
	}
	if len(name) > maxLen {
		return fmt.Errorf("%w: column name exceeds %d bytes", ErrInvalidName, maxLen)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: column name is not valid UTF-8", ErrEncoding)
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch c {
		case '?', '.', ',', '\'', '"', '\\', '/', ':', ')', '(', '+', '-', '*', '%', '~':
			return fmt.Errorf("%w: column name contains %q", ErrInvalidName, c)
		}
		if c < 0x20 || c == 0x7f {
			return fmt.Errorf("%w: column name contains control character", ErrInvalidName)
		}
	}
	return nil
}

// validUnquoted checks a symbol value. Unquoted positions have no escape for
// line breaks, so LF and CR are unrepresentable there.
func validUnquoted(value string) error {
	if !utf8.ValidString(value) {
		return fmt.Errorf("%w: symbol value is not valid UTF-8", ErrEncoding)
	}
	for i := 0; i < len(value); i++ {
		if c := value[i]; c == '\n' || c == '\r' {
			return fmt.Errorf("%w: symbol value contains line break", ErrEncoding)
		}
	}
	return nil
}

// appendUnquoted writes a name or symbol value, escaping the characters that
// would otherwise terminate the token.
func appendUnquoted(dst []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case ' ', ',', '=', '\\':
			dst = append(dst, '\\', c)
		default:
			dst = append(dst, c)
		}
	}
	return dst
}

// appendQuoted writes a string field value inside double quotes. LF and CR
// become the two-byte escapes \n and \r so no literal newline appears
// mid-row.
func appendQuoted(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			dst = append(dst, '\\', c)
		case '\n':
			dst = append(dst, '\\', 'n')
		case '\r':
			dst = append(dst, '\\', 'r')
		default:
			dst = append(dst, c)
		}
	}
	return append(dst, '"')
}

// appendInt writes an integer field value with the protocol's 'i' suffix,
// distinguishing it from floats.
func appendInt(dst []byte, v int64) []byte {
	dst = strconv.AppendInt(dst, v, 10)
	return append(dst, 'i')
}

// appendFloat writes a float field value. Non-finite values have no wire
// representation.
func appendFloat(dst []byte, v float64) ([]byte, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return dst, fmt.Errorf("%w: float field must be finite, got %v", ErrRange, v)
	}
	return strconv.AppendFloat(dst, v, 'g', -1, 64), nil
}

func appendBool(dst []byte, v bool) []byte {
	if v {
		return append(dst, 't')
	}
	return append(dst, 'f')
}

// appendTimestampField writes a timestamp-typed field value: epoch
// microseconds with a 't' suffix.
func appendTimestampField(dst []byte, micros int64) ([]byte, error) {
	if micros < 0 {
		return dst, fmt.Errorf("%w: timestamp field is before the epoch", ErrRange)
	}
	dst = strconv.AppendInt(dst, micros, 10)
	return append(dst, 't'), nil
}

// appendTimestampNanos writes the row's designated timestamp: bare epoch
// nanoseconds, always the last token on the line.
func appendTimestampNanos(dst []byte, nanos int64) []byte {
	return strconv.AppendInt(dst, nanos, 10)
}

func validUTF8(s string) bool {
	return utf8.ValidString(s)
}
