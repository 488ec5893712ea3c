package ilp

import (
	"fmt"
	"time"

	"github.com/zeebo/xxh3"
)

// Buffer accumulates serialized rows. Bytes in [0, rowStart) are always a
// sequence of complete, valid rows; bytes past rowStart belong to the row
// currently being built and are dropped wholesale by Discard.
//
// A Buffer is not safe for concurrent use. One producer per Buffer; use
// independent Senders (or a SenderPool) to scale producers.
type Buffer struct {
	buf      []byte
	rowStart int // end of the committed region
	state    rowState

	rowFields  int   // fields in the open row
	rowSymbols int   // symbols in the open row
	timestamp  int64 // designated timestamp for the open row, -1 if unset

	// Column names seen in the open row, for duplicate detection.
	// Hash first, compare names only on hash match.
	colHashes []uint64
	colNames  []string

	rows       int // committed rows since the last Reset
	maxNameLen int
}

// NewBuffer returns an empty buffer with the given initial capacity.
// Capacity grows geometrically as rows are appended and is never released;
// Reset keeps it for reuse.
func NewBuffer(initCap int) *Buffer {
	if initCap <= 0 {
		initCap = DefaultInitBufSize
	}
	return &Buffer{
		buf:        make([]byte, 0, initCap),
		timestamp:  -1,
		maxNameLen: DefaultMaxNameLen,
	}
}

// SetMaxNameLen overrides the table/column name length limit. The default
// matches the server's filesystem-backed limit of 127 bytes.
func (b *Buffer) SetMaxNameLen(n int) {
	if n > 0 {
		b.maxNameLen = n
	}
}

// Table opens a new row for the given table.
func (b *Buffer) Table(name string) error {
	if b.state.open() {
		return fmt.Errorf("%w: previous row not committed or discarded", ErrColumnOrder)
	}
	if err := validTableName(name, b.maxNameLen); err != nil {
		return err
	}
	b.buf = appendUnquoted(b.buf, name)
	b.state = rowAtTable
	b.rowFields = 0
	b.rowSymbols = 0
	b.timestamp = -1
	b.colHashes = b.colHashes[:0]
	b.colNames = b.colNames[:0]
	return nil
}

// Symbol appends a symbol (tag) column. Symbols must precede all fields.
func (b *Buffer) Symbol(name, value string) error {
	if err := b.state.checkSymbol(); err != nil {
		return err
	}
	if err := validColumnName(name, b.maxNameLen); err != nil {
		return err
	}
	if err := validUnquoted(value); err != nil {
		return err
	}
	if err := b.recordColumn(name); err != nil {
		return err
	}
	b.buf = append(b.buf, ',')
	b.buf = appendUnquoted(b.buf, name)
	b.buf = append(b.buf, '=')
	b.buf = appendUnquoted(b.buf, value)
	b.state = rowInSymbols
	b.rowSymbols++
	return nil
}

// BoolField appends a boolean field column.
func (b *Buffer) BoolField(name string, value bool) error {
	if _, err := b.beginField(name); err != nil {
		return err
	}
	b.buf = appendBool(b.buf, value)
	return nil
}

// Int64Field appends an integer field column.
func (b *Buffer) Int64Field(name string, value int64) error {
	_, err := b.beginField(name)
	if err != nil {
		return err
	}
	b.buf = appendInt(b.buf, value)
	return nil
}

// Float64Field appends a float field column. Non-finite values fail with
// ErrRange.
func (b *Buffer) Float64Field(name string, value float64) error {
	rollback, err := b.beginField(name)
	if err != nil {
		return err
	}
	b.buf, err = appendFloat(b.buf, value)
	if err != nil {
		rollback()
		return err
	}
	return nil
}

// StringField appends a string field column, quoted and escaped.
func (b *Buffer) StringField(name, value string) error {
	if !validUTF8(value) {
		return fmt.Errorf("%w: string field value is not valid UTF-8", ErrEncoding)
	}
	_, err := b.beginField(name)
	if err != nil {
		return err
	}
	b.buf = appendQuoted(b.buf, value)
	return nil
}

// TimestampField appends a timestamp-typed field column (distinct from the
// row's designated timestamp). Serialized as epoch micros.
func (b *Buffer) TimestampField(name string, value time.Time) error {
	rollback, err := b.beginField(name)
	if err != nil {
		return err
	}
	b.buf, err = appendTimestampField(b.buf, value.UnixMicro())
	if err != nil {
		rollback()
		return err
	}
	return nil
}

// At sets the row's designated timestamp. At most once per row; if never
// set, the server assigns ingestion time.
func (b *Buffer) At(ts time.Time) error {
	return b.AtNanos(ts.UnixNano())
}

// AtNanos sets the designated timestamp from epoch nanoseconds.
func (b *Buffer) AtNanos(nanos int64) error {
	if err := b.state.checkTimestamp(); err != nil {
		return err
	}
	if b.timestamp >= 0 {
		return ErrTimestampSet
	}
	if nanos < 0 {
		return fmt.Errorf("%w: designated timestamp is before the epoch", ErrRange)
	}
	b.timestamp = nanos
	return nil
}

// Commit finalizes the open row and appends it to the committed region.
// A row with no fields fails with ErrEmptyRow and stays open for Discard.
func (b *Buffer) Commit() error {
	if !b.state.open() {
		return fmt.Errorf("%w: commit without an open row", ErrColumnOrder)
	}
	if b.rowFields == 0 {
		return ErrEmptyRow
	}
	if b.timestamp >= 0 {
		b.buf = append(b.buf, ' ')
		b.buf = appendTimestampNanos(b.buf, b.timestamp)
	}
	b.buf = append(b.buf, '\n')
	b.rowStart = len(b.buf)
	b.state = rowClosed
	b.rows++
	return nil
}

// Discard rolls back the open row, leaving the committed region byte
// identical to before Table was called. Discarding with no open row is a
// no-op.
func (b *Buffer) Discard() {
	b.buf = b.buf[:b.rowStart]
	b.state = rowClosed
	b.rowFields = 0
	b.rowSymbols = 0
	b.timestamp = -1
}

// Reset drops all committed rows without releasing capacity. An open row is
// discarded too.
func (b *Buffer) Reset() {
	b.buf = b.buf[:0]
	b.rowStart = 0
	b.state = rowClosed
	b.rowFields = 0
	b.rowSymbols = 0
	b.timestamp = -1
	b.rows = 0
}

// Bytes returns the committed region. The slice aliases the buffer and is
// only valid until the next mutation.
func (b *Buffer) Bytes() []byte {
	return b.buf[:b.rowStart]
}

// Len returns the size of the committed region in bytes.
func (b *Buffer) Len() int {
	return b.rowStart
}

// Rows returns the number of committed rows since the last Reset.
func (b *Buffer) Rows() int {
	return b.rows
}

// RowInProgress reports whether a row is open.
func (b *Buffer) RowInProgress() bool {
	return b.state.open()
}

// beginField validates a field append and writes the column separator, name
// and '='. The returned rollback undoes the partial write when the value
// itself turns out to be unrepresentable.
func (b *Buffer) beginField(name string) (func(), error) {
	if err := b.state.checkField(); err != nil {
		return nil, err
	}
	if err := validColumnName(name, b.maxNameLen); err != nil {
		return nil, err
	}
	if err := b.recordColumn(name); err != nil {
		return nil, err
	}
	mark := len(b.buf)
	if b.rowFields == 0 {
		b.buf = append(b.buf, ' ')
	} else {
		b.buf = append(b.buf, ',')
	}
	b.buf = appendUnquoted(b.buf, name)
	b.buf = append(b.buf, '=')
	b.rowFields++
	b.state = rowInFields
	rollback := func() {
		b.buf = b.buf[:mark]
		b.rowFields--
		if b.rowFields == 0 {
			if b.rowSymbols > 0 {
				b.state = rowInSymbols
			} else {
				b.state = rowAtTable
			}
		}
		b.dropLastColumn()
	}
	return rollback, nil
}

// recordColumn registers a column name for duplicate detection within the
// open row.
func (b *Buffer) recordColumn(name string) error {
	h := xxh3.HashString(name)
	for i, seen := range b.colHashes {
		if seen == h && b.colNames[i] == name {
			return fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
		}
	}
	b.colHashes = append(b.colHashes, h)
	b.colNames = append(b.colNames, name)
	return nil
}

func (b *Buffer) dropLastColumn() {
	if n := len(b.colHashes); n > 0 {
		b.colHashes = b.colHashes[:n-1]
		b.colNames = b.colNames[:n-1]
	}
}
