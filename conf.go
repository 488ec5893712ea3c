package ilp

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Conf strings are the compact configuration surface shared with the other
// client implementations:
//
//	tcp::addr=localhost:9009;
//	https::addr=db.example.com:9000;token=abc;auto_flush_rows=1000;
//
// Format: schema, "::", then key=value pairs separated by ";". A literal
// semicolon inside a value is written ";;". Unknown keys are rejected so a
// typo never silently degrades security or durability settings.

// FromConf creates a sender from a conf string.
func FromConf(conf string) (*Sender, error) {
	c, err := ParseConf(conf)
	if err != nil {
		return nil, err
	}
	return New(c)
}

// ParseConf parses a conf string into a Config.
func ParseConf(conf string) (Config, error) {
	var c Config

	schema, rest, ok := strings.Cut(conf, "::")
	if !ok {
		return c, fmt.Errorf("%w: conf string missing schema separator \"::\"", ErrConnection)
	}
	switch schema {
	case ProtocolTCP, ProtocolTCPS, ProtocolHTTP, ProtocolHTTPS:
		c.Protocol = schema
	default:
		return c, fmt.Errorf("%w: unknown schema %q", ErrConnection, schema)
	}

	for _, kv := range splitPairs(rest) {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return c, fmt.Errorf("%w: malformed conf entry %q", ErrConnection, kv)
		}
		if err := applyConfKey(&c, key, value); err != nil {
			return c, err
		}
	}

	if c.Address == "" {
		return c, fmt.Errorf("%w: conf string missing addr", ErrConnection)
	}
	return c, nil
}

// splitPairs splits on ";" while honoring the ";;" escape. A trailing
// separator is optional.
func splitPairs(s string) []string {
	var pairs []string
	var cur strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == ';' {
			if i+1 < len(s) && s[i+1] == ';' {
				cur.WriteByte(';')
				i++
				continue
			}
			if cur.Len() > 0 {
				pairs = append(pairs, cur.String())
				cur.Reset()
			}
			continue
		}
		cur.WriteByte(s[i])
	}
	if cur.Len() > 0 {
		pairs = append(pairs, cur.String())
	}
	return pairs
}

func applyConfKey(c *Config, key, value string) error {
	var err error
	switch key {
	case "addr":
		c.Address = value
	case "username":
		// For the TCP schemas this is the auth key id.
		if c.Protocol == ProtocolTCP || c.Protocol == ProtocolTCPS {
			c.KeyID = value
		} else {
			c.Username = value
		}
	case "password":
		c.Password = value
	case "token":
		// For the TCP schemas this is the auth private key.
		if c.Protocol == ProtocolTCP || c.Protocol == ProtocolTCPS {
			c.Key = value
		} else {
			c.Token = value
		}
	case "tls_verify":
		c.TLSVerify = value
	case "tls_roots":
		c.TLSRoots = value
	case "auto_flush_bytes":
		c.AutoFlushBytes, err = confInt(key, value)
	case "auto_flush_rows":
		c.AutoFlushRows, err = confInt(key, value)
	case "auto_flush_interval":
		c.AutoFlushInterval, err = confMillis(key, value)
	case "max_retries":
		c.MaxRetries, err = confInt(key, value)
	case "retry_backoff":
		c.RetryBackoff, err = confMillis(key, value)
	case "max_retry_backoff":
		c.MaxRetryBackoff, err = confMillis(key, value)
	case "connect_timeout":
		c.ConnectTimeout, err = confMillis(key, value)
	case "request_timeout":
		c.RequestTimeout, err = confMillis(key, value)
	case "init_buf_size":
		c.InitBufSize, err = confInt(key, value)
	case "max_name_len":
		c.MaxNameLen, err = confInt(key, value)
	case "gzip":
		switch value {
		case "on":
			c.GzipRequests = true
		case "off":
			c.GzipRequests = false
		default:
			err = fmt.Errorf("%w: gzip must be on or off, got %q", ErrConnection, value)
		}
	default:
		err = fmt.Errorf("%w: unknown conf key %q", ErrConnection, key)
	}
	return err
}

func confInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", ErrConnection, key, value)
	}
	return n, nil
}

// confMillis parses a duration conf value given in milliseconds. Negative
// values disable the corresponding threshold.
func confMillis(key, value string) (time.Duration, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be milliseconds, got %q", ErrConnection, key, value)
	}
	return time.Duration(n) * time.Millisecond, nil
}
