package ilp

import "errors"

// Row construction errors. These are raised client-side before any bytes
// reach the network and always leave the buffer's committed region intact:
// the offending row stays open and can be discarded or completed.
var (
	// ErrInvalidName is returned for empty, oversized or otherwise
	// malformed table and column names.
	ErrInvalidName = errors.New("ilp: invalid name")

	// ErrColumnOrder is returned when a call violates the row sequence:
	// symbols must precede fields, and columns require an open row.
	ErrColumnOrder = errors.New("ilp: column out of order")

	// ErrDuplicateColumn is returned when a column name repeats within a row.
	ErrDuplicateColumn = errors.New("ilp: duplicate column")

	// ErrEmptyRow is returned by Commit when the row has no field columns.
	// Symbols alone do not make a valid row.
	ErrEmptyRow = errors.New("ilp: row has no fields")

	// ErrTimestampSet is returned when the designated timestamp is set twice.
	ErrTimestampSet = errors.New("ilp: timestamp already set")

	// ErrEncoding is returned for invalid UTF-8 or for characters that the
	// wire format cannot represent in the given position.
	ErrEncoding = errors.New("ilp: invalid encoding")

	// ErrRange is returned for values outside the protocol's representable
	// range: non-finite floats and negative timestamps.
	ErrRange = errors.New("ilp: value out of range")

	// ErrRowOpen is returned by Flush while a row is still being built.
	// Commit or Discard the row first.
	ErrRowOpen = errors.New("ilp: row in progress")
)

// Transport and session errors.
var (
	// ErrConnection covers transient transport faults: dial failures,
	// broken pipes, resets, and retryable HTTP statuses. Flush retries
	// these automatically.
	ErrConnection = errors.New("ilp: connection failed")

	// ErrTLS covers certificate and handshake failures. Not retried:
	// a trust failure does not heal by redialing.
	ErrTLS = errors.New("ilp: tls handshake failed")

	// ErrFlush is surfaced after the retry budget is exhausted. The buffer
	// is left intact so the caller can retry or persist it elsewhere.
	ErrFlush = errors.New("ilp: flush failed")

	// ErrRejected means the server confirmed a data defect (HTTP 4xx class).
	// Retrying the same bytes cannot succeed, so no retry is attempted.
	ErrRejected = errors.New("ilp: server rejected data")

	// ErrClosed is returned by operations on a closed sender.
	ErrClosed = errors.New("ilp: sender closed")
)
