package ilp

import "fmt"

// rowState tracks the phase of the row currently being built. The wire
// format has no self-describing schema, so ordering correctness at write
// time is the only thing preventing malformed rows the server would reject
// opaquely.
//
// Valid sequence: Table, zero or more Symbol, one or more fields, optional
// timestamp, then Commit or Discard. The timestamp may be set any time after
// Table; it is emitted last regardless.
type rowState uint8

const (
	rowClosed rowState = iota
	rowAtTable
	rowInSymbols
	rowInFields
)

func (s rowState) open() bool {
	return s != rowClosed
}

// checkSymbol validates a Symbol call in the current state.
func (s rowState) checkSymbol() error {
	switch s {
	case rowClosed:
		return fmt.Errorf("%w: symbol without an open row", ErrColumnOrder)
	case rowInFields:
		return fmt.Errorf("%w: symbol after field", ErrColumnOrder)
	}
	return nil
}

// checkField validates a field call in the current state.
func (s rowState) checkField() error {
	if s == rowClosed {
		return fmt.Errorf("%w: field without an open row", ErrColumnOrder)
	}
	return nil
}

// checkTimestamp validates setting the designated timestamp.
func (s rowState) checkTimestamp() error {
	if s == rowClosed {
		return fmt.Errorf("%w: timestamp without an open row", ErrColumnOrder)
	}
	return nil
}
