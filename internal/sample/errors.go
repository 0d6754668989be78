package sample

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingColumn indicates a required header is absent.
	ErrMissingColumn = errors.New("sample: required column missing")

	// ErrBadValue indicates a cell that cannot be parsed.
	ErrBadValue = errors.New("sample: invalid value")

	// ErrEmpty indicates a CSV without data rows.
	ErrEmpty = errors.New("sample: no data rows")
)

// RowError wraps a parse failure with its CSV position.
type RowError struct {
	Line    int
	Column  string
	Wrapped error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d, column %s: %v", e.Line, e.Column, e.Wrapped)
}

func (e *RowError) Unwrap() error {
	return e.Wrapped
}
