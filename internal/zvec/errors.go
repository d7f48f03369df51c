package zvec

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrClosed         = errors.New("zvec: collection closed")
	ErrDimMismatch    = errors.New("zvec: vector dimension mismatch")
	ErrUnknownField   = errors.New("zvec: unknown vector field")
	ErrSchemaMismatch = errors.New("zvec: stored schema disagrees with requested schema")
	ErrStorageCorrupt = errors.New("zvec: storage data corrupted")
)

// Error wraps errors with operation context.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("zvec.%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with operation context.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
