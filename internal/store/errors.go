package store

import "fmt"

// DimensionMismatchError rejects a vector whose length disagrees with
// the collection dimension. Always recoverable by the caller resubmitting
// a corrected vector.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("store: vector dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// InvalidArgumentError rejects an out-of-range request parameter, such
// as top_k outside its bounds.
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return "store: invalid argument: " + e.Reason
}

// EngineError is an opaque failure from the underlying store, surfaced
// to the caller and not retried at this layer.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("store: engine %s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}
