package attendance

import (
	"errors"
	"fmt"
)

// ErrInvalidFilter is returned when a filter or page value cannot be used in a query.
var ErrInvalidFilter = errors.New("invalid attendance filter")

// DataFetchError wraps a failure of the underlying store.
type DataFetchError struct {
	Op  string
	Err error
}

func (e *DataFetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.Op, e.Err)
}

func (e *DataFetchError) Unwrap() error {
	return e.Err
}

func fetchError(op string, err error) error {
	return &DataFetchError{Op: op, Err: err}
}

func invalidFilter(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidFilter, fmt.Sprintf(format, args...))
}
