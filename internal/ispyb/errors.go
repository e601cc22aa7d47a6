package ispyb

import (
	"errors"
	"fmt"
)

// ErrStorage indicates that a repository query failed. Absence of a
// row is never a storage error; lookups report it as a nil entity.
var ErrStorage = errors.New("session store error")

// Error represents a repository error with additional context.
type Error struct {
	// Err is the underlying sentinel.
	Err error

	// Op is the repository operation that failed.
	Op string

	// Reason carries driver detail for logging.
	Reason string
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("query %s failed: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("query %s failed", e.Op)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewStorageError creates a storage error for the given operation.
func NewStorageError(op string, cause error) *Error {
	e := &Error{
		Err: ErrStorage,
		Op:  op,
	}
	if cause != nil {
		e.Reason = cause.Error()
	}
	return e
}

// IsStorage checks if an error is a storage error.
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}
