package policy

import (
	"errors"
	"fmt"
)

// Common policy errors.
var (
	// ErrDenied indicates that the policy endpoint denied the operation.
	ErrDenied = errors.New("access denied")

	// ErrUnavailable indicates that no decision could be obtained from
	// the policy endpoint.
	ErrUnavailable = errors.New("policy endpoint unavailable")
)

// Error represents a policy decision error with additional context.
type Error struct {
	// Err is the underlying error.
	Err error

	// Operation is the operation that was being authorized.
	Operation string

	// Reason carries transport detail for unavailable decisions.
	Reason string
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("policy decision failed for %s: %s", e.Operation, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("policy decision failed for %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("policy decision failed for %s", e.Operation)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewDeniedError creates an error for a denied operation.
func NewDeniedError(operation string) *Error {
	return &Error{
		Err:       ErrDenied,
		Operation: operation,
	}
}

// NewUnavailableError creates an error for an operation that could not
// be decided.
func NewUnavailableError(operation string, cause error) *Error {
	e := &Error{
		Err:       ErrUnavailable,
		Operation: operation,
	}
	if cause != nil {
		e.Reason = cause.Error()
	}
	return e
}

// IsDenied checks if an error is a policy denial.
func IsDenied(err error) bool {
	return errors.Is(err, ErrDenied)
}

// IsUnavailable checks if an error means no decision was obtained.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
