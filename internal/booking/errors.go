package booking

import (
	"errors"
	"fmt"
)

// Expected outcomes of the public operations.  Handlers translate these
// into client errors.
var (
	// ErrSoldOut is returned when the event has fewer remaining tickets
	// than requested.  No booking is created.
	ErrSoldOut = errors.New("sold out")
	// ErrInvalidTransition is returned when the booking is not in the
	// status the operation requires.  Nothing was modified.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotFound is returned when no booking (or event) matches.
	ErrNotFound = errors.New("not found")
)

// Conditions that abort a request.
var (
	// ErrCodeExhausted is returned when no unique code could be stored
	// within the configured number of attempts.
	ErrCodeExhausted = errors.New("could not allocate a unique booking code")
	// ErrDuplicateCode is reported by stores when the code is taken.  The
	// engine retries with a new code; it never reaches callers.
	ErrDuplicateCode = errors.New("duplicate booking code")
	// ErrUnauthorized is returned when an administrative operation is
	// invoked without a capability.
	ErrUnauthorized = errors.New("administrative capability required")
)

// Non-fatal side effect failures.  They are logged and counted, never
// returned from lifecycle operations.
var (
	ErrRenderDegraded      = errors.New("ticket rendered without scannable code")
	ErrNotificationFailure = errors.New("booking notification failed")
)

// ValidationError reports malformed buyer input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// ErrStoreUnavailable wraps store failures caused by the bounded store
// timeout.  The request can be retried.
var ErrStoreUnavailable = errors.New("booking store unavailable")
