package engine

import (
	"errors"
	"fmt"
)

// ValidationError rejects a malformed submission before any matching or
// persistence happens. Fully recoverable; the caller sees the specific
// constraint violated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ConsistencyError reports an invariant breach mid-settlement (e.g. a fill
// that would overrun a resting order's quantity). The unit is aborted, never
// clamped; this should not occur if serialization holds.
type ConsistencyError struct {
	Detail string
}

func (e *ConsistencyError) Error() string {
	return "consistency violation: " + e.Detail
}

// StorageError wraps a persistence failure. The settlement transaction was
// rolled back in full, so retrying the whole submission is safe.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return "storage: " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsRetriable reports whether the caller may safely resubmit.
func IsRetriable(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
