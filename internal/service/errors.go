package service

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when no item exists for the given id.
	ErrNotFound = errors.New("item not found")

	// ErrValidation is returned when a required field is missing or empty.
	ErrValidation = errors.New("validation failed")

	// ErrStorage is returned when the storage layer fails for any reason
	// other than a missing record. The underlying cause is logged, not
	// propagated, so internals never leak across the service boundary.
	ErrStorage = errors.New("storage failure")
)

// ValidationMessage extracts the client-facing description from a wrapped
// ErrValidation, capitalized for display. Validation errors name the exact
// field that failed, so handlers surface them verbatim.
func ValidationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), ErrValidation.Error()+": ")
	if msg == "" || msg == err.Error() {
		return "Validation failed"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
