package application

import "errors"

var (
	// ErrNotFound is returned when the requested reservation does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrUnrecognizedField is returned when the inbound payload carries a
	// field outside the documented alias table.
	ErrUnrecognizedField = errors.New("application: unrecognized field")
)

// RejectionError carries the first policy validation rule a reservation
// request failed. The reason is surfaced verbatim to the caller, who is
// expected to correct and resubmit.
type RejectionError struct {
	Reason string
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	if e == nil {
		return ""
	}
	return e.Reason
}

func reject(reason string) *RejectionError {
	return &RejectionError{Reason: reason}
}
