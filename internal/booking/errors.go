package booking

import (
	"errors"
	"fmt"
)

// Validation failures, in the order they are checked.
var (
	ErrBranchRequired  = errors.New("branch is required")
	ErrServiceRequired = errors.New("service is required")
	ErrDateRequired    = errors.New("date is required")
	ErrTimeRequired    = errors.New("time is required")
	ErrNameRequired    = errors.New("name is required")
	ErrPhoneRequired   = errors.New("phone is required")
	ErrPhoneInvalid    = errors.New("phone must contain digits")
	ErrEmailRequired   = errors.New("email is required")
	ErrEmailInvalid    = errors.New("email is invalid")
)

var (
	// ErrSubmissionInFlight rejects a submit while another is pending.
	ErrSubmissionInFlight = errors.New("booking: submission already in flight")
	// ErrReferenceRequired rejects a cancel without a booking reference.
	ErrReferenceRequired = errors.New("booking: reference is required")
)

// MessageSubmitRetry replaces a remote rejection that names no field.
const MessageSubmitRetry = "We couldn't complete your booking. Please try again."

// Selection field names used as keys in validation errors.
const (
	FieldBranch  = "branch"
	FieldService = "service"
	FieldDate    = "date"
	FieldTime    = "time"
	FieldName    = "name"
	FieldPhone   = "phone"
	FieldEmail   = "email"
)

// ValidationError reports the first Selection field that failed validation.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("booking: %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Message is the user-facing text shown next to the field.
func (e *ValidationError) Message() string {
	switch {
	case errors.Is(e.Err, ErrBranchRequired):
		return "Please select a branch."
	case errors.Is(e.Err, ErrServiceRequired):
		return "Please select a service."
	case errors.Is(e.Err, ErrDateRequired):
		return "Please choose a date."
	case errors.Is(e.Err, ErrTimeRequired):
		return "Please choose an available time."
	case errors.Is(e.Err, ErrNameRequired):
		return "Please enter your name."
	case errors.Is(e.Err, ErrPhoneRequired):
		return "Please enter your phone number."
	case errors.Is(e.Err, ErrPhoneInvalid):
		return "Please enter a valid phone number."
	case errors.Is(e.Err, ErrEmailRequired):
		return "Please enter your email address."
	case errors.Is(e.Err, ErrEmailInvalid):
		return "Please enter a valid email address."
	default:
		return "Please check this field."
	}
}

// FieldErrors renders the error in the envelope's errors shape.
func (e *ValidationError) FieldErrors() map[string][]string {
	return map[string][]string{e.Field: {e.Message()}}
}

func invalid(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: err}
}
