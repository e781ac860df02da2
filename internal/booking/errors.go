package booking

import (
	"errors"
	"fmt"

	"github.com/erazemk/izposoja/internal/model"
)

var (
	// ErrNotFound is returned when a booking or item doesn't exist or isn't owned by the caller.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a status change or edit isn't allowed from the current status.
	ErrInvalidTransition = errors.New("invalid booking status transition")
)

// ValidationError rejects input before anything is written.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConflictError reports the active bookings that block the requested dates.
type ConflictError struct {
	Conflicts []model.Booking
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("item is not available for the selected dates (%d conflicting bookings)", len(e.Conflicts))
}
