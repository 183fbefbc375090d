package scheduler

import (
	"errors"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrSlotUnavailable   = errors.New("time slot unavailable")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotFound          = model.ErrNotFound
)

// ValidationError names the offending field. errors.Is(err, ErrValidation) holds for it.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
