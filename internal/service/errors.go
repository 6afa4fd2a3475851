package service

import (
	"errors"
	"fmt"

	"github.com/tomgandolfo2/ESLworksheets/internal/validation"
)

// Service-level failures. Callers map them to transport statuses with errors.Is.
var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrAuthorizationDenied    = errors.New("admin role required")
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("not found")
	ErrUpstream               = errors.New("upstream failure")
)

// invalid wraps a field validation error so that it matches ErrValidation
// and still exposes the validation.ValidationError via errors.As.
func invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

func invalidField(field, message string) error {
	return invalid(validation.ValidationError{Field: field, Message: message})
}

func upstream(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
}
