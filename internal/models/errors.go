package models

import (
	"errors"
	"fmt"

	"marketBack/internal/booking/fsm"
)

var (
	ErrNoRecord            = errors.New("models: no matching record found")
	ErrValidation          = errors.New("models: validation failed")
	ErrInvalidCredentials  = errors.New("models: invalid credentials")
	ErrDuplicateEmail      = errors.New("models: duplicate email")
	ErrUserNotFound        = errors.New("models: user not found")
	ErrUnauthorized        = errors.New("models: authentication required")
	ErrForbidden           = errors.New("models: forbidden")
	ErrInvalidRefreshToken = errors.New("models: invalid refresh token")
)

var (
	ErrServiceNotFound  = errors.New("service not found")
	ErrServiceInactive  = errors.New("service is not active")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrStatusConflict   = errors.New("booking status changed")
	ErrAlreadyReviewed  = errors.New("booking already reviewed")
	ErrAlreadyPaid      = errors.New("booking already paid")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrPaymentNotFound  = errors.New("payment order not found")

	ErrInvalidTransition = fsm.ErrInvalidTransition
)

// Invalid wraps a user-facing validation message so callers can match ErrValidation.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
