package xerrors

import (
	"errors"
	"fmt"
)

// Common reusable application errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidInput   = errors.New("invalid input")
	ErrConflict       = errors.New("conflict: resource already exists")
	ErrInternal       = errors.New("internal server error")
	ErrRateLimited    = errors.New("too many requests")
	ErrSessionExpired = errors.New("session expired or invalid")
)

// Business rule violations. All of them surface as 400.
var (
	ErrAlreadyRegistered   = errors.New("user already registered, please login")
	ErrNotRegistered       = errors.New("number not registered, please register as a user")
	ErrOTPNotFound         = errors.New("no OTP found for this number")
	ErrOTPExpired          = errors.New("OTP has expired")
	ErrOTPInvalid          = errors.New("invalid OTP")
	ErrServiceInactive     = errors.New("service not found or inactive")
	ErrAlreadySubscribed   = errors.New("already subscribed to this service")
	ErrInsufficientAirtime = errors.New("insufficient airtime balance")
	ErrBillingFailed       = errors.New("billing failed")
	ErrAlreadyCancelled    = errors.New("subscription already cancelled")
)

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// IsAny reports whether err matches one of targets.
func IsAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// IsBusinessRule reports whether err is a rejected business rule rather than a fault.
func IsBusinessRule(err error) bool {
	return IsAny(err,
		ErrInvalidInput,
		ErrAlreadyRegistered,
		ErrOTPNotFound,
		ErrOTPExpired,
		ErrOTPInvalid,
		ErrAlreadySubscribed,
		ErrInsufficientAirtime,
		ErrBillingFailed,
		ErrAlreadyCancelled,
	)
}
