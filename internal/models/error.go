package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrValidation     = errors.New("invalid input")
	ErrInternalServer = errors.New("internal server error")

	// Lifecycle errors
	ErrInvalidOTP         = errors.New("invalid verification code")
	ErrOTPExpired         = errors.New("verification code expired")
	ErrAlreadyVerified    = errors.New("account already verified")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("email address not verified")
	ErrDelivery           = errors.New("notification delivery failed")
)

// Retryable reports whether the caller can expect a later retry of the
// same request to succeed without changing its input. Delivery failures
// and internal errors are transient; everything else needs a different
// request (new code, different email, corrected fields).
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrDelivery),
		errors.Is(err, ErrInternalServer):
		return true
	case errors.Is(err, ErrOTPExpired):
		// remedied by an explicit resend, not by replaying the request
		return false
	default:
		return false
	}
}
