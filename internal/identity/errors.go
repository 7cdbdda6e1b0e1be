package identity

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPendingOTP is returned when a step needs a pending OTP request and none exists.
	ErrNoPendingOTP = errors.New("no pending otp request, request a new code")
	// ErrPhoneMismatch is returned when the phone differs from the pending request.
	ErrPhoneMismatch = errors.New("phone number does not match the pending otp request")
	// ErrOTPExpired is returned when the pending request expired. The request is discarded.
	ErrOTPExpired = errors.New("otp expired, request a new code")
	// ErrInvalidToken is returned when set-password is called without the
	// temporary token issued by the last successful verification.
	ErrInvalidToken = errors.New("invalid temporary token, restart registration")
	// ErrOutOfOrder is returned when a step does not match the current flow state.
	ErrOutOfOrder = errors.New("registration step called out of order")
)

// ValidationError reports malformed input rejected before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
