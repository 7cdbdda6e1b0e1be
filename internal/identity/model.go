package identity

import (
	"context"
	"time"

	"github.com/pharma-chain/pharma_chain/internal/gateway"
)

// State is the registration flow position.
type State int

const (
	StateIdle State = iota
	StateOTPRequested
	StateOTPVerified
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateOTPRequested:
		return "otp_requested"
	case StateOTPVerified:
		return "otp_verified"
	case StateCompleted:
		return "completed"
	default:
		return "idle"
	}
}

// Actions returned by RequestOTP.
const (
	ActionVerifyOTP = "VERIFY_OTP"
	ActionLogin     = gateway.ActionLogin
)

// RequestResult is the outcome of a successful OTP request. When Action is
// ActionLogin the phone already has an account and no code was issued.
type RequestResult struct {
	Action    string
	Phone     string
	Code      string
	Message   string
	ExpiresAt time.Time
}

// LoginRequired reports whether the caller should switch to the login flow.
func (r RequestResult) LoginRequired() bool {
	return r.Action == ActionLogin
}

// Status describes the flow for display. Phone and ExpiresAt are zero when
// no request is pending.
type Status struct {
	State     State
	Phone     string
	ExpiresAt time.Time
}

// Backend is the part of the backend gateway the registration flow needs.
type Backend interface {
	StartRegistration(ctx context.Context, phone string) (gateway.StartResult, error)
	VerifyOTP(ctx context.Context, phone, code string) (string, error)
	SetPassword(ctx context.Context, phone, password, tempToken string) (string, error)
}
