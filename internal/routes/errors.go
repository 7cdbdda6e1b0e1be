package routes

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/pharma-chain/pharma_chain/internal/auth"
	"github.com/pharma-chain/pharma_chain/internal/checkout"
	"github.com/pharma-chain/pharma_chain/internal/gateway"
	"github.com/pharma-chain/pharma_chain/internal/identity"
	"github.com/pharma-chain/pharma_chain/internal/ledger"
	"github.com/pharma-chain/pharma_chain/internal/wallet"
)

const connectivityMessage = "cannot reach backend, check your connection and try again"

type apiError struct {
	Status  int
	Kind    string
	Message string
	Field   string
}

// ErrorHandler renders every handler error as {"error", "kind"} with a
// status matching its class.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		e := classify(err)
		if e.Status >= http.StatusInternalServerError && logger != nil {
			logger.Error("unhandled error", slog.String("path", c.Path()), slog.Any("error", err))
		}
		body := fiber.Map{"error": e.Message, "kind": e.Kind}
		if e.Field != "" {
			body["field"] = e.Field
		}
		return c.Status(e.Status).JSON(body)
	}
}

func classify(err error) apiError {
	var (
		fe   *fiber.Error
		verr *identity.ValidationError
		berr *gateway.BackendError
	)
	switch {
	case errors.As(err, &fe):
		return apiError{Status: fe.Code, Kind: "request", Message: fe.Message}
	case errors.As(err, &verr):
		return apiError{Status: http.StatusBadRequest, Kind: "validation", Message: verr.Error(), Field: verr.Field}
	case errors.Is(err, identity.ErrNoPendingOTP):
		return apiError{Status: http.StatusConflict, Kind: "no_pending_otp", Message: err.Error()}
	case errors.Is(err, identity.ErrPhoneMismatch):
		return apiError{Status: http.StatusConflict, Kind: "phone_mismatch", Message: err.Error()}
	case errors.Is(err, identity.ErrOTPExpired):
		return apiError{Status: http.StatusGone, Kind: "otp_expired", Message: err.Error()}
	case errors.Is(err, identity.ErrInvalidToken):
		return apiError{Status: http.StatusUnauthorized, Kind: "invalid_token", Message: err.Error()}
	case errors.Is(err, identity.ErrOutOfOrder):
		return apiError{Status: http.StatusConflict, Kind: "out_of_order", Message: err.Error()}
	case errors.Is(err, auth.ErrInvalidCredentials):
		msg := err.Error()
		if errors.As(err, &berr) && berr.Detail != "" {
			msg = berr.Detail
		}
		return apiError{Status: http.StatusUnauthorized, Kind: "invalid_credentials", Message: msg}
	case errors.As(err, &berr):
		status := berr.Status
		if status < http.StatusBadRequest || status >= http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		return apiError{Status: status, Kind: "backend", Message: berr.Detail}
	case errors.Is(err, gateway.ErrUnreachable):
		return apiError{Status: http.StatusServiceUnavailable, Kind: "connectivity", Message: connectivityMessage}
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		return apiError{Status: http.StatusConflict, Kind: "duplicate_transaction", Message: err.Error()}
	case errors.Is(err, checkout.ErrMissingCustomer),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrInvalidItem),
		errors.Is(err, checkout.ErrInvalidPrice),
		errors.Is(err, wallet.ErrInvalidAddress):
		return apiError{Status: http.StatusBadRequest, Kind: "validation", Message: err.Error()}
	case errors.Is(err, wallet.ErrNoAccount):
		return apiError{Status: http.StatusNotFound, Kind: "no_account", Message: err.Error()}
	default:
		return apiError{Status: http.StatusInternalServerError, Kind: "internal", Message: "internal error"}
	}
}
