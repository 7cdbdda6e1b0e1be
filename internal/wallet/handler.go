package wallet

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pharma-chain/pharma_chain/internal/gateway"
)

// IdentitySource returns the identity of the current session.
type IdentitySource interface {
	Identity() *gateway.User
}

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service  *Service
	sessions IdentitySource
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service, sessions IdentitySource) *Handler {
	return &Handler{service: service, sessions: sessions}
}

// Summary returns the purchase history of the session's account. The
// optional account query parameter is the connected wallet address.
func (h *Handler) Summary(c *fiber.Ctx) error {
	account, err := h.service.AccountFor(h.sessions.Identity(), c.Query("account"))
	if err != nil {
		if errors.Is(err, ErrInvalidAddress) {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	summary, err := h.service.Summary(c.UserContext(), account)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account":      summary.Account,
		"transactions": summary.Transactions,
		"count":        len(summary.Transactions),
		"total":        summary.Total.String(),
		"as_of":        summary.AsOf.Format(time.RFC3339Nano),
	})
}
