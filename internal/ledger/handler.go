package ledger

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// Handler exposes ledger queries.
type Handler struct {
	ledger *Ledger
}

// NewHandler constructs a ledger HTTP handler.
func NewHandler(l *Ledger) *Handler {
	return &Handler{ledger: l}
}

// List returns the records of ?account=, or every record with ?all=true.
func (h *Handler) List(c *fiber.Ctx) error {
	var (
		txs []Transaction
		err error
	)
	if c.QueryBool("all") {
		txs, err = h.ledger.All(c.UserContext())
	} else {
		txs, err = h.ledger.ByAccount(c.UserContext(), c.Query("account"))
	}
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"transactions": txs, "count": len(txs)})
}

// Total returns the summed price of ?account=, or of every record with ?all=true.
func (h *Handler) Total(c *fiber.Ctx) error {
	var (
		total decimal.Decimal
		err   error
	)
	if c.QueryBool("all") {
		total, err = h.ledger.TotalAll(c.UserContext())
	} else {
		total, err = h.ledger.TotalByAccount(c.UserContext(), c.Query("account"))
	}
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"total": total.String()})
}

// Clear empties the ledger.
func (h *Handler) Clear(c *fiber.Ctx) error {
	if err := h.ledger.Clear(c.UserContext()); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
