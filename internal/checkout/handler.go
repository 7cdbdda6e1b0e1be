package checkout

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/pharma-chain/pharma_chain/internal/ledger"
)

// Handler exposes checkout endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a checkout handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type purchaseRequest struct {
	ClientTxID  string            `json:"client_tx_id"`
	Customer    string            `json:"customer"`
	Medicine    []ledger.LineItem `json:"medicine"`
	PriceETH    ledger.Price      `json:"price_eth"`
	PriceUSD    ledger.Price      `json:"price_usd"`
	TxHash      string            `json:"tx_hash"`
	ChainID     int64             `json:"chain_id"`
	BlockNumber uint64            `json:"block_number"`
	Status      string            `json:"status"`
}

// Record stores a completed purchase.
func (h *Handler) Record(c *fiber.Ctx) error {
	var req purchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.Record(c.UserContext(), PurchaseInput{
		ClientTxID:  req.ClientTxID,
		Customer:    req.Customer,
		Medicine:    req.Medicine,
		PriceETH:    req.PriceETH,
		PriceUSD:    req.PriceUSD,
		TxHash:      req.TxHash,
		ChainID:     req.ChainID,
		BlockNumber: req.BlockNumber,
		Status:      req.Status,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"transaction": res.Transaction,
		"reported":    res.Reported,
	})
}
