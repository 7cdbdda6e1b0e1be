package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pharma-chain/pharma_chain/internal/checkout"
	"github.com/pharma-chain/pharma_chain/internal/ledger"
	"github.com/pharma-chain/pharma_chain/internal/wallet"
)

// RegisterTransactionRoutes wires the purchase ledger. idempotency may be nil.
func RegisterTransactionRoutes(r fiber.Router, ledgerHandler *ledger.Handler, checkoutHandler *checkout.Handler, idempotency fiber.Handler) {
	if idempotency != nil {
		r.Post("/transactions", idempotency, checkoutHandler.Record)
	} else {
		r.Post("/transactions", checkoutHandler.Record)
	}
	r.Get("/transactions", ledgerHandler.List)
	r.Get("/transactions/total", ledgerHandler.Total)
	r.Delete("/transactions", ledgerHandler.Clear)
}

// RegisterWalletRoutes wires account summaries behind the session guard.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler, guard fiber.Handler) {
	r.Get("/wallet/summary", guard, h.Summary)
}
