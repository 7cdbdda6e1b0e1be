package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pharma-chain/pharma_chain/internal/auth"
)

// RegisterSessionRoutes wires login, logout and identity endpoints.
func RegisterSessionRoutes(r fiber.Router, h *auth.Handler, limiter fiber.Handler) {
	group := r.Group("/session")
	if limiter != nil {
		group.Post("/login", limiter, h.Login)
	} else {
		group.Post("/login", h.Login)
	}
	group.Post("/logout", h.Logout)
	group.Post("/refresh", h.Refresh)
	group.Get("/me", h.Me)
}
