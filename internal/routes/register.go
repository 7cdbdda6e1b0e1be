package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pharma-chain/pharma_chain/internal/identity"
)

// RegisterRegistrationRoutes wires the OTP registration flow.
func RegisterRegistrationRoutes(r fiber.Router, h *identity.Handler, limiter fiber.Handler) {
	group := r.Group("/register")
	if limiter != nil {
		group.Post("/otp", limiter, h.RequestOTP)
	} else {
		group.Post("/otp", h.RequestOTP)
	}
	group.Post("/verify", h.VerifyOTP)
	group.Post("/password", h.SetPassword)
	group.Post("/reset", h.Reset)
	group.Get("/state", h.State)
}
