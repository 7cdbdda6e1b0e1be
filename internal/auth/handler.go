package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes session endpoints.
type Handler struct {
	manager *Manager
}

// NewHandler constructs a session HTTP handler.
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Login opens a session.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.manager.Login(c.UserContext(), req.Phone, req.Password); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "logged_in", "user": h.manager.Identity()})
}

// Logout closes the session.
func (h *Handler) Logout(c *fiber.Ctx) error {
	if err := h.manager.Logout(c.UserContext()); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "logged_out"})
}

// Refresh revalidates the stored token.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	user, err := h.manager.RefreshIdentity(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"authenticated": user != nil, "user": user})
}

// Me returns the current identity.
func (h *Handler) Me(c *fiber.Ctx) error {
	user := h.manager.Identity()
	if user == nil {
		return fiber.NewError(http.StatusUnauthorized, "not logged in")
	}
	return c.JSON(user)
}
