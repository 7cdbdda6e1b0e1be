package identity

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// SessionStarter logs a freshly registered account in.
type SessionStarter interface {
	Login(ctx context.Context, phone, password string) error
}

// Handler exposes the registration flow over HTTP.
type Handler struct {
	controller *Controller
	sessions   SessionStarter
}

// NewHandler constructs a registration HTTP handler. sessions may be nil, in
// which case auto-login requests are ignored.
func NewHandler(controller *Controller, sessions SessionStarter) *Handler {
	return &Handler{controller: controller, sessions: sessions}
}

type otpRequest struct {
	Phone string `json:"phone"`
}

type verifyRequest struct {
	Phone   string `json:"phone"`
	OTPCode string `json:"otp_code"`
}

type passwordRequest struct {
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	TempToken string `json:"temp_token"`
	AutoLogin bool   `json:"auto_login"`
}

// RequestOTP starts registration for a phone number.
func (h *Handler) RequestOTP(c *fiber.Ctx) error {
	var req otpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.controller.RequestOTP(c.UserContext(), req.Phone)
	if err != nil {
		return err
	}
	body := fiber.Map{"action": res.Action, "message": res.Message}
	if !res.LoginRequired() {
		body["otp"] = res.Code
		body["expires_at"] = res.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}
	return c.Status(http.StatusOK).JSON(body)
}

// VerifyOTP checks the code of the pending request.
func (h *Handler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	token, err := h.controller.VerifyOTP(c.UserContext(), req.Phone, req.OTPCode)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"temp_token": token})
}

// SetPassword completes registration and optionally logs in.
func (h *Handler) SetPassword(c *fiber.Ctx) error {
	var req passwordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	msg, err := h.controller.SetPassword(c.UserContext(), req.Phone, req.Password, req.TempToken)
	if err != nil {
		return err
	}
	body := fiber.Map{"message": msg, "logged_in": false}
	if req.AutoLogin && h.sessions != nil {
		if err := h.sessions.Login(c.UserContext(), req.Phone, req.Password); err != nil {
			body["login_error"] = err.Error()
		} else {
			body["logged_in"] = true
		}
	}
	return c.Status(http.StatusCreated).JSON(body)
}

// Reset abandons the pending request.
func (h *Handler) Reset(c *fiber.Ctx) error {
	if err := h.controller.Reset(c.UserContext()); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// State reports the flow position.
func (h *Handler) State(c *fiber.Ctx) error {
	st, err := h.controller.Status(c.UserContext())
	if err != nil {
		return err
	}
	body := fiber.Map{"state": st.State.String()}
	if st.Phone != "" {
		body["phone"] = st.Phone
		body["expires_at"] = st.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}
	return c.JSON(body)
}
