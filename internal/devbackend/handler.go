package devbackend

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the backend contract over HTTP.
type Handler struct {
	service *Service
}

// NewHandler constructs the backend HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// NewApp builds a fiber app serving the backend contract.
func NewApp(service *Service) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "pharmachain-devbackend",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	NewHandler(service).Register(app)
	return app
}

// Register wires the backend routes.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/health", h.Health)
	api := app.Group("/api")
	api.Post("/login", h.Login)
	api.Post("/auth/start", h.Start)
	api.Post("/auth/verify_otp", h.VerifyOTP)
	api.Post("/auth/set_password", h.SetPassword)
	api.Get("/me", h.Me)
	api.Post("/purchase", h.Purchase)
	api.Get("/revenue", h.Revenue)
}

type phoneRequest struct {
	Phone string `json:"phone"`
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type otpRequest struct {
	Phone   string `json:"phone"`
	OTPCode string `json:"otp_code"`
}

type passwordRequest struct {
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	TempToken string `json:"temp_token"`
}

type purchaseRequest struct {
	Customer    string         `json:"customer"`
	Medicine    []PurchaseItem `json:"medicine"`
	PriceETH    json.Number    `json:"price_eth"`
	PriceUSD    json.Number    `json:"price_usd"`
	TxHash      string         `json:"tx_hash"`
	ChainID     int64          `json:"chain_id"`
	BlockNumber uint64         `json:"block_number"`
	Status      string         `json:"status"`
}

// Health reports liveness.
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339Nano)})
}

// Login issues an access token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	token, err := h.service.Login(c.UserContext(), req.Phone, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"access_token": token, "token_type": "bearer"})
}

// Start begins registration for a phone number.
func (h *Handler) Start(c *fiber.Ctx) error {
	var req phoneRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	out, err := h.service.Start(c.UserContext(), req.Phone)
	if err != nil {
		return err
	}
	resp := fiber.Map{"status": "success", "action": out.Action, "message": out.Message}
	if out.OTP != "" {
		resp["otp_displayed"] = out.OTP
	}
	return c.JSON(resp)
}

// VerifyOTP exchanges a code for a temp token.
func (h *Handler) VerifyOTP(c *fiber.Ctx) error {
	var req otpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	token, err := h.service.VerifyOTP(c.UserContext(), req.Phone, req.OTPCode)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "success", "message": "verified", "temp_token": token})
}

// SetPassword creates the account.
func (h *Handler) SetPassword(c *fiber.Ctx) error {
	var req passwordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.SetPassword(c.UserContext(), req.Phone, req.Password, req.TempToken); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "success", "message": "registration successful"})
}

// Me returns the profile of the bearer.
func (h *Handler) Me(c *fiber.Ctx) error {
	authz := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return reject(http.StatusUnauthorized, "not authenticated")
	}
	user, err := h.service.Me(c.UserContext(), strings.TrimSpace(authz[len("Bearer "):]))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"id":             user.ID,
		"phone":          user.Phone,
		"wallet_address": user.WalletAddress,
		"username":       "",
		"role":           user.Role,
		"created_at":     user.CreatedAt.Format(time.RFC3339),
	})
}

// Purchase records a reported purchase.
func (h *Handler) Purchase(c *fiber.Ctx) error {
	var req purchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.PriceETH == "" {
		return reject(http.StatusBadRequest, "missing transaction details")
	}
	priceETH, err := req.PriceETH.Float64()
	if err != nil {
		return reject(http.StatusBadRequest, "invalid price_eth")
	}
	priceUSD, _ := req.PriceUSD.Float64()
	err = h.service.RecordPurchase(c.UserContext(), Purchase{
		Customer:    req.Customer,
		Medicine:    req.Medicine,
		PriceETH:    priceETH,
		PriceUSD:    priceUSD,
		TxHash:      req.TxHash,
		ChainID:     req.ChainID,
		BlockNumber: req.BlockNumber,
		Status:      req.Status,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "purchase recorded"})
}

// Revenue reports the monthly total.
func (h *Handler) Revenue(c *fiber.Ctx) error {
	month := c.QueryInt("month")
	year := c.QueryInt("year")
	total, purchases, err := h.service.Revenue(c.UserContext(), month, year)
	if err != nil {
		return err
	}
	if purchases == nil {
		purchases = []Purchase{}
	}
	return c.JSON(fiber.Map{"total": total, "transactions": purchases})
}

func errorHandler(c *fiber.Ctx, err error) error {
	var rejection *Error
	if errors.As(err, &rejection) {
		return c.Status(rejection.Status).JSON(fiber.Map{"detail": rejection.Detail})
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"detail": fe.Message})
	}
	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"detail": err.Error()})
}
