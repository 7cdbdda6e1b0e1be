package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pharma-chain/pharma_chain/internal/metrics"
)

const (
	pathLogin       = "/api/login"
	pathStart       = "/api/auth/start"
	pathVerifyOTP   = "/api/auth/verify_otp"
	pathSetPassword = "/api/auth/set_password"
	pathMe          = "/api/me"
	pathPurchase    = "/api/purchase"
	pathHealth      = "/health"
)

// ErrUnreachable wraps transport-level failures: the request never got an
// HTTP response.
var ErrUnreachable = errors.New("cannot reach backend")

// BackendError reports a request the backend received and rejected.
type BackendError struct {
	Status int
	Detail string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend rejected request (%d): %s", e.Status, e.Detail)
}

// Unauthorized reports whether the backend rejected the credentials attached
// to the request.
func (e *BackendError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// Client talks JSON over HTTP to the storefront backend.
type Client struct {
	baseURL string
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewClient builds a gateway client. Every call is bounded by timeout.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, m *metrics.Metrics) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{baseURL: baseURL, timeout: timeout, logger: logger, metrics: m}
}

// Login exchanges phone and password for an access token.
func (c *Client) Login(ctx context.Context, phone, password string) (string, error) {
	var out loginResponse
	if err := c.post(ctx, pathLogin, loginRequest{Phone: phone, Password: password}, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", &BackendError{Status: http.StatusOK, Detail: "no access token in server response"}
	}
	return out.AccessToken, nil
}

// StartRegistration asks the backend to issue an OTP for phone.
func (c *Client) StartRegistration(ctx context.Context, phone string) (StartResult, error) {
	var out StartResult
	if err := c.post(ctx, pathStart, startRequest{Phone: phone}, &out); err != nil {
		return StartResult{}, err
	}
	return out, nil
}

// VerifyOTP submits the code and returns the temporary token.
func (c *Client) VerifyOTP(ctx context.Context, phone, code string) (string, error) {
	var out verifyResponse
	if err := c.post(ctx, pathVerifyOTP, verifyRequest{Phone: phone, OTPCode: code}, &out); err != nil {
		return "", err
	}
	if out.TempToken == "" {
		return "", &BackendError{Status: http.StatusOK, Detail: "no temp token in server response"}
	}
	return out.TempToken, nil
}

// SetPassword creates the account and returns the server message.
func (c *Client) SetPassword(ctx context.Context, phone, password, tempToken string) (string, error) {
	var out messageResponse
	req := setPasswordRequest{Phone: phone, Password: password, TempToken: tempToken}
	if err := c.post(ctx, pathSetPassword, req, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Me resolves the identity behind token.
func (c *Client) Me(ctx context.Context, token string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	a := fiber.Get(c.baseURL + pathMe)
	a.Set(fiber.HeaderAuthorization, "Bearer "+token)
	var out User
	if err := c.do(ctx, pathMe, a, &out); err != nil {
		return User{}, err
	}
	return out, nil
}

// RecordPurchase reports a completed purchase to the backend.
func (c *Client) RecordPurchase(ctx context.Context, p Purchase) error {
	return c.post(ctx, pathPurchase, p, nil)
}

// Health checks that the backend answers.
func (c *Client) Health(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.do(ctx, pathHealth, fiber.Get(c.baseURL+pathHealth), nil)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a := fiber.Post(c.baseURL + path)
	a.JSON(body)
	return c.do(ctx, path, a, out)
}

func (c *Client) do(ctx context.Context, endpoint string, a *fiber.Agent, out any) error {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			fiber.ReleaseAgent(a)
			return context.DeadlineExceeded
		}
		if remaining < timeout {
			timeout = remaining
		}
	}
	a.Timeout(timeout)

	start := time.Now()
	code, body, errs := a.Bytes()
	elapsed := time.Since(start)

	if len(errs) > 0 {
		err := fmt.Errorf("%w: %v", ErrUnreachable, errors.Join(errs...))
		c.observe(endpoint, "unreachable", elapsed)
		if c.logger != nil {
			c.logger.Warn("backend unreachable", slog.String("endpoint", endpoint), slog.Any("error", err))
		}
		return err
	}

	if code < http.StatusOK || code >= http.StatusMultipleChoices {
		c.observe(endpoint, "rejected", elapsed)
		berr := decodeBackendError(code, body)
		if c.logger != nil {
			c.logger.Debug("backend rejected request", slog.String("endpoint", endpoint), slog.Int("status", code))
		}
		return berr
	}

	c.observe(endpoint, "ok", elapsed)
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &BackendError{Status: code, Detail: "malformed server response"}
	}
	return nil
}

func (c *Client) observe(endpoint, outcome string, elapsed time.Duration) {
	c.metrics.ObserveGatewayCall(endpoint, outcome, elapsed)
}

// decodeBackendError reads the {detail} error body. Validation errors carry
// a structured detail; it is passed through as raw JSON text.
func decodeBackendError(code int, body []byte) *BackendError {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(payload.Detail, &detail); err == nil {
			return &BackendError{Status: code, Detail: detail}
		}
		return &BackendError{Status: code, Detail: string(payload.Detail)}
	}
	return &BackendError{Status: code, Detail: fmt.Sprintf("HTTP %d: %s", code, http.StatusText(code))}
}
