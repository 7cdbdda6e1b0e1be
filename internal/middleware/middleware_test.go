package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/pharma-chain/pharma_chain/internal/gateway"
	"github.com/pharma-chain/pharma_chain/internal/logging"
)

type staticSession struct{ user *gateway.User }

func (s staticSession) Identity() *gateway.User { return s.user }

func TestAttemptLimitRejectsAfterMax(t *testing.T) {
	app := fiber.New()
	app.Post("/login", AttemptLimit(newRedis(t), "login", 2, logging.Discard()), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(fiber.MethodPost, "/login", strings.NewReader(`{"phone":"0912345678"}`))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}
	if statuses[0] != fiber.StatusOK || statuses[1] != fiber.StatusOK || statuses[2] != fiber.StatusTooManyRequests {
		t.Fatalf("unexpected statuses %v", statuses)
	}

	req := httptest.NewRequest(fiber.MethodPost, "/login", strings.NewReader(`{"phone":"0987654321"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("other phone must have its own counter, got %d", resp.StatusCode)
	}
}

func TestAttemptLimitWithoutRedisPasses(t *testing.T) {
	app := fiber.New()
	app.Post("/login", AttemptLimit(nil, "login", 1, nil), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/login", nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("expected 200 without redis, got %d", resp.StatusCode)
		}
	}
}

func TestRequireSession(t *testing.T) {
	for _, tc := range []struct {
		name string
		user *gateway.User
		want int
	}{
		{"anonymous", nil, fiber.StatusUnauthorized},
		{"logged in", &gateway.User{Phone: "0912345678"}, fiber.StatusOK},
	} {
		app := fiber.New()
		app.Get("/me", RequireSession(staticSession{tc.user}), func(c *fiber.Ctx) error {
			return c.SendString(IdentityFrom(c).Phone)
		})
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/me", nil))
		if err != nil {
			t.Fatalf("%s: app.Test: %v", tc.name, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, resp.StatusCode)
		}
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID(), Audit(logging.Discard()))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString(RequestIDFrom(c)) })

	req := httptest.NewRequest(fiber.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-42")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get(requestIDHeader) != "req-42" {
		t.Fatalf("expected request id echoed, got %q", resp.Header.Get(requestIDHeader))
	}

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/ping", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}
}

func TestAuditRendersHandlerErrors(t *testing.T) {
	app := fiber.New()
	app.Use(Audit(logging.Discard()))
	app.Get("/boom", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "teapot") })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/boom", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusTeapot {
		t.Fatalf("expected handler status, got %d", resp.StatusCode)
	}
}
