package devbackend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func register(t *testing.T, svc *Service, phone, password string) {
	t.Helper()
	ctx := context.Background()
	out, err := svc.Start(ctx, phone)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	temp, err := svc.VerifyOTP(ctx, phone, out.OTP)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := svc.SetPassword(ctx, phone, password, temp); err != nil {
		t.Fatalf("set password: %v", err)
	}
}

func TestRegisterLoginAndMe(t *testing.T) {
	svc := NewService(NewMemoryRepository(), "secret", nil)
	ctx := context.Background()
	register(t, svc, "0912345678", "hunter22")

	out, err := svc.Start(ctx, "0912345678")
	if err != nil {
		t.Fatalf("start again: %v", err)
	}
	if out.Action != "LOGIN" || out.OTP != "" {
		t.Fatalf("expected LOGIN action for existing account, got %+v", out)
	}

	token, err := svc.Login(ctx, "0912345678", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	user, err := svc.Me(ctx, token)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if user.Phone != "0912345678" || !strings.HasPrefix(user.WalletAddress, "0x") || len(user.WalletAddress) != 42 {
		t.Fatalf("unexpected user %+v", user)
	}

	if _, err := svc.Login(ctx, "0912345678", "wrongpass"); err == nil {
		t.Fatalf("expected wrong password to be rejected")
	}
}

func TestVerifyOTPAttemptLimit(t *testing.T) {
	svc := NewService(NewMemoryRepository(), "secret", nil)
	ctx := context.Background()
	out, err := svc.Start(ctx, "0912345678")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	wrong := "000000"
	if out.OTP == wrong {
		wrong = "111111"
	}
	for i := 0; i < maxOTPAttempts; i++ {
		if _, err := svc.VerifyOTP(ctx, "0912345678", wrong); err == nil {
			t.Fatalf("attempt %d: expected wrong code rejected", i)
		}
	}
	_, err = svc.VerifyOTP(ctx, "0912345678", out.OTP)
	var rejection *Error
	if !errors.As(err, &rejection) || rejection.Status != http.StatusBadRequest {
		t.Fatalf("expected attempt limit rejection, got %v", err)
	}
}

func TestVerifyOTPExpired(t *testing.T) {
	svc := NewService(NewMemoryRepository(), "secret", nil)
	now := time.Now()
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	out, err := svc.Start(ctx, "0912345678")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	now = now.Add(otpTTL + time.Second)
	if _, err := svc.VerifyOTP(ctx, "0912345678", out.OTP); err == nil {
		t.Fatalf("expected expired otp to be rejected")
	}
}

func TestSetPasswordRejectsForeignTempToken(t *testing.T) {
	svc := NewService(NewMemoryRepository(), "secret", nil)
	ctx := context.Background()
	out, _ := svc.Start(ctx, "0912345678")
	temp, err := svc.VerifyOTP(ctx, "0912345678", out.OTP)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	err = svc.SetPassword(ctx, "0987654321", "hunter22", temp)
	var rejection *Error
	if !errors.As(err, &rejection) || rejection.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for temp token of another phone, got %v", err)
	}
}

func TestHTTPErrorsCarryDetail(t *testing.T) {
	app := NewApp(NewService(NewMemoryRepository(), "secret", nil))

	req := httptest.NewRequest(fiber.MethodPost, "/api/login", strings.NewReader(`{"phone":"0912345678","password":"x"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	var payload map[string]string
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["detail"] == "" {
		t.Fatalf("expected detail in error body, got %s", body)
	}
}

func TestHTTPPurchaseAcceptsStringPrices(t *testing.T) {
	svc := NewService(NewMemoryRepository(), "secret", nil)
	app := NewApp(svc)

	body := `{"customer":"0xabc","medicine":[{"name":"Paracetamol","qty":2}],"price_eth":"0.05"}`
	req := httptest.NewRequest(fiber.MethodPost, "/api/purchase", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	now := time.Now().UTC()
	total, purchases, err := svc.Revenue(context.Background(), int(now.Month()), now.Year())
	if err != nil {
		t.Fatalf("revenue: %v", err)
	}
	if len(purchases) != 1 || total != 0.05 {
		t.Fatalf("expected one purchase totalling 0.05, got %d / %v", len(purchases), total)
	}
}
