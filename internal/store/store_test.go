package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/pharma-chain/pharma_chain/internal/infra"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	db, err := infra.OpenSQLite(filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { infra.CloseSQLite(db) })
	sqliteBackend, err := NewSQLiteBackend(db)
	if err != nil {
		t.Fatalf("sqlite backend: %v", err)
	}

	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"redis":  NewRedisBackend(client, "test"),
		"sqlite": sqliteBackend,
	}
}

func TestStoreTokenSlot(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := New(backend)

			token, err := s.Token(ctx)
			if err != nil {
				t.Fatalf("token: %v", err)
			}
			if token != "" {
				t.Fatalf("expected empty token, got %q", token)
			}

			if err := s.SetToken(ctx, "first"); err != nil {
				t.Fatalf("set token: %v", err)
			}
			if err := s.SetToken(ctx, "second"); err != nil {
				t.Fatalf("overwrite token: %v", err)
			}
			if token, _ := s.Token(ctx); token != "second" {
				t.Fatalf("expected overwritten token, got %q", token)
			}

			if err := s.ClearToken(ctx); err != nil {
				t.Fatalf("clear token: %v", err)
			}
			if err := s.ClearToken(ctx); err != nil {
				t.Fatalf("second clear should be a no-op: %v", err)
			}
			if token, _ := s.Token(ctx); token != "" {
				t.Fatalf("expected token cleared, got %q", token)
			}
		})
	}
}

func TestStorePendingOTPSlot(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := New(backend)

			if _, ok, err := s.PendingOTP(ctx); err != nil || ok {
				t.Fatalf("expected no pending record, ok=%v err=%v", ok, err)
			}

			expires := time.Now().Add(5 * time.Minute)
			rec := PendingOTP{Phone: "0912345678", OTP: "482913", ExpiresAt: expires.UnixMilli()}
			if err := s.SavePendingOTP(ctx, rec); err != nil {
				t.Fatalf("save: %v", err)
			}

			got, ok, err := s.PendingOTP(ctx)
			if err != nil || !ok {
				t.Fatalf("expected pending record, ok=%v err=%v", ok, err)
			}
			if got != rec {
				t.Fatalf("expected %+v, got %+v", rec, got)
			}
			if got.ExpiredAt(expires.Add(-time.Second)) {
				t.Fatalf("record should be valid before expiry")
			}
			if !got.ExpiredAt(expires) {
				t.Fatalf("record should be expired at the expiry instant")
			}

			if err := s.ClearPendingOTP(ctx); err != nil {
				t.Fatalf("clear: %v", err)
			}
			if _, ok, _ := s.PendingOTP(ctx); ok {
				t.Fatalf("expected record cleared")
			}
		})
	}
}

func TestStoreDiscardsCorruptPendingOTP(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	if err := backend.Set(ctx, PendingOTPKey, "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s := New(backend)

	if _, ok, err := s.PendingOTP(ctx); err != nil || ok {
		t.Fatalf("expected corrupt record treated as absent, ok=%v err=%v", ok, err)
	}
	if _, err := backend.Get(ctx, PendingOTPKey); err != ErrNotFound {
		t.Fatalf("expected corrupt record removed, got %v", err)
	}
}

func TestStoreSlotsAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend())

	if err := s.SetToken(ctx, "tok"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	if err := s.SavePendingOTP(ctx, PendingOTP{Phone: "0912345678", OTP: "111111", ExpiresAt: time.Now().Add(time.Minute).UnixMilli()}); err != nil {
		t.Fatalf("save otp: %v", err)
	}
	if err := s.ClearPendingOTP(ctx); err != nil {
		t.Fatalf("clear otp: %v", err)
	}
	if token, _ := s.Token(ctx); token != "tok" {
		t.Fatalf("clearing the otp slot must not touch the token, got %q", token)
	}
}
