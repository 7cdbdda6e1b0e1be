package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	// TokenKey holds the access token slot.
	TokenKey = "pharma_access_token"
	// PendingOTPKey holds the pending OTP record slot.
	PendingOTPKey = "pharma_otp_temp"
)

// ErrNotFound is returned by backends when a key holds no value.
var ErrNotFound = errors.New("key not found")

// Backend is a durable key/value store.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// PendingOTP is the persisted state of an in-progress registration.
// ExpiresAt is stored as unix milliseconds.
type PendingOTP struct {
	Phone     string `json:"phone"`
	OTP       string `json:"otp"`
	ExpiresAt int64  `json:"expires_at"`
	Verified  bool   `json:"verified,omitempty"`
	TempToken string `json:"temp_token,omitempty"`
}

// Expiry returns the absolute expiry instant.
func (p PendingOTP) Expiry() time.Time {
	return time.UnixMilli(p.ExpiresAt)
}

// ExpiredAt reports whether the record is no longer usable at now.
func (p PendingOTP) ExpiredAt(now time.Time) bool {
	return !now.Before(p.Expiry())
}

// Store exposes the two session slots on top of a Backend. Each slot holds
// at most one value; writes overwrite.
type Store struct {
	mu      sync.Mutex
	backend Backend
}

// New wraps a backend into a session store.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Token returns the stored access token, or "" when absent.
func (s *Store) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, err := s.backend.Get(ctx, TokenKey)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return token, nil
}

// SetToken replaces the stored access token. An empty token clears the slot.
func (s *Store) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return s.ClearToken(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// ClearToken removes the stored access token. Clearing an empty slot is not an error.
func (s *Store) ClearToken(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Delete(ctx, TokenKey); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// PendingOTP loads the pending OTP record. The boolean is false when no
// record is stored. A record that cannot be decoded is discarded and
// reported as absent.
func (s *Store) PendingOTP(ctx context.Context) (PendingOTP, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := s.backend.Get(ctx, PendingOTPKey)
	if errors.Is(err, ErrNotFound) {
		return PendingOTP{}, false, nil
	}
	if err != nil {
		return PendingOTP{}, false, fmt.Errorf("read pending otp: %w", err)
	}
	var rec PendingOTP
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.Phone == "" {
		if delErr := s.backend.Delete(ctx, PendingOTPKey); delErr != nil && !errors.Is(delErr, ErrNotFound) {
			return PendingOTP{}, false, fmt.Errorf("discard corrupt pending otp: %w", delErr)
		}
		return PendingOTP{}, false, nil
	}
	return rec, true, nil
}

// SavePendingOTP replaces the pending OTP record.
func (s *Store) SavePendingOTP(ctx context.Context, rec PendingOTP) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode pending otp: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Set(ctx, PendingOTPKey, string(payload)); err != nil {
		return fmt.Errorf("write pending otp: %w", err)
	}
	return nil
}

// ClearPendingOTP removes the pending OTP record.
func (s *Store) ClearPendingOTP(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Delete(ctx, PendingOTPKey); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("clear pending otp: %w", err)
	}
	return nil
}
