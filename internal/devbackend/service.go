package devbackend

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"

	"github.com/pharma-chain/pharma_chain/internal/logging"
)

const (
	otpTTL          = 5 * time.Minute
	tempTokenTTL    = 30 * time.Minute
	accessTokenTTL  = 24 * time.Hour
	maxOTPAttempts  = 3
	minPasswordSize = 6
)

var phonePattern = regexp.MustCompile(`^\d{10,11}$`)

// Error is a rejection surfaced to clients as {"detail": ...}.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string { return e.Detail }

func reject(status int, detail string) *Error {
	return &Error{Status: status, Detail: detail}
}

// StartOutcome is the result of a start-registration call.
type StartOutcome struct {
	Action  string
	Message string
	OTP     string
}

// Service implements the storefront account backend.
type Service struct {
	repo   Repository
	otps   *cache.Cache
	tokens tokenIssuer
	logger *slog.Logger
	mu     sync.Mutex
	now    func() time.Time
}

// NewService builds the reference backend service signing tokens with secret.
func NewService(repo Repository, secret string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Service{
		repo:   repo,
		otps:   cache.New(otpTTL, time.Minute),
		logger: logger,
		now:    time.Now,
	}
	s.tokens = tokenIssuer{
		secret:    []byte(secret),
		accessTTL: accessTokenTTL,
		tempTTL:   tempTokenTTL,
		now:       func() time.Time { return s.now() },
	}
	return s
}

// Start issues an OTP for phone unless the account already exists.
func (s *Service) Start(ctx context.Context, phone string) (StartOutcome, error) {
	if !phonePattern.MatchString(phone) {
		return StartOutcome{}, reject(http.StatusBadRequest, "invalid phone number")
	}
	if _, err := s.repo.FindByPhone(ctx, phone); err == nil {
		return StartOutcome{Action: "LOGIN", Message: "account already exists"}, nil
	}

	code, err := randomDigits(6)
	if err != nil {
		return StartOutcome{}, err
	}

	s.mu.Lock()
	s.otps.Set(phone, &otpSession{Code: code, ExpiresAt: s.now().Add(otpTTL)}, otpTTL)
	s.mu.Unlock()

	s.logger.Info("otp issued", slog.String("phone", logging.MaskPhone(phone)))
	return StartOutcome{Action: "VERIFY_OTP", Message: "Your OTP code: " + code, OTP: code}, nil
}

// VerifyOTP checks code and returns a temp token allowing set-password.
func (s *Service) VerifyOTP(_ context.Context, phone, code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.otps.Get(phone)
	if !ok {
		return "", reject(http.StatusNotFound, "verification session not found")
	}
	session := v.(*otpSession)

	if !s.now().Before(session.ExpiresAt) {
		s.otps.Delete(phone)
		return "", reject(http.StatusBadRequest, "OTP expired")
	}
	if session.Attempts >= maxOTPAttempts {
		s.otps.Delete(phone)
		return "", reject(http.StatusBadRequest, "too many attempts, request a new OTP")
	}
	if session.Code != code {
		session.Attempts++
		return "", reject(http.StatusUnauthorized, "wrong OTP code")
	}

	s.otps.Delete(phone)
	token, err := s.tokens.temp(phone)
	if err != nil {
		return "", err
	}
	return token, nil
}

// SetPassword creates the account authorised by tempToken.
func (s *Service) SetPassword(ctx context.Context, phone, password, tempToken string) error {
	if len(password) < minPasswordSize {
		return reject(http.StatusBadRequest, fmt.Sprintf("password must be at least %d characters", minPasswordSize))
	}
	if !phonePattern.MatchString(phone) {
		return reject(http.StatusBadRequest, "invalid phone number")
	}
	if _, err := s.repo.FindByPhone(ctx, phone); err == nil {
		return reject(http.StatusBadRequest, "phone number already registered")
	}

	claims, err := s.tokens.parseTemp(tempToken)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return reject(http.StatusUnauthorized, "token expired")
		}
		return reject(http.StatusUnauthorized, "invalid token")
	}
	if claims.Phone != phone {
		return reject(http.StatusUnauthorized, "invalid token")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	wallet, err := randomAddress()
	if err != nil {
		return err
	}

	user := User{
		ID:            uuid.NewString(),
		Phone:         phone,
		PasswordHash:  hash,
		WalletAddress: wallet,
		Role:          roleAdmin,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, errUserExists) {
			return reject(http.StatusBadRequest, "phone number already registered")
		}
		return err
	}
	s.logger.Info("account created", slog.String("user_id", user.ID), slog.String("phone", logging.MaskPhone(phone)))
	return nil
}

// Login verifies credentials and issues an access token.
func (s *Service) Login(ctx context.Context, phone, password string) (string, error) {
	user, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		return "", reject(http.StatusUnauthorized, "invalid login credentials")
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return "", reject(http.StatusUnauthorized, "invalid login credentials")
	}
	return s.tokens.access(user)
}

// Me resolves the account behind an access token.
func (s *Service) Me(ctx context.Context, token string) (User, error) {
	claims, err := s.tokens.parseAccess(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return User{}, reject(http.StatusUnauthorized, "token expired")
		}
		return User{}, reject(http.StatusUnauthorized, "invalid token")
	}
	user, err := s.repo.FindByID(ctx, claims.Subject)
	if err != nil {
		return User{}, reject(http.StatusUnauthorized, "user does not exist")
	}
	return user, nil
}

// RecordPurchase stores a purchase reported by a client.
func (s *Service) RecordPurchase(ctx context.Context, p Purchase) error {
	if len(p.Medicine) == 0 {
		return reject(http.StatusBadRequest, "missing transaction details")
	}
	if p.Customer == "" {
		p.Customer = "unknown"
	}
	if p.Status == "" {
		p.Status = "completed"
	}
	p.Timestamp = s.now().UTC()
	return s.repo.AddPurchase(ctx, p)
}

// Revenue sums purchases recorded during the given month.
func (s *Service) Revenue(ctx context.Context, month, year int) (float64, []Purchase, error) {
	if month < 1 || month > 12 {
		return 0, nil, reject(http.StatusBadRequest, "month must be between 1 and 12")
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	purchases, err := s.repo.PurchasesBetween(ctx, from, to)
	if err != nil {
		return 0, nil, err
	}
	var total float64
	for _, p := range purchases {
		total += p.PriceETH
	}
	return total, purchases, nil
}

func randomDigits(n int) (string, error) {
	out := make([]byte, n)
	for i := range out {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		out[i] = byte('0' + d.Int64())
	}
	return string(out), nil
}

func randomAddress() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(buf), nil
}
