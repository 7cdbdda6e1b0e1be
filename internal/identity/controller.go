package identity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pharma-chain/pharma_chain/internal/logging"
	"github.com/pharma-chain/pharma_chain/internal/metrics"
	"github.com/pharma-chain/pharma_chain/internal/store"
)

// DefaultOTPTTL is how long a pending OTP request stays verifiable locally.
const DefaultOTPTTL = 5 * time.Minute

// Controller drives the request, verify, set-password registration sequence.
// The pending request lives in the session store; all reads and writes of
// that slot go through the controller, one step at a time.
type Controller struct {
	mu        sync.Mutex
	backend   Backend
	store     *store.Store
	logger    *slog.Logger
	metrics   *metrics.Metrics
	ttl       time.Duration
	now       func() time.Time
	completed bool
}

// Option customises a Controller.
type Option func(*Controller)

// WithClock overrides the wall clock used for expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithTTL overrides the pending request lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *Controller) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMetrics records flow transitions on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// NewController builds a registration flow controller.
func NewController(backend Backend, st *store.Store, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = logging.Discard()
	}
	c := &Controller{
		backend: backend,
		store:   st,
		logger:  logger.With(slog.String("component", "registration")),
		ttl:     DefaultOTPTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestOTP asks the backend to issue a code for phone. A new request
// replaces any pending one, including one for a different phone.
func (c *Controller) RequestOTP(ctx context.Context, phone string) (RequestResult, error) {
	if err := validatePhone(phone); err != nil {
		return RequestResult{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.backend.StartRegistration(ctx, phone)
	if err != nil {
		c.logger.Warn("otp request failed", slog.String("phone", logging.MaskPhone(phone)), slog.Any("error", err))
		return RequestResult{}, err
	}
	if res.Action == ActionLogin {
		c.logger.Info("account exists, login required", slog.String("phone", logging.MaskPhone(phone)))
		return RequestResult{Action: ActionLogin, Phone: phone, Message: res.Message}, nil
	}

	previous, ok, err := c.store.PendingOTP(ctx)
	if err != nil {
		return RequestResult{}, err
	}
	now := c.now()
	if ok && previous.Phone != phone && !previous.ExpiredAt(now) {
		c.logger.Warn("replacing pending registration for another phone",
			slog.String("previous", logging.MaskPhone(previous.Phone)),
			slog.String("phone", logging.MaskPhone(phone)),
		)
	}

	expiresAt := now.Add(c.ttl)
	rec := store.PendingOTP{Phone: phone, OTP: res.OTPDisplayed, ExpiresAt: expiresAt.UnixMilli()}
	if err := c.store.SavePendingOTP(ctx, rec); err != nil {
		return RequestResult{}, err
	}
	c.completed = false
	c.transition(StateOTPRequested)
	c.logger.Info("otp requested", slog.String("phone", logging.MaskPhone(phone)))

	return RequestResult{
		Action:    ActionVerifyOTP,
		Phone:     phone,
		Code:      res.OTPDisplayed,
		Message:   res.Message,
		ExpiresAt: time.UnixMilli(rec.ExpiresAt),
	}, nil
}

// VerifyOTP submits code for the pending request and returns the temporary
// token. A backend rejection leaves the request in place so the caller can
// retry before expiry.
func (c *Controller) VerifyOTP(ctx context.Context, phone, code string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok, err := c.store.PendingOTP(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoPendingOTP
	}
	if rec.Phone != phone {
		return "", ErrPhoneMismatch
	}
	if rec.ExpiredAt(c.now()) {
		if err := c.store.ClearPendingOTP(ctx); err != nil {
			return "", err
		}
		c.transition(StateIdle)
		c.logger.Info("pending otp expired", slog.String("phone", logging.MaskPhone(phone)))
		return "", ErrOTPExpired
	}
	if rec.Verified {
		return "", ErrOutOfOrder
	}
	if err := validateCode(code); err != nil {
		return "", err
	}

	tempToken, err := c.backend.VerifyOTP(ctx, phone, code)
	if err != nil {
		c.logger.Info("otp rejected", slog.String("phone", logging.MaskPhone(phone)), slog.Any("error", err))
		return "", err
	}

	rec.Verified = true
	rec.TempToken = tempToken
	if err := c.store.SavePendingOTP(ctx, rec); err != nil {
		return "", err
	}
	c.transition(StateOTPVerified)
	return tempToken, nil
}

// SetPassword creates the account for a verified request and returns the
// backend's message. It does not log in.
func (c *Controller) SetPassword(ctx context.Context, phone, password, tempToken string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok, err := c.store.PendingOTP(ctx)
	if err != nil {
		return "", err
	}
	if !ok || !rec.Verified || rec.TempToken == "" || rec.TempToken != tempToken || rec.Phone != phone {
		return "", ErrInvalidToken
	}
	if err := validatePassword(password); err != nil {
		return "", err
	}

	msg, err := c.backend.SetPassword(ctx, phone, password, tempToken)
	if err != nil {
		c.logger.Warn("set password failed", slog.String("phone", logging.MaskPhone(phone)), slog.Any("error", err))
		return "", err
	}

	if err := c.store.ClearPendingOTP(ctx); err != nil {
		return "", err
	}
	c.completed = true
	c.transition(StateCompleted)
	c.logger.Info("registration completed", slog.String("phone", logging.MaskPhone(phone)))
	return msg, nil
}

// Reset abandons any pending request and returns the flow to idle.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.ClearPendingOTP(ctx); err != nil {
		return err
	}
	c.completed = false
	c.transition(StateIdle)
	return nil
}

// Status reports the current flow position. An expired request reports
// idle; it is discarded by the next verification attempt.
func (c *Controller) Status(ctx context.Context) (Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok, err := c.store.PendingOTP(ctx)
	if err != nil {
		return Status{}, err
	}
	if ok && rec.ExpiredAt(c.now()) {
		return Status{State: StateIdle}, nil
	}
	if !ok {
		if c.completed {
			return Status{State: StateCompleted}, nil
		}
		return Status{State: StateIdle}, nil
	}
	st := Status{State: StateOTPRequested, Phone: rec.Phone, ExpiresAt: rec.Expiry()}
	if rec.Verified {
		st.State = StateOTPVerified
	}
	return st, nil
}

func (c *Controller) transition(to State) {
	c.metrics.RegistrationTransition(to.String())
}
