package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pharma-chain/pharma_chain/internal/gateway"
	"github.com/pharma-chain/pharma_chain/internal/logging"
	"github.com/pharma-chain/pharma_chain/internal/metrics"
	"github.com/pharma-chain/pharma_chain/internal/store"
)

// ErrInvalidCredentials is returned when the backend refuses a login.
var ErrInvalidCredentials = errors.New("invalid login credentials")

// Backend is the part of the backend gateway the session needs.
type Backend interface {
	Login(ctx context.Context, phone, password string) (string, error)
	Me(ctx context.Context, token string) (gateway.User, error)
}

// Observer is called with the new identity every time it changes. A nil
// user means the session is anonymous. Observers run synchronously and must
// not call Login, Logout or RefreshIdentity.
type Observer func(user *gateway.User)

// Manager owns the access token and the identity derived from it. The
// identity is refreshed every time the token changes and cannot be set
// directly.
type Manager struct {
	mu      sync.Mutex
	backend Backend
	store   *store.Store
	logger  *slog.Logger
	metrics *metrics.Metrics

	idMu      sync.RWMutex
	identity  *gateway.User
	observers map[int]Observer
	nextID    int
}

// NewManager builds a session manager over st.
func NewManager(backend Backend, st *store.Store, logger *slog.Logger, m *metrics.Metrics) *Manager {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{
		backend:   backend,
		store:     st,
		logger:    logger.With(slog.String("component", "session")),
		metrics:   m,
		observers: make(map[int]Observer),
	}
}

// Subscribe registers fn for identity changes and returns a function that
// removes it.
func (m *Manager) Subscribe(fn Observer) func() {
	m.idMu.Lock()
	defer m.idMu.Unlock()
	id := m.nextID
	m.nextID++
	m.observers[id] = fn
	return func() {
		m.idMu.Lock()
		defer m.idMu.Unlock()
		delete(m.observers, id)
	}
}

// Identity returns the cached identity, or nil when anonymous.
func (m *Manager) Identity() *gateway.User {
	m.idMu.RLock()
	defer m.idMu.RUnlock()
	return m.identity.Clone()
}

// Login exchanges credentials for a token and stores it. On failure the
// stored token is left untouched. Failures wrap ErrInvalidCredentials when
// the backend answered, gateway.ErrUnreachable when it did not.
func (m *Manager) Login(ctx context.Context, phone, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, err := m.backend.Login(ctx, phone, password)
	if err != nil {
		var berr *gateway.BackendError
		if errors.As(err, &berr) {
			m.logger.Info("login refused", slog.String("phone", logging.MaskPhone(phone)), slog.Int("status", berr.Status))
			return fmt.Errorf("%w: %w", ErrInvalidCredentials, berr)
		}
		m.logger.Warn("login failed", slog.String("phone", logging.MaskPhone(phone)), slog.Any("error", err))
		return err
	}

	if err := m.store.SetToken(ctx, token); err != nil {
		return err
	}
	m.metrics.SessionChange("login")
	m.logger.Info("logged in", slog.String("phone", logging.MaskPhone(phone)))

	if _, err := m.refreshLocked(ctx); err != nil {
		m.logger.Warn("identity refresh after login failed", slog.Any("error", err))
	}
	return nil
}

// Logout clears the token and the identity. Calling it without a session is
// not an error. The identity is cleared even when the token cannot be.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.ClearToken(ctx); err != nil {
		m.setIdentity(nil)
		return err
	}
	m.metrics.SessionChange("logout")
	_, err := m.refreshLocked(ctx)
	return err
}

// RefreshIdentity revalidates the stored token against the backend. A token
// the backend rejects as unauthorized is cleared. Any other failure keeps
// the token, leaves the identity absent and is returned.
func (m *Manager) RefreshIdentity(ctx context.Context) (*gateway.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshLocked(ctx)
}

// Restore loads the session persisted by a previous run.
func (m *Manager) Restore(ctx context.Context) error {
	user, err := m.RefreshIdentity(ctx)
	if err != nil {
		return err
	}
	if user != nil {
		m.logger.Info("session restored", slog.String("user_id", user.ID))
	}
	return nil
}

func (m *Manager) refreshLocked(ctx context.Context) (*gateway.User, error) {
	token, err := m.store.Token(ctx)
	if err != nil {
		m.setIdentity(nil)
		return nil, err
	}
	if token == "" {
		m.setIdentity(nil)
		return nil, nil
	}

	user, err := m.backend.Me(ctx, token)
	if err != nil {
		m.setIdentity(nil)
		var berr *gateway.BackendError
		if errors.As(err, &berr) && berr.Unauthorized() {
			m.logger.Info("stored token rejected, clearing session", slog.String("detail", berr.Detail))
			m.metrics.SessionChange("rejected")
			if clearErr := m.store.ClearToken(ctx); clearErr != nil {
				return nil, clearErr
			}
			return nil, nil
		}
		return nil, err
	}

	m.setIdentity(&user)
	return m.Identity(), nil
}

func (m *Manager) setIdentity(user *gateway.User) {
	m.idMu.Lock()
	if m.identity == nil && user == nil {
		m.idMu.Unlock()
		return
	}
	m.identity = user.Clone()
	observers := make([]Observer, 0, len(m.observers))
	for _, fn := range m.observers {
		observers = append(observers, fn)
	}
	m.idMu.Unlock()

	for _, fn := range observers {
		fn(user.Clone())
	}
}
