package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pharma-chain/pharma_chain/internal/auth"
	"github.com/pharma-chain/pharma_chain/internal/checkout"
	"github.com/pharma-chain/pharma_chain/internal/config"
	"github.com/pharma-chain/pharma_chain/internal/gateway"
	"github.com/pharma-chain/pharma_chain/internal/identity"
	"github.com/pharma-chain/pharma_chain/internal/ledger"
	"github.com/pharma-chain/pharma_chain/internal/metrics"
	"github.com/pharma-chain/pharma_chain/internal/middleware"
	"github.com/pharma-chain/pharma_chain/internal/notification"
	"github.com/pharma-chain/pharma_chain/internal/store"
	"github.com/pharma-chain/pharma_chain/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes. DB, SQLite
// and Cache are only required by the stores configured to use them.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	SQLite   *gorm.DB
	Cache    *redis.Client
	Logger   *slog.Logger
	Registry *prometheus.Registry
}

// Setup builds the session, registration and ledger services and wires
// their routes. The persisted session is restored before it returns.
func Setup(app *fiber.App, d Deps) error {
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	m := metrics.New(d.Registry)

	sessionBackend, err := sessionBackend(d)
	if err != nil {
		return err
	}
	ledgerRepo, err := ledgerRepository(d)
	if err != nil {
		return err
	}

	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	app.Use(recover.New())

	client := gateway.NewClient(d.Cfg.BackendURL, d.Cfg.BackendTimeout, d.Logger, m)
	sessionStore := store.New(sessionBackend)
	notifier := notification.NewLoggerNotifier(d.Logger)

	sessions := auth.NewManager(client, sessionStore, d.Logger, m)
	sessions.Subscribe(func(user *gateway.User) {
		msg := notification.Message{Kind: notification.KindSessionChanged, Body: "logged out"}
		if user != nil {
			msg.Destination = user.ID
			msg.Body = "logged in"
		}
		_ = notifier.Send(context.Background(), msg)
	})
	registration := identity.NewController(client, sessionStore, d.Logger,
		identity.WithTTL(d.Cfg.OTPTTL),
		identity.WithMetrics(m),
	)
	purchases := ledger.New(ledgerRepo, d.Logger, m)
	checkoutSvc := checkout.NewService(purchases, client, notifier, d.Logger)
	walletSvc := wallet.NewService(purchases)

	RegisterHealthRoutes(app, d, client)
	RegisterMetricsRoute(app, d.Registry)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterSessionRoutes(api, auth.NewHandler(sessions),
		middleware.AttemptLimit(d.Cache, "login", d.Cfg.LoginAttempts, d.Logger))
	RegisterRegistrationRoutes(api, identity.NewHandler(registration, sessions),
		middleware.AttemptLimit(d.Cache, "otp", d.Cfg.LoginAttempts, d.Logger))

	var idempotency fiber.Handler
	if d.Cache != nil {
		idempotency = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}
	RegisterTransactionRoutes(api, ledger.NewHandler(purchases), checkout.NewHandler(checkoutSvc), idempotency)

	RegisterWalletRoutes(api, wallet.NewHandler(walletSvc, sessions), middleware.RequireSession(sessions))

	ctx, cancel := context.WithTimeout(context.Background(), d.Cfg.BackendTimeout)
	defer cancel()
	if err := sessions.Restore(ctx); err != nil {
		d.Logger.Warn("session restore failed, continuing anonymous", slog.Any("error", err))
	}
	return nil
}

func sessionBackend(d Deps) (store.Backend, error) {
	switch d.Cfg.SessionStore {
	case config.StoreMemory:
		return store.NewMemoryBackend(), nil
	case config.StoreRedis:
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when SESSION_STORE=%s", config.StoreRedis)
		}
		return store.NewRedisBackend(d.Cache, d.Cfg.SessionNamespace), nil
	case config.StoreSQLite:
		if d.SQLite == nil {
			return nil, fmt.Errorf("sqlite is required when SESSION_STORE=%s", config.StoreSQLite)
		}
		return store.NewSQLiteBackend(d.SQLite)
	default:
		return nil, fmt.Errorf("unsupported session store %q", d.Cfg.SessionStore)
	}
}

func ledgerRepository(d Deps) (ledger.Repository, error) {
	switch d.Cfg.LedgerStore {
	case config.StoreMemory:
		return ledger.NewMemoryRepository(), nil
	case config.StoreSQLite:
		if d.SQLite == nil {
			return nil, fmt.Errorf("sqlite is required when LEDGER_STORE=%s", config.StoreSQLite)
		}
		return ledger.NewSQLiteRepository(d.SQLite)
	case config.StorePostgres:
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when LEDGER_STORE=%s", config.StorePostgres)
		}
		repo := ledger.NewPostgresRepository(d.DB)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported ledger store %q", d.Cfg.LedgerStore)
	}
}
