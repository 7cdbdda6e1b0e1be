package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName          = "PharmaChain"
	defaultAppEnv           = "development"
	defaultPort             = "8080"
	defaultLogLevel         = "info"
	defaultBackendURL       = "http://localhost:8000"
	defaultBackendTimeout   = 10 * time.Second
	defaultOTPTTL           = 5 * time.Minute
	defaultShutdownDelay    = 10 * time.Second
	defaultIdempotencyTTL   = 24 * time.Hour
	defaultSQLitePath       = "pharmachain.db"
	defaultSessionNamespace = "default"
	defaultLoginAttempts    = 5
	defaultDevBackendSecret = "dev-secret"
	defaultDevBackendPort   = "8000"

	// StoreMemory keeps state in process memory only.
	StoreMemory = "memory"
	// StoreRedis keeps session slots in Redis.
	StoreRedis = "redis"
	// StoreSQLite keeps state in a local SQLite file.
	StoreSQLite = "sqlite"
	// StorePostgres keeps the ledger in PostgreSQL.
	StorePostgres = "postgres"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName          string
	AppEnv           string
	Port             string
	LogLevel         string
	BackendURL       string
	BackendTimeout   time.Duration
	OTPTTL           time.Duration
	SessionStore     string
	LedgerStore      string
	SQLitePath       string
	RedisURL         string
	DatabaseURL      string
	SessionNamespace string
	LoginAttempts    int
	ShutdownPeriod   time.Duration
	IdempotencyTTL   time.Duration
	DevBackendSecret string
	DevBackendPort   string
}

// Load reads configuration values from the environment and populates a Config instance.
// A .env file in the working directory is applied first when present; real
// environment variables win over it.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:          getEnv("APP_NAME", defaultAppName),
		AppEnv:           getEnv("APP_ENV", defaultAppEnv),
		Port:             getEnv("PORT", defaultPort),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		BackendURL:       strings.TrimRight(getEnv("BACKEND_URL", defaultBackendURL), "/"),
		SessionStore:     strings.ToLower(getEnv("SESSION_STORE", StoreSQLite)),
		LedgerStore:      strings.ToLower(getEnv("LEDGER_STORE", StoreSQLite)),
		SQLitePath:       getEnv("SQLITE_PATH", defaultSQLitePath),
		RedisURL:         os.Getenv("REDIS_URL"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		SessionNamespace: getEnv("SESSION_NAMESPACE", defaultSessionNamespace),
		LoginAttempts:    defaultLoginAttempts,
		DevBackendSecret: getEnv("DEV_BACKEND_SECRET", defaultDevBackendSecret),
		DevBackendPort:   strings.TrimPrefix(getEnv("DEV_BACKEND_PORT", defaultDevBackendPort), ":"),
	}

	var err error
	if cfg.BackendTimeout, err = durationFromEnv("BACKEND_TIMEOUT", defaultBackendTimeout); err != nil {
		return Config{}, err
	}
	if cfg.OTPTTL, err = durationFromEnv("OTP_TTL", defaultOTPTTL); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownPeriod, err = durationFromEnv("SHUTDOWN_TIMEOUT", defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationFromEnv("IDEMPOTENCY_TTL", defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("LOGIN_ATTEMPTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOGIN_ATTEMPTS_PER_MINUTE: %w", err)
		}
		cfg.LoginAttempts = n
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.SessionStore {
	case StoreMemory, StoreSQLite:
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL must be set when SESSION_STORE=%s", StoreRedis)
		}
	default:
		return fmt.Errorf("unsupported SESSION_STORE %q", c.SessionStore)
	}

	switch c.LedgerStore {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set when LEDGER_STORE=%s", StorePostgres)
		}
	default:
		return fmt.Errorf("unsupported LEDGER_STORE %q", c.LedgerStore)
	}

	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL must be set")
	}
	if c.OTPTTL <= 0 {
		return fmt.Errorf("OTP_TTL must be positive")
	}
	if !c.IsDev() && (c.SessionStore == StoreMemory || c.LedgerStore == StoreMemory) {
		return fmt.Errorf("memory stores are not durable and only allowed when APP_ENV is development")
	}
	return nil
}

// IsDev reports whether the application runs in a development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// durationFromEnv reads KEY_SECONDS as whole seconds, falling back to KEY as
// a Go duration string.
func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	secondsKey := key + "_SECONDS"
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return d, nil
	}
	return fallback, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
