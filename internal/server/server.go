package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pharma-chain/pharma_chain/internal/config"
	"github.com/pharma-chain/pharma_chain/internal/routes"
)

// Server wraps the Fiber application serving the local session API.
type Server struct {
	app *fiber.App
	cfg config.Config
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(deps routes.Deps) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:               deps.Cfg.AppName,
		DisableStartupMessage: !deps.Cfg.IsDev(),
		ErrorHandler:          routes.ErrorHandler(deps.Logger),
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	if err := routes.Setup(app, deps); err != nil {
		return nil, err
	}
	return &Server{app: app, cfg: deps.Cfg}, nil
}

// App exposes the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the HTTP server.
func (s *Server) Listen(logger *slog.Logger) error {
	logger.Info("listening", slog.String("addr", s.cfg.Address()), slog.String("backend", s.cfg.BackendURL))
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
