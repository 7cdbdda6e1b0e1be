package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pharma-chain/pharma_chain/internal/gateway"
)

// RegisterHealthRoutes adds a readiness endpoint covering every configured
// dependency. An unreachable backend degrades the status without failing it.
func RegisterHealthRoutes(app *fiber.App, d Deps, client *gateway.Client) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		checks := fiber.Map{}
		status := http.StatusOK
		if d.DB != nil {
			checks["postgres"] = result(d.DB.Ping(ctx))
			if checks["postgres"] != "ok" {
				status = http.StatusServiceUnavailable
			}
		}
		if d.Cache != nil {
			checks["redis"] = result(d.Cache.Ping(ctx).Err())
			if checks["redis"] != "ok" {
				status = http.StatusServiceUnavailable
			}
		}
		if d.SQLite != nil {
			sqlDB, err := d.SQLite.DB()
			if err == nil {
				err = sqlDB.PingContext(ctx)
			}
			checks["sqlite"] = result(err)
			if checks["sqlite"] != "ok" {
				status = http.StatusServiceUnavailable
			}
		}
		checks["backend"] = result(client.Health(ctx))

		return c.Status(status).JSON(fiber.Map{
			"status":    checks,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}

// RegisterMetricsRoute exposes reg in the Prometheus text format.
func RegisterMetricsRoute(app *fiber.App, reg *prometheus.Registry) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
}

func result(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}
