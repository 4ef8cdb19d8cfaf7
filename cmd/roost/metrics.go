package main

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/birbparty/roost/internal/telemetry"
)

// metricsServer exposes the SDK's Prometheus metrics while a command runs,
// which is mostly useful for long uploads and scripted load tests.
type metricsServer struct {
	app *fiber.App
}

func startMetricsServer(addr string, g prometheus.Gatherer) *metricsServer {
	app := fiber.New(fiber.Config{
		AppName:               "roost-cli metrics",
		DisableStartupMessage: true,
		ReadTimeout:           5 * time.Second,
		WriteTimeout:          5 * time.Second,
	})
	app.Use(recover.New())
	app.Get("/metrics", adaptor.HTTPHandler(telemetry.MetricsHandler(g)))
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	go func() {
		if err := app.Listen(addr); err != nil {
			telemetry.L().WithError(err).WithField("addr", addr).Warn("Metrics server stopped")
		}
	}()
	telemetry.L().WithField("addr", addr).Info("Serving metrics")
	return &metricsServer{app: app}
}

func (m *metricsServer) shutdown() {
	if err := m.app.ShutdownWithTimeout(2 * time.Second); err != nil {
		telemetry.L().WithError(err).Warn("Failed to stop metrics server")
	}
}
