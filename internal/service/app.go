// Package service exposes bakes over HTTP.
package service

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// NewApp wires the bake routes and the global middleware.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: h.cfg.BakeTimeout + 30*time.Second,
		BodyLimit:    256 << 20,
		AppName:      "Point Cache Bake Service",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	// ============================================================
	// Health Check Routes
	// ============================================================

	app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})

	app.Get("/health/ready", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ready"})
	})

	// ============================================================
	// Bake Routes
	// ============================================================

	app.Post("/bake", h.Bake)
	app.Get("/bakes", h.ListBakes)
	app.Get("/bakes/:id", h.GetBake)

	return app
}
