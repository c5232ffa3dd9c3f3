package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// Pinger reports backing-store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler exposes liveness and readiness probes.
type HealthHandler struct {
	redis Pinger
}

// NewHealthHandler constructs handler.
func NewHealthHandler(redis Pinger) *HealthHandler {
	return &HealthHandler{redis: redis}
}

// Live GET /health/live.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "status": "ok"})
}

// Ready GET /health/ready.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	if h.redis != nil {
		if err := h.redis.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"success": false,
				"message": "redis unreachable",
			})
		}
	}
	return c.JSON(fiber.Map{"success": true, "status": "ready"})
}
