package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const healthCheckTimeout = 2 * time.Second

type HealthHandler struct {
	// Ping checks the database. A nil Ping reports the API alone.
	Ping      func(ctx context.Context) error
	startedAt time.Time
}

func NewHealthHandler(ping func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{Ping: ping, startedAt: time.Now()}
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	body := fiber.Map{
		"success":   true,
		"status":    "ok",
		"message":   "IPO Backend API is running",
		"timestamp": time.Now().Unix(),
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
	}
	if h.Ping == nil {
		return c.JSON(body)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), healthCheckTimeout)
	defer cancel()
	if err := h.Ping(ctx); err != nil {
		logrus.WithError(err).Warn("Health check: database unreachable")
		body["success"] = false
		body["status"] = "degraded"
		body["database"] = "disconnected"
		return c.Status(fiber.StatusServiceUnavailable).JSON(body)
	}
	body["database"] = "connected"
	return c.JSON(body)
}
