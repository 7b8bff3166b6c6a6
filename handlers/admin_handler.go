package handlers

import (
	"context"
	"database/sql"
	"time"

	"github.com/fenilmodi00/ipo-subscription-backend/middleware"
	"github.com/fenilmodi00/ipo-subscription-backend/services"
	"github.com/fenilmodi00/ipo-subscription-backend/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// IPOSyncRunner runs one IPO calendar sync.
type IPOSyncRunner interface {
	Sync(ctx context.Context) (*services.SyncResult, error)
}

type AdminHandler struct {
	Syncer  IPOSyncRunner
	Metrics *shared.MetricsRegistry
	DB      *sql.DB
}

func NewAdminHandler(syncer IPOSyncRunner, metrics *shared.MetricsRegistry, db *sql.DB) *AdminHandler {
	return &AdminHandler{
		Syncer:  syncer,
		Metrics: metrics,
		DB:      db,
	}
}

// SyncIPOs manually triggers the IPO calendar sync.
func (h *AdminHandler) SyncIPOs(c *fiber.Ctx) error {
	principal, _ := middleware.CurrentPrincipal(c)
	logrus.WithField("admin", principal.UserID).Info("Manual IPO sync triggered via admin endpoint")

	startTime := time.Now()
	result, err := h.Syncer.Sync(c.UserContext())
	if err != nil {
		logrus.WithError(err).Error("Manual IPO sync failed")
		status := shared.HTTPStatusForError(err)
		return c.Status(status).JSON(fiber.Map{
			"success": false,
			"message": "Failed to sync IPO data",
			"error":   shared.PublicMessage(err),
		})
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"message":  "IPO data synced successfully",
		"data":     result,
		"duration": time.Since(startTime).String(),
	})
}

// GetMetrics returns the in-process service, upstream and pool metrics.
func (h *AdminHandler) GetMetrics(c *fiber.Ctx) error {
	metrics := h.Metrics.Snapshot()

	if h.DB != nil {
		dbStats := h.DB.Stats()
		metrics["pool"] = map[string]interface{}{
			"open_connections":     dbStats.OpenConnections,
			"in_use":               dbStats.InUse,
			"idle":                 dbStats.Idle,
			"wait_count":           dbStats.WaitCount,
			"wait_duration_ms":     dbStats.WaitDuration.Milliseconds(),
			"max_idle_closed":      dbStats.MaxIdleClosed,
			"max_idle_time_closed": dbStats.MaxIdleTimeClosed,
			"max_lifetime_closed":  dbStats.MaxLifetimeClosed,
		}
	}

	return respond(c, fiber.StatusOK, metrics)
}
