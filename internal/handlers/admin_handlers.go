package handlers

import (
	"net/http"

	"talentdesk/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AdminHandlers exposes platform maintenance operations on demand. The same
// work also runs on the background schedule.
type AdminHandlers struct {
	integrityService   services.IntegrityService
	notificationWorker services.NotificationWorker
	drainBatchSize     int
	logger             *zap.Logger
}

func NewAdminHandlers(integrityService services.IntegrityService, notificationWorker services.NotificationWorker,
	drainBatchSize int, logger *zap.Logger) *AdminHandlers {
	return &AdminHandlers{
		integrityService:   integrityService,
		notificationWorker: notificationWorker,
		drainBatchSize:     drainBatchSize,
		logger:             logger,
	}
}

// ScanIntegrity reports stored records that violate ledger invariants.
func (h *AdminHandlers) ScanIntegrity(c echo.Context) error {
	violations, err := h.integrityService.Scan(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"violations": violations,
		"count":      len(violations),
	})
}

func (h *AdminHandlers) DrainNotifications(c echo.Context) error {
	delivered, err := h.notificationWorker.Drain(c.Request().Context(), h.drainBatchSize)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"delivered": delivered})
}
