// backend/handlers/admin_handler.go
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/gewnthar/dentalportal/backend/models"
)

// SyncController is the part of services.Syncer the admin routes drive.
type SyncController interface {
	SyncOnce(ctx context.Context) models.SyncResult
	Status() models.SyncStatus
	Headers() models.HeadersResponse
	History(ctx context.Context, limit int) ([]models.SyncRun, error)
}

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

const defaultHistoryLimit = 20

// AdminHandler serves the sync controls, health check and API banner.
type AdminHandler struct {
	syncer SyncController
	db     Pinger
}

func NewAdminHandler(syncer SyncController, db Pinger) *AdminHandler {
	return &AdminHandler{syncer: syncer, db: db}
}

func (h *AdminHandler) RegisterRoutes(api *echo.Group) {
	api.GET("", h.Banner)
	api.GET("/health", h.Health)

	sync := api.Group("/appointments/sync")
	sync.POST("", h.TriggerSync)
	sync.GET("/status", h.SyncStatus)
	sync.GET("/headers", h.SyncHeaders)
	sync.GET("/history", h.SyncHistory)
}

func (h *AdminHandler) Banner(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Dental clinic appointment portal API",
		"status":  "running",
	})
}

func (h *AdminHandler) Health(c echo.Context) error {
	if err := h.db.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "unhealthy",
			"message": "database connection error",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// TriggerSync runs one import and always answers 200; failure is reported
// in the payload.
func (h *AdminHandler) TriggerSync(c echo.Context) error {
	return c.JSON(http.StatusOK, h.syncer.SyncOnce(c.Request().Context()))
}

func (h *AdminHandler) SyncStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.syncer.Status())
}

func (h *AdminHandler) SyncHeaders(c echo.Context) error {
	return c.JSON(http.StatusOK, h.syncer.Headers())
}

func (h *AdminHandler) SyncHistory(c echo.Context) error {
	limit := defaultHistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	runs, err := h.syncer.History(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Error fetching sync history: "+err.Error())
	}
	return c.JSON(http.StatusOK, runs)
}
