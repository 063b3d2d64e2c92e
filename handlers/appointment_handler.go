// backend/handlers/appointment_handler.go
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gewnthar/dentalportal/backend/models"
	"github.com/gewnthar/dentalportal/backend/services"
)

// AppointmentQueries is implemented by services.AppointmentService.
type AppointmentQueries interface {
	Today() string
	List(ctx context.Context, q models.AppointmentQuery) ([]models.Appointment, error)
	TodayAppointments(ctx context.Context) ([]models.Appointment, error)
	Upcoming(ctx context.Context, days int) ([]models.Appointment, error)
	Stats(ctx context.Context) (models.AppointmentStats, error)
	SetOverride(ctx context.Context, id string, status models.Status, estadoCita string) (models.StatusOverride, error)
	Export(ctx context.Context, q models.AppointmentQuery) ([]byte, error)
}

type AppointmentHandler struct {
	svc AppointmentQueries
}

func NewAppointmentHandler(svc AppointmentQueries) *AppointmentHandler {
	return &AppointmentHandler{svc: svc}
}

func (h *AppointmentHandler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/appointments")
	g.GET("", h.List)
	g.GET("/today", h.Today)
	g.GET("/upcoming", h.Upcoming)
	g.GET("/stats", h.Stats)
	g.GET("/export", h.Export)
	g.POST("/:id/status", h.UpdateStatus)
}

func (h *AppointmentHandler) List(c echo.Context) error {
	q, err := parseAppointmentQuery(c)
	if err != nil {
		return err
	}
	appts, err := h.svc.List(c.Request().Context(), q)
	if err != nil {
		return queryError("appointments", err)
	}
	return c.JSON(http.StatusOK, appts)
}

func (h *AppointmentHandler) Today(c echo.Context) error {
	appts, err := h.svc.TodayAppointments(c.Request().Context())
	if err != nil {
		return queryError("today's appointments", err)
	}
	return c.JSON(http.StatusOK, appts)
}

func (h *AppointmentHandler) Upcoming(c echo.Context) error {
	days := services.DefaultUpcomingDays
	if raw := c.QueryParam("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 366 {
			return echo.NewHTTPError(http.StatusBadRequest, "days must be an integer between 1 and 366")
		}
		days = n
	}
	appts, err := h.svc.Upcoming(c.Request().Context(), days)
	if err != nil {
		return queryError("upcoming appointments", err)
	}
	return c.JSON(http.StatusOK, appts)
}

func (h *AppointmentHandler) Stats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return queryError("stats", err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *AppointmentHandler) Export(c echo.Context) error {
	q, err := parseAppointmentQuery(c)
	if err != nil {
		return err
	}
	data, err := h.svc.Export(c.Request().Context(), q)
	if err != nil {
		return queryError("appointments export", err)
	}
	name := fmt.Sprintf("appointments_%s.csv", h.svc.Today())
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", data)
}

// UpdateStatus stores a manual status. Values come from the query string,
// or from a JSON body when the query does not carry them.
func (h *AppointmentHandler) UpdateStatus(c echo.Context) error {
	req := models.StatusUpdateRequest{
		NewStatus:      c.QueryParam("new_status"),
		EstadoCitaText: c.QueryParam("estado_cita_text"),
	}
	if req.NewStatus == "" && c.Request().ContentLength != 0 {
		var body models.StatusUpdateRequest
		if err := c.Bind(&body); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		req.NewStatus = body.NewStatus
		if req.EstadoCitaText == "" {
			req.EstadoCitaText = body.EstadoCitaText
		}
	}
	if strings.TrimSpace(req.NewStatus) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "new_status is required")
	}

	status := models.Status(strings.ToLower(strings.TrimSpace(req.NewStatus)))
	o, err := h.svc.SetOverride(c.Request().Context(), c.Param("id"), status, req.EstadoCitaText)
	if err != nil {
		if errors.Is(err, services.ErrInvalidStatus) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return queryError("status update", err)
	}
	return c.JSON(http.StatusOK, models.StatusUpdateResponse{
		Success:    true,
		ID:         o.AppointmentID,
		Status:     o.Status,
		EstadoCita: o.EstadoCita,
	})
}

func parseAppointmentQuery(c echo.Context) (models.AppointmentQuery, error) {
	q := models.AppointmentQuery{
		StartDate: strings.TrimSpace(c.QueryParam("start_date")),
		EndDate:   strings.TrimSpace(c.QueryParam("end_date")),
		Status:    models.Status(strings.ToLower(strings.TrimSpace(c.QueryParam("status")))),
		Patient:   c.QueryParam("patient"),
		Limit:     services.DefaultListLimit,
	}
	for name, v := range map[string]string{"start_date": q.StartDate, "end_date": q.EndDate} {
		if v == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", v); err != nil {
			return q, echo.NewHTTPError(http.StatusBadRequest, name+" must be YYYY-MM-DD")
		}
	}
	if q.Status != "" && !q.Status.Valid() {
		return q, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown status %q", q.Status))
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
		q.Limit = min(max(n, 1), services.MaxListLimit)
	}
	return q, nil
}

// queryError maps a service failure to a 500 naming what was being read.
func queryError(what string, err error) error {
	return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("Error fetching %s: %v", what, err))
}
