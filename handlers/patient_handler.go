// backend/handlers/patient_handler.go
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gewnthar/dentalportal/backend/models"
	"github.com/gewnthar/dentalportal/backend/services"
)

// PatientDirectory is implemented by services.PatientService.
type PatientDirectory interface {
	Directory(ctx context.Context, search string) ([]models.PatientEntry, error)
	Create(ctx context.Context, req models.CreatePatientRequest) (models.Patient, error)
}

type PatientHandler struct {
	svc PatientDirectory
}

func NewPatientHandler(svc PatientDirectory) *PatientHandler {
	return &PatientHandler{svc: svc}
}

func (h *PatientHandler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients", h.List)
	api.POST("/patients", h.Create)
}

func (h *PatientHandler) List(c echo.Context) error {
	entries, err := h.svc.Directory(c.Request().Context(), c.QueryParam("search"))
	if err != nil {
		return queryError("patients", err)
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *PatientHandler) Create(c echo.Context) error {
	var req models.CreatePatientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.Create(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidPatient) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Error creating patient: "+err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}
