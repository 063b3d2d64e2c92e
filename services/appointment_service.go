// backend/services/appointment_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gewnthar/dentalportal/backend/models"
	"github.com/gewnthar/dentalportal/backend/scraper"
)

// ErrInvalidStatus is returned for a status outside the canonical set.
var ErrInvalidStatus = errors.New("invalid status")

const (
	DefaultListLimit    = 1000
	MaxListLimit        = 20000
	DefaultUpcomingDays = 7
)

// AppointmentStore reads the synced appointments.
type AppointmentStore interface {
	ListAppointments(ctx context.Context, f models.AppointmentFilter) ([]models.Appointment, error)
	CountAppointments(ctx context.Context, f models.AppointmentFilter) (int, error)
}

// OverrideStore persists manual status corrections.
type OverrideStore interface {
	UpsertOverride(ctx context.Context, o models.StatusOverride) error
	GetOverrides(ctx context.Context, ids []string) ([]models.StatusOverride, error)
}

// AppointmentService answers appointment queries with overrides applied.
type AppointmentService struct {
	source    string
	store     AppointmentStore
	overrides OverrideStore
	loc       *time.Location
	now       func() time.Time
	log       zerolog.Logger
}

// NewAppointmentService creates the query service. loc decides what "today" is.
func NewAppointmentService(source string, store AppointmentStore, overrides OverrideStore, loc *time.Location, logger zerolog.Logger) *AppointmentService {
	if loc == nil {
		loc = time.Local
	}
	return &AppointmentService{
		source:    source,
		store:     store,
		overrides: overrides,
		loc:       loc,
		now:       time.Now,
		log:       logger,
	}
}

// Today returns the current date in the clinic time zone as YYYY-MM-DD.
func (s *AppointmentService) Today() string {
	return s.now().In(s.loc).Format("2006-01-02")
}

// List returns appointments matching q, sorted by date and time.
// The status filter runs on the effective status, after overrides are
// applied, so an overridden appointment is returned under its new status
// only. With a status or patient filter the limit is applied after
// filtering.
func (s *AppointmentService) List(ctx context.Context, q models.AppointmentQuery) ([]models.Appointment, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if q.Status != "" && !q.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, q.Status)
	}

	storeLimit := limit
	if q.Status != "" || strings.TrimSpace(q.Patient) != "" {
		storeLimit = 0
	}
	appts, err := s.store.ListAppointments(ctx, models.AppointmentFilter{
		Source:    s.source,
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		Limit:     storeLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}

	if err := s.ApplyOverrides(ctx, appts); err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(q.Patient))
	out := appts[:0]
	for _, a := range appts {
		if q.Status != "" && a.Status != q.Status {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(a.PatientName), needle) {
			continue
		}
		out = append(out, a)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// TodayAppointments lists every appointment dated today.
func (s *AppointmentService) TodayAppointments(ctx context.Context) ([]models.Appointment, error) {
	today := s.Today()
	return s.List(ctx, models.AppointmentQuery{StartDate: today, EndDate: today})
}

// Upcoming lists confirmed and pending appointments from today through
// today+days. Overrides are applied before the status filter, so the
// result reflects effective statuses.
func (s *AppointmentService) Upcoming(ctx context.Context, days int) ([]models.Appointment, error) {
	if days <= 0 {
		days = DefaultUpcomingDays
	}
	now := s.now().In(s.loc)
	start := now.Format("2006-01-02")
	end := now.AddDate(0, 0, days).Format("2006-01-02")

	appts, err := s.store.ListAppointments(ctx, models.AppointmentFilter{
		Source:    s.source,
		StartDate: start,
		EndDate:   end,
		Limit:     MaxListLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming appointments: %w", err)
	}
	if err := s.ApplyOverrides(ctx, appts); err != nil {
		return nil, err
	}

	out := make([]models.Appointment, 0, len(appts))
	for _, a := range appts {
		if a.Status == models.StatusConfirmed || a.Status == models.StatusPending {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return scraper.NormalizeTime(out[i].Time) < scraper.NormalizeTime(out[j].Time)
	})
	return out, nil
}

// Stats returns the dashboard counters. Counts reflect the synced rows;
// overrides are not folded in.
func (s *AppointmentService) Stats(ctx context.Context) (models.AppointmentStats, error) {
	var stats models.AppointmentStats
	today := s.Today()

	counters := []struct {
		dst    *int
		filter models.AppointmentFilter
	}{
		{&stats.Total, models.AppointmentFilter{Source: s.source}},
		{&stats.Today, models.AppointmentFilter{Source: s.source, StartDate: today, EndDate: today}},
		{&stats.Confirmed, models.AppointmentFilter{Source: s.source, Status: models.StatusConfirmed}},
		{&stats.Pending, models.AppointmentFilter{Source: s.source, Status: models.StatusPending}},
		{&stats.Completed, models.AppointmentFilter{Source: s.source, Status: models.StatusCompleted}},
		{&stats.Cancelled, models.AppointmentFilter{Source: s.source, Status: models.StatusCancelled}},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range counters {
		c := c
		g.Go(func() error {
			n, err := s.store.CountAppointments(gctx, c.filter)
			if err != nil {
				return err
			}
			*c.dst = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.AppointmentStats{}, fmt.Errorf("failed to compute stats: %w", err)
	}
	return stats, nil
}

// SetOverride records a manual status for an appointment id. estadoCita
// defaults to the status itself.
func (s *AppointmentService) SetOverride(ctx context.Context, id string, status models.Status, estadoCita string) (models.StatusOverride, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.StatusOverride{}, fmt.Errorf("appointment id is required")
	}
	if !status.Valid() {
		return models.StatusOverride{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if strings.TrimSpace(estadoCita) == "" {
		estadoCita = string(status)
	}

	o := models.StatusOverride{
		AppointmentID: id,
		Status:        status,
		EstadoCita:    estadoCita,
		UpdatedAt:     s.now().UTC(),
	}
	if err := s.overrides.UpsertOverride(ctx, o); err != nil {
		return models.StatusOverride{}, fmt.Errorf("failed to save status override: %w", err)
	}
	s.log.Info().Str("appointment_id", id).Str("status", string(status)).Msg("status override saved")
	return o, nil
}

// ApplyOverrides overlays stored overrides onto appts in place with one
// batched lookup.
func (s *AppointmentService) ApplyOverrides(ctx context.Context, appts []models.Appointment) error {
	if len(appts) == 0 {
		return nil
	}
	ids := make([]string, 0, len(appts))
	for _, a := range appts {
		if a.ID != "" {
			ids = append(ids, a.ID)
		}
	}

	overrides, err := s.overrides.GetOverrides(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load status overrides: %w", err)
	}
	if len(overrides) == 0 {
		return nil
	}

	byID := make(map[string]models.StatusOverride, len(overrides))
	for _, o := range overrides {
		byID[o.AppointmentID] = o
	}
	for i := range appts {
		if o, ok := byID[appts[i].ID]; ok {
			appts[i].Status = o.Status
			appts[i].EstadoCita = o.EstadoCita
		}
	}
	return nil
}

// Export renders the list result as CSV.
func (s *AppointmentService) Export(ctx context.Context, q models.AppointmentQuery) ([]byte, error) {
	appts, err := s.List(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(appts) == 0 {
		// csvutil writes nothing for an empty slice; keep the header row.
		header, err := csvutil.Header(models.Appointment{}, "csv")
		if err != nil {
			return nil, fmt.Errorf("failed to build CSV header: %w", err)
		}
		return []byte(strings.Join(header, ",") + "\n"), nil
	}
	data, err := csvutil.Marshal(appts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode appointments as CSV: %w", err)
	}
	return data, nil
}
