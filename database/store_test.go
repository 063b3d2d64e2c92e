package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gewnthar/dentalportal/backend/config"
	"github.com/gewnthar/dentalportal/backend/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, config.DatabaseConfig{
		Driver: DialectSQLite,
		Path:   filepath.Join(t.TempDir(), "portal.db"),
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func appt(date, tm, name string, status models.Status) models.Appointment {
	now := time.Date(2025, 9, 20, 8, 0, 0, 0, time.UTC)
	return models.Appointment{
		ExternalID:  date + "_" + tm + "_" + name,
		Date:        date,
		Time:        tm,
		PatientName: name,
		Status:      status,
		EstadoCita:  string(status),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	s := openTestStore(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}

func TestReplaceSourceAppointments(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := []models.Appointment{
		appt("2025-09-22", "09:00", "Luis", models.StatusConfirmed),
		appt("2025-09-22", "08:00", "Ana", models.StatusPending),
		appt("2025-09-23", "10:00", "Eva", models.StatusCancelled),
	}
	n, err := s.ReplaceSourceAppointments(ctx, models.SourceGoogleSheets, first)
	if err != nil || n != 3 {
		t.Fatalf("first replace: n=%d err=%v", n, err)
	}
	if first[0].ID == "" || first[0].Source != models.SourceGoogleSheets {
		t.Errorf("expected id and source assigned in place, got %+v", first[0])
	}

	// Another source is left alone by the replace below.
	other := []models.Appointment{appt("2025-09-22", "11:00", "Otro", models.StatusPending)}
	if _, err := s.ReplaceSourceAppointments(ctx, "manual_import", other); err != nil {
		t.Fatalf("other source replace: %v", err)
	}

	second := []models.Appointment{appt("2025-09-22", "08:00", "Ana", models.StatusPending)}
	if _, err := s.ReplaceSourceAppointments(ctx, models.SourceGoogleSheets, second); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	got, err := s.ListAppointments(ctx, models.AppointmentFilter{Source: models.SourceGoogleSheets})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].PatientName != "Ana" {
		t.Fatalf("expected only the latest set, got %+v", got)
	}
	if got[0].ID != first[1].ID {
		t.Errorf("expected stable id across syncs, got %s vs %s", got[0].ID, first[1].ID)
	}
	if !got[0].CreatedAt.Equal(second[0].CreatedAt) {
		t.Errorf("timestamp round trip failed: %v", got[0].CreatedAt)
	}

	others, _ := s.ListAppointments(ctx, models.AppointmentFilter{Source: "manual_import"})
	if len(others) != 1 {
		t.Errorf("expected other source untouched, got %d", len(others))
	}
}

func TestReplaceSourceAppointments_RollsBackOnError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.ReplaceSourceAppointments(ctx, models.SourceGoogleSheets, []models.Appointment{
		appt("2025-09-22", "08:00", "Ana", models.StatusPending),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	dup := appt("2025-09-23", "08:00", "Eva", models.StatusPending)
	if _, err := s.ReplaceSourceAppointments(ctx, models.SourceGoogleSheets, []models.Appointment{dup, dup}); err == nil {
		t.Fatal("expected primary key violation")
	}

	got, _ := s.ListAppointments(ctx, models.AppointmentFilter{Source: models.SourceGoogleSheets})
	if len(got) != 1 || got[0].PatientName != "Ana" {
		t.Fatalf("expected previous set to survive a failed replace, got %+v", got)
	}
}

func TestListAppointments_FiltersAndOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seed := []models.Appointment{
		appt("2025-09-23", "08:00", "C", models.StatusPending),
		appt("2025-09-22", "09:00", "B", models.StatusConfirmed),
		appt("2025-09-22", "08:00", "A", models.StatusPending),
		appt("2025-09-24", "12:00", "D", models.StatusCompleted),
	}
	if _, err := s.ReplaceSourceAppointments(ctx, models.SourceGoogleSheets, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	day, _ := s.ListAppointments(ctx, models.AppointmentFilter{
		Source: models.SourceGoogleSheets, StartDate: "2025-09-22", EndDate: "2025-09-22",
	})
	if len(day) != 2 || day[0].Time != "08:00" || day[1].Time != "09:00" {
		t.Fatalf("expected 08:00 then 09:00 on 2025-09-22, got %+v", day)
	}

	pending, _ := s.ListAppointments(ctx, models.AppointmentFilter{Source: models.SourceGoogleSheets, Status: models.StatusPending})
	if len(pending) != 2 {
		t.Errorf("expected 2 pending, got %d", len(pending))
	}

	limited, _ := s.ListAppointments(ctx, models.AppointmentFilter{Source: models.SourceGoogleSheets, Limit: 3})
	if len(limited) != 3 || limited[2].PatientName != "C" {
		t.Errorf("expected first 3 by date/time, got %+v", limited)
	}

	n, err := s.CountAppointments(ctx, models.AppointmentFilter{Source: models.SourceGoogleSheets, StartDate: "2025-09-23"})
	if err != nil || n != 2 {
		t.Errorf("expected 2 from 2025-09-23 on, got %d (%v)", n, err)
	}
}

func TestOverrides_UpsertAndLookup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	o := models.StatusOverride{AppointmentID: "a1", Status: models.StatusCompleted, EstadoCita: "completed", UpdatedAt: time.Now()}
	if err := s.UpsertOverride(ctx, o); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	o.Status = models.StatusCancelled
	o.EstadoCita = "Anulada por teléfono"
	if err := s.UpsertOverride(ctx, o); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if err := s.UpsertOverride(ctx, models.StatusOverride{AppointmentID: "a2", Status: models.StatusConfirmed, UpdatedAt: time.Now()}); err != nil {
		t.Fatalf("upsert a2: %v", err)
	}

	got, err := s.GetOverrides(ctx, []string{"a1", "missing"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 || got[0].Status != models.StatusCancelled || got[0].EstadoCita != "Anulada por teléfono" {
		t.Fatalf("unexpected overrides %+v", got)
	}

	none, err := s.GetOverrides(ctx, nil)
	if err != nil || len(none) != 0 {
		t.Errorf("expected no overrides for empty id set, got %v %v", none, err)
	}
}

func TestOverrides_ChunkedLookup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ids := make([]string, overrideLookupChunk+10)
	for i := range ids {
		ids[i] = AppointmentID("test", time.Duration(i).String())
	}
	last := ids[len(ids)-1]
	if err := s.UpsertOverride(ctx, models.StatusOverride{AppointmentID: last, Status: models.StatusCompleted, UpdatedAt: time.Now()}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.GetOverrides(ctx, ids)
	if err != nil || len(got) != 1 || got[0].AppointmentID != last {
		t.Fatalf("expected override from second chunk, got %+v (%v)", got, err)
	}
}

func TestSyncRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	start := time.Date(2025, 9, 22, 7, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		run := models.SyncRun{
			Source:     models.SourceGoogleSheets,
			StartedAt:  start.Add(time.Duration(i) * time.Minute),
			FinishedAt: start.Add(time.Duration(i)*time.Minute + time.Second),
			Success:    i != 1,
			Synced:     i * 10,
			Duplicates: i,
			Message:    "run",
		}
		if err := s.LogSyncRun(ctx, run); err != nil {
			t.Fatalf("log run: %v", err)
		}
	}

	runs, err := s.ListSyncRuns(ctx, models.SourceGoogleSheets, 2)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Synced != 20 || runs[0].Duplicates != 2 || !runs[0].Success || runs[1].Success {
		t.Errorf("expected newest first with success flags, got %+v", runs)
	}
}

func TestPatients(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for _, p := range []models.Patient{
		{ID: "p2", FirstName: "Luis", LastName: "Pérez", CreatedAt: now, UpdatedAt: now},
		{ID: "p1", FirstName: "Ana", Phone: "600111222", Notes: "alergia", CreatedAt: now, UpdatedAt: now},
	} {
		p := p
		if err := s.CreatePatient(ctx, &p); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := s.ListPatients(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "p1" || got[0].Notes != "alergia" {
		t.Fatalf("unexpected patients %+v", got)
	}

	dup := models.Patient{ID: "p1", FirstName: "X", CreatedAt: now, UpdatedAt: now}
	if err := s.CreatePatient(ctx, &dup); err == nil {
		t.Error("expected duplicate id to fail")
	}
}

func TestAppointmentID_Stable(t *testing.T) {
	a := AppointmentID(models.SourceGoogleSheets, "2025-09-22_08:00_Ana")
	b := AppointmentID(models.SourceGoogleSheets, "2025-09-22_08:00_Ana")
	c := AppointmentID("other", "2025-09-22_08:00_Ana")
	if a != b {
		t.Error("expected identical ids for identical keys")
	}
	if a == c {
		t.Error("expected source to be part of the id")
	}
}

func TestPlaceholders(t *testing.T) {
	if got := placeholders(3); got != "?, ?, ?" {
		t.Errorf("unexpected placeholders %q", got)
	}
	if got := placeholders(0); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}
