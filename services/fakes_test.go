package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/gewnthar/dentalportal/backend/models"
	"github.com/gewnthar/dentalportal/backend/scraper"
)

// memStore is an in-memory stand-in for database.Store.
type memStore struct {
	mu        sync.Mutex
	appts     map[string][]models.Appointment // by source
	overrides map[string]models.StatusOverride
	runs      []models.SyncRun
	patients  []models.Patient
	replaces  int
	failList  error
}

func newMemStore() *memStore {
	return &memStore{
		appts:     make(map[string][]models.Appointment),
		overrides: make(map[string]models.StatusOverride),
	}
}

func (m *memStore) ReplaceSourceAppointments(_ context.Context, source string, appts []models.Appointment) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]models.Appointment, len(appts))
	for i, a := range appts {
		a.ID = source + "/" + a.ExternalID
		a.Source = source
		appts[i] = a
		cp[i] = a
	}
	m.appts[source] = cp
	m.replaces++
	return len(cp), nil
}

func (m *memStore) match(a models.Appointment, f models.AppointmentFilter) bool {
	if f.StartDate != "" && a.Date < f.StartDate {
		return false
	}
	if f.EndDate != "" && a.Date > f.EndDate {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}

func (m *memStore) ListAppointments(_ context.Context, f models.AppointmentFilter) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList != nil {
		return nil, m.failList
	}
	out := []models.Appointment{}
	for _, a := range m.appts[f.Source] {
		if m.match(a, f) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memStore) CountAppointments(ctx context.Context, f models.AppointmentFilter) (int, error) {
	f.Limit = 0
	list, err := m.ListAppointments(ctx, f)
	return len(list), err
}

func (m *memStore) UpsertOverride(_ context.Context, o models.StatusOverride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[o.AppointmentID] = o
	return nil
}

func (m *memStore) GetOverrides(_ context.Context, ids []string) ([]models.StatusOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.StatusOverride{}
	for _, id := range ids {
		if o, ok := m.overrides[id]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) LogSyncRun(_ context.Context, run models.SyncRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.ID = int64(len(m.runs) + 1)
	m.runs = append(m.runs, run)
	return nil
}

func (m *memStore) ListSyncRuns(_ context.Context, source string, limit int) ([]models.SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.SyncRun{}
	for i := len(m.runs) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if m.runs[i].Source == source {
			out = append(out, m.runs[i])
		}
	}
	return out, nil
}

func (m *memStore) CreatePatient(_ context.Context, p *models.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.patients {
		if existing.ID == p.ID {
			return errors.New("duplicate patient id")
		}
	}
	m.patients = append(m.patients, *p)
	return nil
}

func (m *memStore) ListPatients(context.Context) ([]models.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Patient(nil), m.patients...), nil
}

// fakeSheet serves a fixed set of rows, optionally blocking until released.
type fakeSheet struct {
	mu      sync.Mutex
	rows    []scraper.RawRow
	diag    scraper.Diagnostics
	calls   int
	active  int
	maxSeen int
	gate    chan struct{}
	panics  bool
}

// Fetch behaves like the ingestor on a cancelled context: no rows.
func (f *fakeSheet) Fetch(ctx context.Context) []scraper.RawRow {
	f.mu.Lock()
	f.calls++
	f.active++
	if f.active > f.maxSeen {
		f.maxSeen = f.active
	}
	gate, panics, rows := f.gate, f.panics, f.rows
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if gate != nil {
		<-gate
	}
	if panics {
		panic("sheet exploded")
	}
	if ctx.Err() != nil {
		return nil
	}
	return rows
}

func (f *fakeSheet) Diagnostics() scraper.Diagnostics {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.diag
}

func (f *fakeSheet) setRows(rows []scraper.RawRow) {
	f.mu.Lock()
	f.rows = rows
	f.mu.Unlock()
}

func sheetRow(fecha, hora, nombre, estado string) scraper.RawRow {
	return scraper.NewRawRow(
		[]string{"Fecha", "Hora", "Nombre", "Estado"},
		[]string{fecha, hora, nombre, estado},
	)
}
