// backend/services/sync_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/gewnthar/dentalportal/backend/models"
	"github.com/gewnthar/dentalportal/backend/scraper"
)

// ErrSyncRunning is returned by Start when the loop is already running.
var ErrSyncRunning = errors.New("sync loop already running")

// RowSource yields raw sheet rows. *scraper.Ingestor implements it.
type RowSource interface {
	Fetch(ctx context.Context) []scraper.RawRow
	Diagnostics() scraper.Diagnostics
}

// AppointmentReplacer swaps a source's whole appointment set.
type AppointmentReplacer interface {
	ReplaceSourceAppointments(ctx context.Context, source string, appts []models.Appointment) (int, error)
}

// SyncRunStore keeps the sync history.
type SyncRunStore interface {
	LogSyncRun(ctx context.Context, run models.SyncRun) error
	ListSyncRuns(ctx context.Context, source string, limit int) ([]models.SyncRun, error)
}

// SyncOptions tunes the scheduled loop.
type SyncOptions struct {
	Interval     time.Duration // Between successful runs
	RetryBackoff time.Duration // After a failed run
}

// Syncer imports the sheet into the store, on demand or on a timer.
// At most one import runs at a time; callers that arrive while one is in
// flight wait for it and share its result.
type Syncer struct {
	source string
	rows   RowSource
	mapper *scraper.RowMapper
	store  AppointmentReplacer
	runs   SyncRunStore
	opts   SyncOptions
	log    zerolog.Logger
	now    func() time.Time

	flight singleflight.Group

	mu          sync.RWMutex
	lastUpdate  *time.Time
	lastMessage string
	lastError   string
	syncing     bool
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewSyncer wires a syncer. runs may be nil to skip history.
func NewSyncer(source string, rows RowSource, mapper *scraper.RowMapper, store AppointmentReplacer, runs SyncRunStore, opts SyncOptions, logger zerolog.Logger) *Syncer {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 60 * time.Second
	}
	return &Syncer{
		source: source,
		rows:   rows,
		mapper: mapper,
		store:  store,
		runs:   runs,
		opts:   opts,
		log:    logger,
		now:    time.Now,
	}
}

// SyncOnce runs one import. It never returns an error: failures come back
// as Success=false with the reason in Message. Once started, an import is
// not cancelled by ctx; callers sharing it all get the finished result.
func (s *Syncer) SyncOnce(ctx context.Context) models.SyncResult {
	v, _, _ := s.flight.Do(s.source, func() (interface{}, error) {
		return s.syncOnce(context.WithoutCancel(ctx)), nil
	})
	return v.(models.SyncResult)
}

func (s *Syncer) syncOnce(ctx context.Context) (result models.SyncResult) {
	s.setSyncing(true)
	startedAt := s.now()
	run := models.SyncRun{Source: s.source, StartedAt: startedAt}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("sync panicked")
			result = s.failure(fmt.Sprintf("sync failed: %v", r))
		}
		s.finish(ctx, &run, result)
	}()

	s.log.Info().Str("source", s.source).Msg("starting sheet sync")

	raw := s.rows.Fetch(ctx)
	diag := s.rows.Diagnostics()
	run.FetchURL = diag.FetchURL
	run.HeaderCount = len(diag.Headers)
	run.RowCount = len(raw)

	if len(raw) == 0 {
		msg := "No data found"
		if diag.LastError != "" {
			msg += ": " + diag.LastError
		}
		s.log.Warn().Str("reason", diag.LastError).Msg("sheet returned no rows, keeping existing appointments")
		return s.failure(msg)
	}

	appts, stats := s.mapper.MapRows(raw)
	run.Skipped = stats.Skipped + stats.Failed
	run.Duplicates = stats.Duplicates
	if stats.Duplicates > 0 {
		s.log.Warn().Int("duplicates", stats.Duplicates).Msg("rows shared an external id, later rows kept")
	}
	if len(appts) == 0 {
		s.log.Warn().Int("rows", stats.Rows).Msg("no sheet row mapped to an appointment, keeping existing appointments")
		return s.failure("No data found")
	}

	n, err := s.store.ReplaceSourceAppointments(ctx, s.source, appts)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to store appointments")
		return s.failure(fmt.Sprintf("sync failed: %v", err))
	}

	finished := s.now()
	ts := finished.UTC().Format(time.RFC3339)
	msg := fmt.Sprintf("Successfully synced %d appointments", n)
	if stats.Duplicates > 0 {
		msg += fmt.Sprintf(" (%d rows with a repeated date, time and name were merged)", stats.Duplicates)
	}

	s.mu.Lock()
	s.lastUpdate = &finished
	s.lastMessage = msg
	s.lastError = ""
	s.mu.Unlock()

	s.log.Info().Int("synced", n).Int("skipped", run.Skipped).Msg("sheet sync finished")
	return models.SyncResult{Success: true, Synced: n, Message: msg, LastUpdate: &ts}
}

func (s *Syncer) failure(msg string) models.SyncResult {
	s.mu.Lock()
	s.lastMessage = msg
	s.lastError = msg
	last := s.lastUpdateString()
	s.mu.Unlock()
	return models.SyncResult{Success: false, Synced: 0, Message: msg, LastUpdate: last}
}

func (s *Syncer) finish(ctx context.Context, run *models.SyncRun, result models.SyncResult) {
	s.setSyncing(false)
	if s.runs == nil {
		return
	}
	run.FinishedAt = s.now()
	run.Success = result.Success
	run.Synced = result.Synced
	run.Message = result.Message
	if err := s.runs.LogSyncRun(ctx, *run); err != nil {
		s.log.Warn().Err(err).Msg("failed to record sync run")
	}
}

func (s *Syncer) setSyncing(v bool) {
	s.mu.Lock()
	s.syncing = v
	s.mu.Unlock()
}

// lastUpdateString must be called with s.mu held.
func (s *Syncer) lastUpdateString() *string {
	if s.lastUpdate == nil {
		return nil
	}
	ts := s.lastUpdate.UTC().Format(time.RFC3339)
	return &ts
}

// Start launches the scheduled loop. The first sync runs immediately.
func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrSyncRunning
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(loopCtx, s.done)
	s.log.Info().Dur("interval", s.opts.Interval).Msg("auto sync started")
	return nil
}

// Stop ends the loop and waits for it to exit. A sync already in flight
// is allowed to finish first.
func (s *Syncer) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.Info().Msg("auto sync stopped")
}

// Running reports whether the scheduled loop is active.
func (s *Syncer) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancel != nil
}

func (s *Syncer) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		wait := s.opts.Interval
		if !s.iterate(ctx) {
			wait = s.opts.RetryBackoff
		}
		timer.Reset(wait)
	}
}

// iterate runs one scheduled sync. SyncOnce detaches it from the loop's
// cancellation, so Stop lets it finish.
func (s *Syncer) iterate(ctx context.Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Dur("backoff", s.opts.RetryBackoff).Msg("auto sync iteration panicked")
			ok = false
		}
	}()
	res := s.SyncOnce(ctx)
	if !res.Success {
		s.log.Warn().Str("message", res.Message).Dur("retry_in", s.opts.RetryBackoff).Msg("auto sync failed")
	}
	return res.Success
}

// Status reports the loop state and what the last fetch saw.
func (s *Syncer) Status() models.SyncStatus {
	diag := s.rows.Diagnostics()
	headers := diag.Headers
	if headers == nil {
		headers = []string{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.SyncStatus{
		LastUpdate:          s.lastUpdateString(),
		AutoSyncActive:      s.cancel != nil,
		SyncIntervalMinutes: int(s.opts.Interval / time.Minute),
		Headers:             headers,
		RowCount:            diag.RowCount,
		Syncing:             s.syncing,
		LastMessage:         s.lastMessage,
		LastError:           s.lastError,
	}
}

// Headers returns the last seen sheet headers and row count.
func (s *Syncer) Headers() models.HeadersResponse {
	diag := s.rows.Diagnostics()
	headers := diag.Headers
	if headers == nil {
		headers = []string{}
	}
	return models.HeadersResponse{Headers: headers, RowCount: diag.RowCount}
}

// History returns recent sync runs, newest first.
func (s *Syncer) History(ctx context.Context, limit int) ([]models.SyncRun, error) {
	if s.runs == nil {
		return []models.SyncRun{}, nil
	}
	return s.runs.ListSyncRuns(ctx, s.source, limit)
}
