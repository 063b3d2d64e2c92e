// backend/database/datasource_store.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gewnthar/dentalportal/backend/models"
)

// LogSyncRun appends one sync attempt to the history table.
func (s *Store) LogSyncRun(ctx context.Context, run models.SyncRun) error {
	success := 0
	if run.Success {
		success = 1
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO sync_runs
		(source, started_at, finished_at, success, synced, skipped, duplicates, message, fetch_url, header_count, row_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Source, formatTime(run.StartedAt), formatTime(run.FinishedAt), success,
		run.Synced, run.Skipped, run.Duplicates, run.Message, run.FetchURL, run.HeaderCount, run.RowCount,
	)
	if err != nil {
		return fmt.Errorf("failed to log sync run for source %s: %w", run.Source, err)
	}
	return nil
}

// ListSyncRuns returns the most recent runs for source, newest first.
func (s *Store) ListSyncRuns(ctx context.Context, source string, limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, source, started_at, finished_at, success, synced, skipped,
		duplicates, message, fetch_url, header_count, row_count
		FROM sync_runs WHERE source = ? ORDER BY id DESC LIMIT ?`, source, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	runs := []models.SyncRun{}
	for rows.Next() {
		var (
			r                   models.SyncRun
			startedAt, finished string
			message             sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Source, &startedAt, &finished, &r.Success, &r.Synced, &r.Skipped,
			&r.Duplicates, &message, &r.FetchURL, &r.HeaderCount, &r.RowCount); err != nil {
			return nil, fmt.Errorf("failed to scan sync run row: %w", err)
		}
		r.StartedAt = parseTime(startedAt)
		r.FinishedAt = parseTime(finished)
		r.Message = message.String
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync run rows: %w", err)
	}
	return runs, nil
}
