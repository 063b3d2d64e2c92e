// backend/models/meta.go
package models

import "time"

// SyncRun records one attempt to import the spreadsheet.
type SyncRun struct {
	ID          int64     `db:"id" json:"id"`
	Source      string    `db:"source" json:"source"`
	StartedAt   time.Time `db:"started_at" json:"started_at"`
	FinishedAt  time.Time `db:"finished_at" json:"finished_at"`
	Success     bool      `db:"success" json:"success"`
	Synced      int       `db:"synced" json:"synced"`
	Skipped     int       `db:"skipped" json:"skipped"`       // Rows the mapper discarded
	Duplicates  int       `db:"duplicates" json:"duplicates"` // Rows merged into a later row with the same external id
	Message     string    `db:"message" json:"message"`
	FetchURL    string    `db:"fetch_url" json:"fetch_url,omitempty"` // Primary or fallback, whichever answered
	HeaderCount int       `db:"header_count" json:"header_count"`
	RowCount    int       `db:"row_count" json:"row_count"`
}

// SyncResult is returned by every sync trigger. Callers must check Success.
type SyncResult struct {
	Success    bool    `json:"success"`
	Synced     int     `json:"synced"`
	Message    string  `json:"message"`
	LastUpdate *string `json:"last_update"`
}

// SyncStatus is the operational view of the sync loop.
type SyncStatus struct {
	LastUpdate          *string  `json:"last_update"`
	AutoSyncActive      bool     `json:"auto_sync_active"`
	SyncIntervalMinutes int      `json:"sync_interval_minutes"`
	Headers             []string `json:"headers"`
	RowCount            int      `json:"row_count"`
	Syncing             bool     `json:"syncing"`
	LastMessage         string   `json:"last_message,omitempty"`
	LastError           string   `json:"last_error,omitempty"`
}
