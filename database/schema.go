// backend/database/schema.go
package database

import (
	"context"
	"fmt"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS appointments (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		external_id VARCHAR(512) NOT NULL,
		source VARCHAR(64) NOT NULL,
		appt_date VARCHAR(64) NOT NULL DEFAULT '',
		appt_time VARCHAR(64) NOT NULL DEFAULT '',
		patient_name VARCHAR(255) NOT NULL DEFAULT '',
		last_name VARCHAR(255) NOT NULL DEFAULT '',
		treatment VARCHAR(255) NOT NULL DEFAULT '',
		doctor VARCHAR(255) NOT NULL DEFAULT '',
		phone VARCHAR(64) NOT NULL DEFAULT '',
		notes TEXT,
		status VARCHAR(16) NOT NULL,
		estado_cita VARCHAR(255) NOT NULL DEFAULT '',
		num_paciente VARCHAR(64) NOT NULL DEFAULT '',
		registro VARCHAR(64) NOT NULL DEFAULT '',
		cit_mod VARCHAR(64) NOT NULL DEFAULT '',
		fecha_alta VARCHAR(64) NOT NULL DEFAULT '',
		duration VARCHAR(64) NOT NULL DEFAULT '',
		created_at VARCHAR(40) NOT NULL,
		updated_at VARCHAR(40) NOT NULL,
		INDEX idx_appointments_source_date (source, appt_date, appt_time),
		INDEX idx_appointments_source_status (source, status)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS appointment_overrides (
		appointment_id VARCHAR(36) NOT NULL PRIMARY KEY,
		status VARCHAR(16) NOT NULL,
		estado_cita VARCHAR(255) NOT NULL DEFAULT '',
		updated_at VARCHAR(40) NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS patients (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		first_name VARCHAR(255) NOT NULL,
		last_name VARCHAR(255) NOT NULL DEFAULT '',
		phone VARCHAR(64) NOT NULL DEFAULT '',
		email VARCHAR(255) NOT NULL DEFAULT '',
		num_paciente VARCHAR(64) NOT NULL DEFAULT '',
		notes TEXT,
		created_at VARCHAR(40) NOT NULL,
		updated_at VARCHAR(40) NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS sync_runs (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		source VARCHAR(64) NOT NULL,
		started_at VARCHAR(40) NOT NULL,
		finished_at VARCHAR(40) NOT NULL,
		success TINYINT(1) NOT NULL,
		synced INT NOT NULL DEFAULT 0,
		skipped INT NOT NULL DEFAULT 0,
		duplicates INT NOT NULL DEFAULT 0,
		message TEXT,
		fetch_url VARCHAR(1024) NOT NULL DEFAULT '',
		header_count INT NOT NULL DEFAULT 0,
		row_count INT NOT NULL DEFAULT 0,
		INDEX idx_sync_runs_source (source, id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS appointments (
		id TEXT NOT NULL PRIMARY KEY,
		external_id TEXT NOT NULL,
		source TEXT NOT NULL,
		appt_date TEXT NOT NULL DEFAULT '',
		appt_time TEXT NOT NULL DEFAULT '',
		patient_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		treatment TEXT NOT NULL DEFAULT '',
		doctor TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		notes TEXT,
		status TEXT NOT NULL,
		estado_cita TEXT NOT NULL DEFAULT '',
		num_paciente TEXT NOT NULL DEFAULT '',
		registro TEXT NOT NULL DEFAULT '',
		cit_mod TEXT NOT NULL DEFAULT '',
		fecha_alta TEXT NOT NULL DEFAULT '',
		duration TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_source_date ON appointments (source, appt_date, appt_time)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_source_status ON appointments (source, status)`,
	`CREATE TABLE IF NOT EXISTS appointment_overrides (
		appointment_id TEXT NOT NULL PRIMARY KEY,
		status TEXT NOT NULL,
		estado_cita TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS patients (
		id TEXT NOT NULL PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		num_paciente TEXT NOT NULL DEFAULT '',
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sync_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		success INTEGER NOT NULL,
		synced INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		duplicates INTEGER NOT NULL DEFAULT 0,
		message TEXT,
		fetch_url TEXT NOT NULL DEFAULT '',
		header_count INTEGER NOT NULL DEFAULT 0,
		row_count INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sync_runs_source ON sync_runs (source, id)`,
}

// Migrate creates any missing tables. It is safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := sqliteSchema
	if s.dialect == DialectMySQL {
		stmts = mysqlSchema
	}
	for i, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
	}
	s.log.Info().Int("statements", len(stmts)).Msg("schema up to date")
	return nil
}
