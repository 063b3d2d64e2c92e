// backend/database/override_store.go
package database

import (
	"context"
	"fmt"

	"github.com/gewnthar/dentalportal/backend/models"
)

// Keeps IN (...) lists well under driver placeholder limits.
const overrideLookupChunk = 500

// UpsertOverride stores o, replacing any override for the same appointment.
func (s *Store) UpsertOverride(ctx context.Context, o models.StatusOverride) error {
	query := `INSERT INTO appointment_overrides (appointment_id, status, estado_cita, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(appointment_id) DO UPDATE SET
			status = excluded.status,
			estado_cita = excluded.estado_cita,
			updated_at = excluded.updated_at`
	if s.dialect == DialectMySQL {
		query = `INSERT INTO appointment_overrides (appointment_id, status, estado_cita, updated_at)
			VALUES (?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				status = VALUES(status),
				estado_cita = VALUES(estado_cita),
				updated_at = VALUES(updated_at)`
	}

	_, err := s.db.ExecContext(ctx, query, o.AppointmentID, string(o.Status), o.EstadoCita, formatTime(o.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert override for appointment %s: %w", o.AppointmentID, err)
	}
	return nil
}

// GetOverrides returns the overrides stored for any of ids.
func (s *Store) GetOverrides(ctx context.Context, ids []string) ([]models.StatusOverride, error) {
	var out []models.StatusOverride
	for start := 0; start < len(ids); start += overrideLookupChunk {
		end := start + overrideLookupChunk
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		args := make([]interface{}, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		rows, err := s.db.QueryContext(ctx,
			`SELECT appointment_id, status, estado_cita, updated_at FROM appointment_overrides
			WHERE appointment_id IN (`+placeholders(len(chunk))+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query overrides: %w", err)
		}

		for rows.Next() {
			var o models.StatusOverride
			var status, updatedAt string
			if err := rows.Scan(&o.AppointmentID, &status, &o.EstadoCita, &updatedAt); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan override row: %w", err)
			}
			o.Status = models.Status(status)
			o.UpdatedAt = parseTime(updatedAt)
			out = append(out, o)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("error iterating override rows: %w", err)
		}
	}
	return out, nil
}
