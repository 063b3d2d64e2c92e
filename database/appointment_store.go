// backend/database/appointment_store.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/gewnthar/dentalportal/backend/models"
)

// appointmentNamespace scopes the name-based appointment ids.
var appointmentNamespace = uuid.MustParse("6f1c7a52-3b0e-4d8e-9a57-1c3f5b2e8d41")

// AppointmentID is the id assigned to an appointment on insert. The same
// source and external id always yield the same id, so overrides keyed by
// id keep applying to a row that comes back unchanged on the next sync.
func AppointmentID(source, externalID string) string {
	return uuid.NewSHA1(appointmentNamespace, []byte(source+"/"+externalID)).String()
}

const appointmentColumns = `id, external_id, source, appt_date, appt_time, patient_name, last_name,
	treatment, doctor, phone, notes, status, estado_cita, num_paciente, registro,
	cit_mod, fecha_alta, duration, created_at, updated_at`

// ReplaceSourceAppointments clears every appointment of source and loads
// appts in a single transaction. Ids are assigned here; appts is updated
// in place. It returns the number of rows inserted.
func (s *Store) ReplaceSourceAppointments(ctx context.Context, source string, appts []models.Appointment) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction for appointments: %w", err)
	}
	defer tx.Rollback()

	// Step 1: Delete existing appointments for this source.
	res, err := tx.ExecContext(ctx, "DELETE FROM appointments WHERE source = ?", source)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old appointments for source %s: %w", source, err)
	}
	deleted, _ := res.RowsAffected()

	// Step 2: Insert the new set.
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO appointments (`+appointmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare appointment insert statement: %w", err)
	}
	defer stmt.Close()

	for i := range appts {
		a := &appts[i]
		a.Source = source
		a.ID = AppointmentID(source, a.ExternalID)
		_, err := stmt.ExecContext(ctx,
			a.ID, a.ExternalID, a.Source, a.Date, a.Time, a.PatientName, a.LastName,
			a.Treatment, a.Doctor, a.Phone, a.Notes, string(a.Status), a.EstadoCita, a.NumPaciente, a.Registro,
			a.CitMod, a.FechaAlta, a.Duration, formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert appointment %q: %w", a.ExternalID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit appointments for source %s: %w", source, err)
	}

	s.log.Info().Str("source", source).Int64("deleted", deleted).Int("inserted", len(appts)).Msg("appointments replaced")
	return len(appts), nil
}

func appointmentWhere(f models.AppointmentFilter) (string, []interface{}) {
	clauses := []string{"source = ?"}
	args := []interface{}{f.Source}
	if f.StartDate != "" {
		clauses = append(clauses, "appt_date >= ?")
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		clauses = append(clauses, "appt_date <= ?")
		args = append(args, f.EndDate)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.Status))
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListAppointments returns the source's appointments matching f, ordered
// by date then time. Dates compare as strings, which orders ISO dates.
func (s *Store) ListAppointments(ctx context.Context, f models.AppointmentFilter) ([]models.Appointment, error) {
	where, args := appointmentWhere(f)
	query := `SELECT ` + appointmentColumns + ` FROM appointments` + where + ` ORDER BY appt_date ASC, appt_time ASC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	appts := []models.Appointment{}
	for rows.Next() {
		var (
			a                    models.Appointment
			status               string
			notes                sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(
			&a.ID, &a.ExternalID, &a.Source, &a.Date, &a.Time, &a.PatientName, &a.LastName,
			&a.Treatment, &a.Doctor, &a.Phone, &notes, &status, &a.EstadoCita, &a.NumPaciente, &a.Registro,
			&a.CitMod, &a.FechaAlta, &a.Duration, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan appointment row: %w", err)
		}
		a.Status = models.Status(status)
		a.Notes = notes.String
		a.CreatedAt = parseTime(createdAt)
		a.UpdatedAt = parseTime(updatedAt)
		appts = append(appts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating appointment rows: %w", err)
	}
	return appts, nil
}

// CountAppointments counts the source's appointments matching f. Limit is ignored.
func (s *Store) CountAppointments(ctx context.Context, f models.AppointmentFilter) (int, error) {
	where, args := appointmentWhere(f)
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM appointments`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}
	return n, nil
}
