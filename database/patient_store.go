// backend/database/patient_store.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gewnthar/dentalportal/backend/models"
)

// CreatePatient inserts a manually entered patient. p.ID must be set.
func (s *Store) CreatePatient(ctx context.Context, p *models.Patient) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO patients
		(id, first_name, last_name, phone, email, num_paciente, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.FirstName, p.LastName, p.Phone, p.Email, p.NumPaciente, p.Notes,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert patient %s: %w", p.ID, err)
	}
	return nil
}

// ListPatients returns all manual patients ordered by name.
func (s *Store) ListPatients(ctx context.Context) ([]models.Patient, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, first_name, last_name, phone, email, num_paciente, notes,
		created_at, updated_at FROM patients ORDER BY first_name, last_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query patients: %w", err)
	}
	defer rows.Close()

	patients := []models.Patient{}
	for rows.Next() {
		var (
			p                    models.Patient
			notes                sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Phone, &p.Email, &p.NumPaciente, &notes,
			&createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan patient row: %w", err)
		}
		p.Notes = notes.String
		p.CreatedAt = parseTime(createdAt)
		p.UpdatedAt = parseTime(updatedAt)
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patient rows: %w", err)
	}
	return patients, nil
}
