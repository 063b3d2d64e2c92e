// backend/models/patient.go
package models

import "time"

// Patient is a manually entered patient record.
type Patient struct {
	ID          string    `db:"id" json:"id"`
	FirstName   string    `db:"first_name" json:"first_name"`
	LastName    string    `db:"last_name" json:"last_name"`
	Phone       string    `db:"phone" json:"phone"`
	Email       string    `db:"email" json:"email,omitempty"`
	NumPaciente string    `db:"num_paciente" json:"num_paciente,omitempty"`
	Notes       string    `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (p Patient) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// PatientEntry is one row of the derived patient directory.
type PatientEntry struct {
	Key              string   `json:"key"`
	Name             string   `json:"name"`
	Phones           []string `json:"phones"`
	NumPaciente      string   `json:"num_paciente,omitempty"`
	AppointmentCount int      `json:"appointment_count"`
	LastVisit        string   `json:"last_visit,omitempty"`
	NextAppointment  string   `json:"next_appointment,omitempty"`
	Sources          []string `json:"sources"`              // "appointments", "manual"
	PatientID        string   `json:"patient_id,omitempty"` // Set when a manual record exists
}
