// backend/models/appointment.go
package models

import "time"

// SourceGoogleSheets tags appointments imported from the clinic spreadsheet.
const SourceGoogleSheets = "google_sheets"

// Status is the canonical appointment status.
type Status string

const (
	StatusPending     Status = "pending"
	StatusConfirmed   Status = "confirmed"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusRescheduled Status = "rescheduled"
)

// AllStatuses lists every valid status in display order.
var AllStatuses = []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusRescheduled}

// Valid reports whether s is one of the canonical statuses.
func (s Status) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Appointment is one canonical appointment produced from a spreadsheet row.
type Appointment struct {
	ID         string `db:"id" json:"id" csv:"id"` // Assigned by the store on insert
	ExternalID string `db:"external_id" json:"external_id" csv:"external_id"`

	Date        string `db:"appt_date" json:"date" csv:"date"` // YYYY-MM-DD, or the raw value if unparseable
	Time        string `db:"appt_time" json:"time" csv:"time"` // HH:MM, or the raw value if unparseable
	PatientName string `db:"patient_name" json:"patient_name" csv:"patient_name"`
	LastName    string `db:"last_name" json:"last_name" csv:"last_name"`
	Treatment   string `db:"treatment" json:"treatment" csv:"treatment"`
	Doctor      string `db:"doctor" json:"doctor" csv:"doctor"`
	Phone       string `db:"phone" json:"phone" csv:"phone"`
	Notes       string `db:"notes" json:"notes" csv:"notes"`
	Status      Status `db:"status" json:"status" csv:"status"`
	EstadoCita  string `db:"estado_cita" json:"estado_cita" csv:"estado_cita"` // Status text as shown in the sheet

	// Pass-through columns from the clinic software export
	NumPaciente string `db:"num_paciente" json:"num_paciente,omitempty" csv:"num_paciente"`
	Registro    string `db:"registro" json:"registro,omitempty" csv:"registro"`
	CitMod      string `db:"cit_mod" json:"cit_mod,omitempty" csv:"cit_mod"`
	FechaAlta   string `db:"fecha_alta" json:"fecha_alta,omitempty" csv:"fecha_alta"`
	Duration    string `db:"duration" json:"duration,omitempty" csv:"duration"`

	Source    string    `db:"source" json:"source" csv:"source"`
	CreatedAt time.Time `db:"created_at" json:"created_at" csv:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at" csv:"updated_at"`
}

// StatusOverride is a manual status correction that outlives re-syncs.
type StatusOverride struct {
	AppointmentID string    `db:"appointment_id" json:"appointment_id"`
	Status        Status    `db:"status" json:"status"`
	EstadoCita    string    `db:"estado_cita" json:"estado_cita"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// AppointmentFilter is the store-side filter over one source's appointments.
// Empty fields are not applied; Limit <= 0 means unbounded.
type AppointmentFilter struct {
	Source    string
	StartDate string
	EndDate   string
	Status    Status
	Limit     int
}

// AppointmentStats holds the dashboard counters.
type AppointmentStats struct {
	Total     int `json:"total"`
	Today     int `json:"today"`
	Confirmed int `json:"confirmed"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}
