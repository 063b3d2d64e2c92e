// backend/models/api_models.go
package models

// StatusUpdateRequest is the optional JSON body for POST /api/appointments/:id/status.
// The same values are also accepted as query parameters.
type StatusUpdateRequest struct {
	NewStatus      string `json:"new_status"`
	EstadoCitaText string `json:"estado_cita_text"`
}

// StatusUpdateResponse echoes the stored override.
type StatusUpdateResponse struct {
	Success    bool   `json:"success"`
	ID         string `json:"id"`
	Status     Status `json:"status"`
	EstadoCita string `json:"estado_cita"`
}

// CreatePatientRequest is the JSON body for POST /api/patients.
type CreatePatientRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	NumPaciente string `json:"num_paciente"`
	Notes       string `json:"notes"`
}

// AppointmentQuery carries the list endpoint's query parameters.
type AppointmentQuery struct {
	StartDate string
	EndDate   string
	Status    Status
	Patient   string // Case-insensitive substring of the patient name
	Limit     int
}

// HeadersResponse is returned by GET /api/appointments/sync/headers.
type HeadersResponse struct {
	Headers  []string `json:"headers"`
	RowCount int      `json:"row_count"`
}
