// backend/services/patient_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gewnthar/dentalportal/backend/models"
	"github.com/gewnthar/dentalportal/backend/utils"
)

// ErrInvalidPatient is returned when a manual patient fails validation.
var ErrInvalidPatient = errors.New("invalid patient")

const (
	sourceAppointments = "appointments"
	sourceManual       = "manual"
)

// PatientStore persists manually entered patients.
type PatientStore interface {
	CreatePatient(ctx context.Context, p *models.Patient) error
	ListPatients(ctx context.Context) ([]models.Patient, error)
}

// PatientService builds the patient directory from synced appointments
// and manual records.
type PatientService struct {
	source   string
	appts    AppointmentStore
	patients PatientStore
	loc      *time.Location
	now      func() time.Time
	log      zerolog.Logger
}

func NewPatientService(source string, appts AppointmentStore, patients PatientStore, loc *time.Location, logger zerolog.Logger) *PatientService {
	if loc == nil {
		loc = time.Local
	}
	return &PatientService{source: source, appts: appts, patients: patients, loc: loc, now: time.Now, log: logger}
}

// patientKey groups records belonging to the same person: the folded name,
// or the phone digits when there is no name.
func patientKey(name, phone string) string {
	if k := utils.FoldName(name); k != "" {
		return "name:" + k
	}
	if d := utils.PhoneDigits(phone); d != "" {
		return "phone:" + d
	}
	return ""
}

// Directory returns one entry per distinct patient, sorted by name.
// search filters on a case- and accent-insensitive name substring or
// on phone digits.
func (s *PatientService) Directory(ctx context.Context, search string) ([]models.PatientEntry, error) {
	appts, err := s.appts.ListAppointments(ctx, models.AppointmentFilter{Source: s.source})
	if err != nil {
		return nil, fmt.Errorf("failed to load appointments for directory: %w", err)
	}
	manual, err := s.patients.ListPatients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load patients: %w", err)
	}

	today := s.now().In(s.loc).Format("2006-01-02")
	entries := make(map[string]*models.PatientEntry)
	phoneSeen := make(map[string]map[string]bool)

	get := func(key, name string) *models.PatientEntry {
		e, ok := entries[key]
		if !ok {
			e = &models.PatientEntry{Key: key, Name: name, Phones: []string{}, Sources: []string{}}
			entries[key] = e
			phoneSeen[key] = make(map[string]bool)
		}
		return e
	}
	addPhone := func(key, phone string) {
		d := utils.PhoneDigits(phone)
		if d == "" || phoneSeen[key][d] {
			return
		}
		phoneSeen[key][d] = true
		entries[key].Phones = append(entries[key].Phones, strings.TrimSpace(phone))
	}
	addSource := func(e *models.PatientEntry, src string) {
		for _, s := range e.Sources {
			if s == src {
				return
			}
		}
		e.Sources = append(e.Sources, src)
	}

	for _, a := range appts {
		key := patientKey(a.PatientName, a.Phone)
		if key == "" {
			continue
		}
		e := get(key, a.PatientName)
		addSource(e, sourceAppointments)
		addPhone(key, a.Phone)
		e.AppointmentCount++
		if e.NumPaciente == "" {
			e.NumPaciente = a.NumPaciente
		}
		if !isISODate(a.Date) {
			continue
		}
		if a.Date < today && a.Date > e.LastVisit {
			e.LastVisit = a.Date
		}
		if a.Date >= today && (e.NextAppointment == "" || a.Date < e.NextAppointment) {
			e.NextAppointment = a.Date
		}
	}

	for _, p := range manual {
		key := patientKey(p.FullName(), p.Phone)
		if key == "" {
			continue
		}
		e := get(key, p.FullName())
		// Manual records are curated by staff and win over sheet spelling.
		e.Name = p.FullName()
		e.PatientID = p.ID
		if p.NumPaciente != "" {
			e.NumPaciente = p.NumPaciente
		}
		if d := utils.PhoneDigits(p.Phone); d != "" && !phoneSeen[key][d] {
			phoneSeen[key][d] = true
			e.Phones = append([]string{strings.TrimSpace(p.Phone)}, e.Phones...)
		}
		addSource(e, sourceManual)
	}

	needle := utils.FoldName(search)
	needleDigits := utils.PhoneDigits(search)
	out := make([]models.PatientEntry, 0, len(entries))
	for _, e := range entries {
		if needle != "" && !matchesSearch(e, needle, needleDigits) {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		ni, nj := utils.FoldName(out[i].Name), utils.FoldName(out[j].Name)
		if ni != nj {
			return ni < nj
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func matchesSearch(e *models.PatientEntry, needle, digits string) bool {
	if strings.Contains(utils.FoldName(e.Name), needle) {
		return true
	}
	if digits == "" {
		return false
	}
	for _, p := range e.Phones {
		if strings.Contains(utils.PhoneDigits(p), digits) {
			return true
		}
	}
	return false
}

func isISODate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// Create validates and stores a manual patient.
func (s *PatientService) Create(ctx context.Context, req models.CreatePatientRequest) (models.Patient, error) {
	first := strings.TrimSpace(req.FirstName)
	if first == "" {
		return models.Patient{}, fmt.Errorf("%w: first_name is required", ErrInvalidPatient)
	}
	email := strings.TrimSpace(req.Email)
	if email != "" && !strings.Contains(email, "@") {
		return models.Patient{}, fmt.Errorf("%w: email %q is not valid", ErrInvalidPatient, email)
	}

	now := s.now().UTC()
	p := models.Patient{
		ID:          uuid.NewString(),
		FirstName:   first,
		LastName:    strings.TrimSpace(req.LastName),
		Phone:       strings.TrimSpace(req.Phone),
		Email:       email,
		NumPaciente: strings.TrimSpace(req.NumPaciente),
		Notes:       strings.TrimSpace(req.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.patients.CreatePatient(ctx, &p); err != nil {
		return models.Patient{}, fmt.Errorf("failed to create patient: %w", err)
	}
	s.log.Info().Str("patient_id", p.ID).Msg("patient created")
	return p, nil
}
