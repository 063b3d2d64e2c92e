// backend/scraper/row_mapper.go
package scraper

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gewnthar/dentalportal/backend/models"
)

// Logical fields resolved through FieldAliases.
const (
	FieldFecha       = "fecha"
	FieldHora        = "hora"
	FieldNombre      = "nombre"
	FieldApellidos   = "apellidos"
	FieldNumPac      = "num_pac"
	FieldTratamiento = "tratamiento"
	FieldDoctor      = "doctor"
	FieldEstado      = "estado"
	FieldEstadoCita  = "estado_cita"
	FieldTelefono    = "telefono"
	FieldNotas       = "notas"
	FieldRegistro    = "registro"
	FieldCitMod      = "citmod"
	FieldFechaAlta   = "fecha_alta"
	FieldDuracion    = "duracion"
)

// FieldAliases lists, per logical field, the sheet headers accepted for it
// in priority order. Headers are edited by clinic staff, so this covers
// case variants, Spanish/English names and the clinic software's export names.
var FieldAliases = map[string][]string{
	FieldFecha:       {"Fecha", "Date", "fecha", "FECHA", "Día", "Dia", "Fecha Cita", "Fecha cita", "Fecha de la cita"},
	FieldHora:        {"Hora", "Time", "hora", "HORA", "Hora Cita", "Hora cita", "Hora de la cita", "Inicio", "Start Time", "Hora Inicio", "Hora de Entrada"},
	FieldNombre:      {"Nombre", "Name", "Nombre Paciente", "Nombre completo"},
	FieldApellidos:   {"Apellidos"},
	FieldNumPac:      {"NumPac", "Nº Paciente", "NumeroPaciente", "Número Paciente"},
	FieldTratamiento: {"Tratamiento", "Treatment", "tratamiento", "TRATAMIENTO", "Servicio", "Service", "Motivo", "Tipo", "Tipo de cita", "Servicio solicitado"},
	FieldDoctor:      {"Doctor", "Médico", "doctor", "DOCTOR", "Odontólogo", "Odontologo", "Profesional", "Doctor asignado"},
	FieldEstado:      {"Estado", "Status", "estado", "ESTADO", "Estatus", "Situación"},
	FieldEstadoCita:  {"EstadoCita", "Estado cita", "Estatus cita"},
	FieldTelefono:    {"Teléfono", "Phone", "telefono", "TELEFONO", "Tel", "Móvil", "Movil", "Celular", "Tfno", "Tlf", "Teléfono 1", "Teléfono móvil", "TelMovil"},
	FieldNotas:       {"Notas", "Notes", "notas", "NOTAS", "Observaciones", "Comentario", "Comentarios", "Observación"},
	FieldRegistro:    {"Registro"},
	FieldCitMod:      {"CitMod"},
	FieldFechaAlta:   {"FechaAlta"},
	FieldDuracion:    {"Duracion"},
}

// ResolveField returns the first non-blank value among the field's aliases.
func ResolveField(row RawRow, field string) string {
	for _, alias := range FieldAliases[field] {
		if v, ok := row.Get(alias); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// MapStats summarises one MapRows pass.
type MapStats struct {
	Rows        int // Raw rows seen
	Mapped      int // Appointments returned
	Skipped     int // Blank or structural rows
	Failed      int // Rows that panicked while mapping
	Duplicates  int // Rows replaced by a later row with the same external id
	UnparsedDay int // Dates kept verbatim
	UnparsedHr  int // Times kept verbatim
}

// RowMapper turns raw rows into canonical appointments for one source.
type RowMapper struct {
	source string
	now    func() time.Time
	log    zerolog.Logger
}

// NewRowMapper creates a mapper stamping appointments with source.
func NewRowMapper(source string, logger zerolog.Logger) *RowMapper {
	return &RowMapper{source: source, now: time.Now, log: logger}
}

// WithClock replaces the clock used for created_at/updated_at.
func (m *RowMapper) WithClock(now func() time.Time) *RowMapper {
	m.now = now
	return m
}

// MapRow maps a single row. It returns false for rows carrying no name,
// surname, date or time.
func (m *RowMapper) MapRow(row RawRow) (models.Appointment, bool) {
	nombre := ResolveField(row, FieldNombre)
	apellidos := ResolveField(row, FieldApellidos)
	fecha := ResolveField(row, FieldFecha)
	hora := ResolveField(row, FieldHora)

	if nombre == "" && apellidos == "" && fecha == "" && hora == "" {
		return models.Appointment{}, false
	}

	fullName := strings.TrimSpace(nombre + " " + apellidos)
	date := NormalizeDate(fecha)
	tm := NormalizeTime(hora)

	estado := ResolveField(row, FieldEstado)
	estadoCita := ResolveField(row, FieldEstadoCita)
	if estadoCita == "" {
		estadoCita = estado
	}

	now := m.now().UTC()
	return models.Appointment{
		ExternalID:  ExternalID(date, tm, fullName),
		Date:        date,
		Time:        tm,
		PatientName: fullName,
		LastName:    apellidos,
		Treatment:   ResolveField(row, FieldTratamiento),
		Doctor:      ResolveField(row, FieldDoctor),
		Phone:       ResolveField(row, FieldTelefono),
		Notes:       ResolveField(row, FieldNotas),
		Status:      NormalizeStatus(estadoCita),
		EstadoCita:  estadoCita,
		NumPaciente: ResolveField(row, FieldNumPac),
		Registro:    ResolveField(row, FieldRegistro),
		CitMod:      ResolveField(row, FieldCitMod),
		FechaAlta:   ResolveField(row, FieldFechaAlta),
		Duration:    ResolveField(row, FieldDuracion),
		Source:      m.source,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, true
}

// ExternalID derives the natural key of an appointment.
func ExternalID(date, tm, fullName string) string {
	return strings.ReplaceAll(fmt.Sprintf("%s_%s_%s", date, tm, fullName), " ", "_")
}

// MapRows maps a whole fetch. A row that panics is logged and skipped;
// when two rows share an external id the later one wins.
func (m *RowMapper) MapRows(rows []RawRow) ([]models.Appointment, MapStats) {
	stats := MapStats{Rows: len(rows)}
	out := make([]models.Appointment, 0, len(rows))
	index := make(map[string]int, len(rows))

	for i, row := range rows {
		appt, ok, err := m.safeMapRow(row)
		if err != nil {
			stats.Failed++
			m.log.Warn().Err(err).Int("row", i+2).Msg("skipping row that failed to map")
			continue
		}
		if !ok {
			stats.Skipped++
			continue
		}

		if _, parsed := ParseDate(appt.Date); !parsed && appt.Date != "" {
			stats.UnparsedDay++
			m.log.Warn().Str("date", appt.Date).Int("row", i+2).Msg("unrecognised date format, keeping original value")
		}
		if _, parsed := ParseTime(appt.Time); !parsed && appt.Time != "" {
			stats.UnparsedHr++
		}

		if pos, dup := index[appt.ExternalID]; dup {
			stats.Duplicates++
			out[pos] = appt
			continue
		}
		index[appt.ExternalID] = len(out)
		out = append(out, appt)
	}

	stats.Mapped = len(out)
	return out, stats
}

func (m *RowMapper) safeMapRow(row RawRow) (appt models.Appointment, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic mapping row: %v", r)
		}
	}()
	appt, ok = m.MapRow(row)
	return appt, ok, nil
}
