package records

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// BookingRequest is the appointment form submission that triggers the
// booking workflow. Validation mirrors the form the citizen fills in, so a
// request that bypasses the UI is held to the same rules.
type BookingRequest struct {
	DNI            string `json:"dni"`
	DepartmentID   string `json:"departmentId"`
	DepartmentName string `json:"departmentName"`
	Date           string `json:"date"` // YYYY-MM-DD
	Time           string `json:"time"` // HH:MM
	Reason         string `json:"reason"`
}

var (
	ErrInvalidDNI     = errors.New("Ingresa un DNI válido (7-10 dígitos, solo números).")
	ErrNoDepartment   = errors.New("Selecciona un departamento.")
	ErrNoDate         = errors.New("Selecciona una fecha.")
	ErrPastDate       = errors.New("La fecha debe ser posterior al día de hoy.")
	ErrNotWeekday     = errors.New("Solo se permiten días de lunes a viernes.")
	ErrNoTime         = errors.New("Selecciona un horario.")
	ErrInvalidTime    = errors.New("El horario debe ser 09:00, 10:00, 11:00, 14:00, 15:00 o 16:00.")
	ErrMissingReason  = errors.New("Indica brevemente el motivo de la consulta.")
)

var dniPattern = regexp.MustCompile(`^\d{7,10}$`)

// Office hours allow six fixed slots per weekday.
var allowedTimes = map[string]struct{}{
	"09:00": {}, "10:00": {}, "11:00": {},
	"14:00": {}, "15:00": {}, "16:00": {},
}

// Validate checks the request against the booking rules relative to now.
// The returned error message is shown to the citizen as-is.
func (r BookingRequest) Validate(now time.Time) error {
	if !dniPattern.MatchString(r.DNI) {
		return ErrInvalidDNI
	}
	if r.DepartmentID == "" {
		return ErrNoDepartment
	}
	if r.Date == "" {
		return ErrNoDate
	}
	day, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return ErrNoDate
	}
	if r.Date <= now.Format("2006-01-02") {
		return ErrPastDate
	}
	if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return ErrNotWeekday
	}
	if r.Time == "" {
		return ErrNoTime
	}
	if _, ok := allowedTimes[r.Time]; !ok {
		return ErrInvalidTime
	}
	if strings.TrimSpace(r.Reason) == "" {
		return ErrMissingReason
	}
	return nil
}

// ScheduledAt combines date and time into the single UTC instant the records
// backend stores.
func (r BookingRequest) ScheduledAt() string {
	return r.Date + "T" + r.Time + ":00.000Z"
}
