package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"

	records "github.com/civibot-ba/backend/internal/model/records"
	recordsapi "github.com/civibot-ba/backend/internal/service/records"
)

const (
	contactPhone       = "4323-9400"
	addressUnavailable = "Dirección no disponible"
	cityQualifier      = "Buenos Aires"
	mapsSearchURL      = "https://www.google.com/maps/search/?api=1&query="

	dniNotFoundDefault = "DNI no encontrado. Debes registrarte antes de solicitar turno."
	registrationHint   = "ℹ️ Puedes registrarte proporcionando tu DNI, nombre y correo en el sistema."

	proceduresFetchFailedText = "❌ No se pudieron obtener los trámites del departamento seleccionado. Intenta más tarde."
	proceduresFetchPhoneText  = "📞 Si necesitas asistencia inmediata, contacta al " + contactPhone + "."

	proceduresEmptyText      = "ℹ️ El departamento seleccionado no tiene trámites disponibles en este momento."
	proceduresEmptyPhoneText = "📞 Puedes llamar al " + contactPhone + " para más información."

	creationFailedPhoneText = "📞 Por favor, contacta al " + contactPhone + " para solicitar tu turno manualmente"
	rescheduleFooterText    = "📞 Si necesitas reprogramar, contacta al " + contactPhone
)

// Records is the slice of the municipal records API the workflow composes.
type Records interface {
	GetCitizen(ctx context.Context, dni string) (records.Citizen, error)
	GetDepartment(ctx context.Context, id string) (records.Department, error)
	ListDepartments(ctx context.Context) ([]records.Department, error)
	ListDepartmentProcedures(ctx context.Context, id string) ([]records.Procedure, error)
	CreateAppointment(ctx context.Context, req records.AppointmentRequest) (records.Appointment, error)
}

// Notifier receives workflow output. The chat session implements it, so
// booking messages ride the same stream as conversational replies.
type Notifier interface {
	PushBot(sessionID, content string)
}

// Service drives the appointment-booking transaction. It keeps no state of
// its own: each Book call is an independent request/response pipeline whose
// only observable effect (besides the created appointment) is the bot
// messages it pushes.
type Service struct {
	records Records
	notify  Notifier
}

// NewService wires the workflow to the records backend and the message
// sink.
func NewService(backend Records, notify Notifier) *Service {
	return &Service{records: backend, notify: notify}
}

// Book runs the booking transaction end to end. Every failure state
// converts to a bot message pair (explanation + phone fallback) and aborts;
// no error escapes to the caller. Success emits the four-message
// confirmation.
func (s *Service) Book(ctx context.Context, sessionID string, req records.BookingRequest) {
	citizen, err := s.records.GetCitizen(ctx, req.DNI)
	if err != nil {
		log.Printf("[booking] citizen lookup failed for dni=%s: %v", req.DNI, err)
		s.notify.PushBot(sessionID, "❌ "+errDetail(err, dniNotFoundDefault))
		s.notify.PushBot(sessionID, registrationHint)
		return
	}

	// Department detail failure is non-fatal: the address is recovered from
	// the full listing after the appointment is created.
	var address string
	if dept, err := s.records.GetDepartment(ctx, req.DepartmentID); err != nil {
		log.Printf("[booking] department lookup failed for id=%s: %v", req.DepartmentID, err)
	} else {
		address = dept.Address
	}

	procedures, err := s.records.ListDepartmentProcedures(ctx, req.DepartmentID)
	if err != nil {
		log.Printf("[booking] procedure listing failed for department=%s: %v", req.DepartmentID, err)
		s.notify.PushBot(sessionID, proceduresFetchFailedText)
		s.notify.PushBot(sessionID, proceduresFetchPhoneText)
		return
	}
	if len(procedures) == 0 {
		s.notify.PushBot(sessionID, proceduresEmptyText)
		s.notify.PushBot(sessionID, proceduresEmptyPhoneText)
		return
	}

	procedure := SelectProcedure(procedures, req.Reason)

	created, err := s.records.CreateAppointment(ctx, records.AppointmentRequest{
		ProcedureID: procedure.ID,
		CitizenDNI:  req.DNI,
		ScheduledAt: req.ScheduledAt(),
	})
	if err != nil {
		log.Printf("[booking] appointment creation failed for dni=%s procedure=%s: %v", req.DNI, procedure.ID, err)
		s.notify.PushBot(sessionID, "❌ Error al crear el turno: "+errDetail(err, "Error desconocido"))
		s.notify.PushBot(sessionID, creationFailedPhoneText)
		return
	}

	if address == "" {
		address = s.recoverAddress(ctx, req.DepartmentID)
	}

	log.Printf("[booking] appointment %s created for session=%s", created.ID, sessionID)

	citizenName := citizen.FirstName + " " + citizen.LastName
	s.notify.PushBot(sessionID, fmt.Sprintf("✅ Turno solicitado exitosamente para %s!", citizenName))
	s.notify.PushBot(sessionID, detailsLine(req, procedure, address, created))
	s.notify.PushBot(sessionID, mapLine(req, address))
	s.notify.PushBot(sessionID, rescheduleFooterText)
}

// recoverAddress falls back to the full department listing when the detail
// endpoint gave no address.
func (s *Service) recoverAddress(ctx context.Context, departmentID string) string {
	departments, err := s.records.ListDepartments(ctx)
	if err != nil {
		log.Printf("[booking] department list fallback failed: %v", err)
		return ""
	}
	for _, dept := range departments {
		if dept.ID == departmentID {
			return dept.Address
		}
	}
	return ""
}

func detailsLine(req records.BookingRequest, procedure records.Procedure, address string, created records.Appointment) string {
	addressText := address
	if addressText == "" {
		addressText = addressUnavailable
	}
	return fmt.Sprintf(
		"📋 Detalles: • Trámite: %s • Departamento: %s • Oficina %s: %s • Fecha: %s • Hora: %s • Número de confirmación: #%s",
		procedure.Name, req.DepartmentName, req.DepartmentName, addressText,
		req.Date, req.Time, confirmationNumber(created.ID),
	)
}

func mapLine(req records.BookingRequest, address string) string {
	query := address
	if query == "" {
		query = req.DepartmentName + " " + cityQualifier
	}
	return "🗺️ Mapa: " + mapsSearchURL + url.QueryEscape(query)
}

// confirmationNumber is the first 8 characters of the appointment ID.
func confirmationNumber(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// errDetail surfaces the upstream detail text when the failure carries one.
func errDetail(err error, fallback string) string {
	var apiErr *recordsapi.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}
