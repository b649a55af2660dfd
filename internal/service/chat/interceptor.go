package chat

import (
	"context"
	"fmt"
	"log"
	"strings"

	chatmodel "github.com/civibot-ba/backend/internal/model/chat"
	records "github.com/civibot-ba/backend/internal/model/records"
)

// Local commands answered without contacting the assistant.
const (
	cmdContactInfo = "/request_contact_info"
	cmdEmergency   = "/report_emergency"
	cmdFAQ         = "/ask_faq"
	cmdProcedures  = "/list_procedures_ui"
)

const (
	contactInfoText = "📞 Información de Contacto:\n\n• Teléfono: 4323-9400\n• Email: info@buenosaires.gob.ar\n• Dirección: Av. de Mayo 525, CABA\n• Horario: Lunes a Viernes 8:00-18:00"

	emergencyText = "🚨 Contactos de Emergencia:\n\n• Policía: 911\n• SAME (Emergencias Médicas): 107\n• Bomberos: 100\n• Defensa Civil: 103\n• Violencia de Género: 144"

	faqMenuText = "📄 Trámites frecuentes:\n\n• Cómo cambio el domicilio en mi DNI?\n• Licencia de Conducir\n• Cómo saco turno en un Centro de Salud (CeSAC)?\n\nSeleccioná una opción:"

	proceduresUnavailableText = "No pude obtener los trámites en este momento. Intenta más tarde."
	proceduresEmptyText       = "No hay trámites disponibles por ahora."
	proceduresHeader          = "Podés solicitar turno para:"
)

// The listing shows at most this many procedures.
const procedureListLimit = 8

// ProcedureCatalog supplies the catalog behind the /list_procedures_ui
// command.
type ProcedureCatalog interface {
	ListProcedures(ctx context.Context) ([]records.Procedure, error)
}

// Interceptor resolves the closed set of local commands to canned bot
// replies. It is the single gate deciding local-vs-remote: anything it does
// not recognize is forwarded to the assistant. It never mutates the message
// list itself; the session coordinator appends whatever it returns.
type Interceptor struct {
	catalog ProcedureCatalog
}

// NewInterceptor builds the command gate.
func NewInterceptor(catalog ProcedureCatalog) *Interceptor {
	return &Interceptor{catalog: catalog}
}

// Intercept returns the locally generated messages for a recognized command
// and reports whether the content was handled.
func (i *Interceptor) Intercept(ctx context.Context, content string) ([]chatmodel.Message, bool) {
	switch content {
	case cmdContactInfo:
		return []chatmodel.Message{botMessage(contactInfoText)}, true
	case cmdEmergency:
		return []chatmodel.Message{botMessage(emergencyText)}, true
	case cmdFAQ:
		msg := botMessage(faqMenuText)
		msg.Buttons = faqButtons()
		return []chatmodel.Message{msg}, true
	case cmdProcedures:
		return []chatmodel.Message{i.listProcedures(ctx)}, true
	}
	return nil, false
}

// faqButtons are explicit intents carrying the category entity so the
// assistant answers deterministically.
func faqButtons() []chatmodel.Button {
	return []chatmodel.Button{
		{Title: "Solicitud de DNI", Payload: `/faq_gcba{"process_category":"Registro Civil y DNI"}`},
		{Title: "Licencia de Conducir", Payload: `/faq_gcba{"process_category":"Licencias de Conducir"}`},
		{Title: "CeSAC", Payload: `/faq_gcba{"process_category":"Salud"}`},
	}
}

// listProcedures builds the catalog reply. Failures degrade to an apology
// message; the caller never sees an error.
func (i *Interceptor) listProcedures(ctx context.Context) chatmodel.Message {
	procedures, err := i.catalog.ListProcedures(ctx)
	if err != nil {
		log.Printf("[chat] procedure listing failed: %v", err)
		return botMessage(proceduresUnavailableText)
	}
	if len(procedures) == 0 {
		return botMessage(proceduresEmptyText)
	}

	if len(procedures) > procedureListLimit {
		procedures = procedures[:procedureListLimit]
	}

	lines := []string{proceduresHeader}
	for _, p := range procedures {
		name := p.Name
		if name == "" {
			name = "(sin nombre)"
		}
		if p.Department != nil && p.Department.Name != "" {
			lines = append(lines, fmt.Sprintf("• %s — %s", name, p.Department.Name))
		} else {
			lines = append(lines, "• "+name)
		}
	}
	return botMessage(strings.Join(lines, "\n"))
}
