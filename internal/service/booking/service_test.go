package booking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	records "github.com/civibot-ba/backend/internal/model/records"
	recordsapi "github.com/civibot-ba/backend/internal/service/records"
)

type collector struct {
	messages []string
}

func (c *collector) PushBot(_ string, content string) {
	c.messages = append(c.messages, content)
}

// backendState configures the httptest records API shared by the workflow
// tests.
type backendState struct {
	citizenStatus   int
	detailStatus    int
	procedures      string
	appointmentID   string
	creations       atomic.Int32
	lastAppointment records.AppointmentRequest
}

func newBackend(t *testing.T, state *backendState) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/citizens/30111222", func(w http.ResponseWriter, r *http.Request) {
		if state.citizenStatus != 0 {
			w.WriteHeader(state.citizenStatus)
			_, _ = w.Write([]byte(`{"error":"Citizen lookup failed","status":404,"body":{"detail":"DNI no encontrado. Debes registrarte antes de solicitar turno."}}`))
			return
		}
		_, _ = w.Write([]byte(`{"dni":"30111222","first_name":"Juan","last_name":"Pérez"}`))
	})
	mux.HandleFunc("/departments/5", func(w http.ResponseWriter, r *http.Request) {
		if state.detailStatus != 0 {
			w.WriteHeader(state.detailStatus)
			return
		}
		_, _ = w.Write([]byte(`{"id":"5","name":"Departamento de Tránsito","address":"Av. Roca 5252"}`))
	})
	mux.HandleFunc("/departments", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"3","name":"Salud","address":"Otra 1"},{"id":"5","name":"Departamento de Tránsito","address":"Av. Roca 5252"}]`))
	})
	mux.HandleFunc("/departments/5/procedures", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(state.procedures))
	})
	mux.HandleFunc("/turnos/", func(w http.ResponseWriter, r *http.Request) {
		state.creations.Add(1)
		_ = json.NewDecoder(r.Body).Decode(&state.lastAppointment)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"` + state.appointmentID + `"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func bookingRequest() records.BookingRequest {
	return records.BookingRequest{
		DNI:            "30111222",
		DepartmentID:   "5",
		DepartmentName: "Departamento de Tránsito",
		Date:           "2025-03-10",
		Time:           "10:00",
		Reason:         "necesito renovar mi licencia",
	}
}

func TestBookSuccessEmitsConfirmation(t *testing.T) {
	state := &backendState{
		procedures:    `[{"id":"proc-lic","name":"Renovación de Licencia","department_id":"5"},{"id":"proc-dup","name":"Duplicado de Licencia","department_id":"5"}]`,
		appointmentID: "abcd1234-ef56-7890",
	}
	srv := newBackend(t, state)

	sink := &collector{}
	NewService(recordsapi.NewClient(srv.URL), sink).Book(context.Background(), "session-1", bookingRequest())

	if len(sink.messages) != 4 {
		t.Fatalf("expected 4 confirmation messages, got %d: %v", len(sink.messages), sink.messages)
	}
	if sink.messages[0] != "✅ Turno solicitado exitosamente para Juan Pérez!" {
		t.Fatalf("unexpected headline: %q", sink.messages[0])
	}
	if !strings.Contains(sink.messages[1], "Renovación de Licencia") {
		t.Fatalf("details miss the selected procedure: %q", sink.messages[1])
	}
	if !strings.Contains(sink.messages[1], "#abcd1234") {
		t.Fatalf("details miss the confirmation number: %q", sink.messages[1])
	}
	if !strings.Contains(sink.messages[2], "https://www.google.com/maps/search/?api=1&query=Av.+Roca+5252") {
		t.Fatalf("map line misses the office address: %q", sink.messages[2])
	}
	if !strings.Contains(sink.messages[3], "4323-9400") {
		t.Fatalf("footer misses the phone: %q", sink.messages[3])
	}

	if state.lastAppointment.ProcedureID != "proc-lic" {
		t.Fatalf("unexpected procedure booked: %+v", state.lastAppointment)
	}
	if state.lastAppointment.ScheduledAt != "2025-03-10T10:00:00.000Z" {
		t.Fatalf("unexpected scheduled_at: %q", state.lastAppointment.ScheduledAt)
	}
}

func TestBookAbortsWhenCitizenUnknown(t *testing.T) {
	state := &backendState{
		citizenStatus: http.StatusNotFound,
		procedures:    `[{"id":"proc-lic","name":"Renovación de Licencia"}]`,
		appointmentID: "never",
	}
	srv := newBackend(t, state)

	sink := &collector{}
	NewService(recordsapi.NewClient(srv.URL), sink).Book(context.Background(), "session-1", bookingRequest())

	if len(sink.messages) != 2 {
		t.Fatalf("expected failure pair, got %d: %v", len(sink.messages), sink.messages)
	}
	if sink.messages[0] != "❌ DNI no encontrado. Debes registrarte antes de solicitar turno." {
		t.Fatalf("unexpected failure message: %q", sink.messages[0])
	}
	if !strings.Contains(sink.messages[1], "registrarte") {
		t.Fatalf("unexpected hint: %q", sink.messages[1])
	}
	if state.creations.Load() != 0 {
		t.Fatal("aborted booking must not create an appointment")
	}
}

func TestBookAbortsWhenDepartmentHasNoProcedures(t *testing.T) {
	state := &backendState{procedures: "[]", appointmentID: "never"}
	srv := newBackend(t, state)

	sink := &collector{}
	NewService(recordsapi.NewClient(srv.URL), sink).Book(context.Background(), "session-1", bookingRequest())

	if len(sink.messages) != 2 {
		t.Fatalf("expected failure pair, got %d: %v", len(sink.messages), sink.messages)
	}
	if !strings.Contains(sink.messages[0], "no tiene trámites disponibles") {
		t.Fatalf("unexpected message: %q", sink.messages[0])
	}
	if state.creations.Load() != 0 {
		t.Fatal("empty catalog must not create an appointment")
	}
}

func TestBookRecoversAddressFromListing(t *testing.T) {
	state := &backendState{
		detailStatus:  http.StatusInternalServerError,
		procedures:    `[{"id":"proc-lic","name":"Renovación de Licencia"}]`,
		appointmentID: "abcd1234",
	}
	srv := newBackend(t, state)

	sink := &collector{}
	NewService(recordsapi.NewClient(srv.URL), sink).Book(context.Background(), "session-1", bookingRequest())

	if len(sink.messages) != 4 {
		t.Fatalf("expected confirmation despite detail failure, got %d: %v", len(sink.messages), sink.messages)
	}
	if !strings.Contains(sink.messages[2], "Av.+Roca+5252") {
		t.Fatalf("expected address recovered from listing, got %q", sink.messages[2])
	}
}

func TestBookCreationFailureSurfacesDetail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/citizens/30111222", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"dni":"30111222","first_name":"Juan","last_name":"Pérez"}`))
	})
	mux.HandleFunc("/departments/5", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"5","name":"Departamento de Tránsito","address":"Av. Roca 5252"}`))
	})
	mux.HandleFunc("/departments/5/procedures", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"proc-lic","name":"Renovación de Licencia"}]`))
	})
	mux.HandleFunc("/turnos/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"detail":"Ya existe un turno para ese horario"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sink := &collector{}
	NewService(recordsapi.NewClient(srv.URL), sink).Book(context.Background(), "session-1", bookingRequest())

	if len(sink.messages) != 2 {
		t.Fatalf("expected failure pair, got %d: %v", len(sink.messages), sink.messages)
	}
	if sink.messages[0] != "❌ Error al crear el turno: Ya existe un turno para ese horario" {
		t.Fatalf("unexpected failure message: %q", sink.messages[0])
	}
}
