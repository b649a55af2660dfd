package records

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	records "github.com/civibot-ba/backend/internal/model/records"
)

func TestGetCitizenDecodesProxyEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/citizens/99999999" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Citizen lookup failed","status":404,"body":{"detail":"DNI no encontrado. Debes registrarte antes de solicitar turno."}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetCitizen(context.Background(), "99999999")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusNotFound {
		t.Fatalf("unexpected status %d", apiErr.Status)
	}
	if apiErr.Detail != "DNI no encontrado. Debes registrarte antes de solicitar turno." {
		t.Fatalf("unexpected detail %q", apiErr.Detail)
	}
}

func TestGetCitizenDecodesBareDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"DNI inválido"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetCitizen(context.Background(), "abc")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Detail != "DNI inválido" {
		t.Fatalf("unexpected detail %q", apiErr.Detail)
	}
}

func TestGetCitizenMalformedErrorBodyStillFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetCitizen(context.Background(), "30111222")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Detail != "" {
		t.Fatalf("expected no detail, got %q", apiErr.Detail)
	}
}

func TestListDepartmentProceduresEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/departments/5/procedures" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	procedures, err := NewClient(srv.URL).ListDepartmentProcedures(context.Background(), "5")
	if err != nil {
		t.Fatalf("ListDepartmentProcedures err: %v", err)
	}
	if len(procedures) != 0 {
		t.Fatalf("expected empty list, got %+v", procedures)
	}
}

func TestCreateAppointmentPostsPayload(t *testing.T) {
	var got records.AppointmentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/turnos/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"abcd1234-ef56"}`))
	}))
	defer srv.Close()

	created, err := NewClient(srv.URL).CreateAppointment(context.Background(), records.AppointmentRequest{
		ProcedureID: "proc-1",
		CitizenDNI:  "30111222",
		ScheduledAt: "2025-03-10T10:00:00.000Z",
	})
	if err != nil {
		t.Fatalf("CreateAppointment err: %v", err)
	}
	if created.ID != "abcd1234-ef56" {
		t.Fatalf("unexpected appointment: %+v", created)
	}
	if got.ProcedureID != "proc-1" || got.CitizenDNI != "30111222" || got.ScheduledAt != "2025-03-10T10:00:00.000Z" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}
