package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	records "github.com/civibot-ba/backend/internal/model/records"
)

// APIError carries the upstream failure detail the proxy layer's error
// envelope exposes. Error() returns citizen-presentable text when a detail
// is available.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("records backend returned status %d", e.Status)
}

// Client talks to the municipal records API through the intermediating
// proxy. Every non-2xx or malformed response is returned as an error, never
// a panic.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a records client for the given base URL, e.g.
// "http://localhost:8000/api/v1".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// GetCitizen looks up the registry entry for a DNI.
func (c *Client) GetCitizen(ctx context.Context, dni string) (records.Citizen, error) {
	var citizen records.Citizen
	err := c.getJSON(ctx, "/citizens/"+dni, &citizen)
	return citizen, err
}

// ListDepartments returns every department with its office address.
func (c *Client) ListDepartments(ctx context.Context) ([]records.Department, error) {
	var departments []records.Department
	err := c.getJSON(ctx, "/departments", &departments)
	return departments, err
}

// GetDepartment fetches a single department's details.
func (c *Client) GetDepartment(ctx context.Context, id string) (records.Department, error) {
	var department records.Department
	err := c.getJSON(ctx, "/departments/"+id, &department)
	return department, err
}

// ListDepartmentProcedures returns the procedures bookable under one
// department. An empty slice means "no procedures", not an error.
func (c *Client) ListDepartmentProcedures(ctx context.Context, id string) ([]records.Procedure, error) {
	var procedures []records.Procedure
	err := c.getJSON(ctx, "/departments/"+id+"/procedures", &procedures)
	return procedures, err
}

// ListProcedures returns the full procedure catalog across departments.
func (c *Client) ListProcedures(ctx context.Context) ([]records.Procedure, error) {
	var procedures []records.Procedure
	err := c.getJSON(ctx, "/procedures", &procedures)
	return procedures, err
}

// CreateAppointment persists a booking. On non-2xx the returned error is an
// *APIError carrying whatever detail text the backend provided.
func (c *Client) CreateAppointment(ctx context.Context, req records.AppointmentRequest) (records.Appointment, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return records.Appointment{}, fmt.Errorf("marshal appointment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/turnos/", bytes.NewReader(payload))
	if err != nil {
		return records.Appointment{}, fmt.Errorf("build appointment request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return records.Appointment{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return records.Appointment{}, decodeError(resp)
	}

	var appointment records.Appointment
	if err := json.NewDecoder(resp.Body).Decode(&appointment); err != nil {
		return records.Appointment{}, fmt.Errorf("decode appointment response: %w", err)
	}
	return appointment, nil
}

func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build records request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode records response for %s: %w", path, err)
	}
	return nil
}

// errorEnvelope is the shape the proxy layer normalizes failures into:
// {error, status, body}. Backends reached directly answer {detail} instead,
// so both spellings are handled.
type errorEnvelope struct {
	Error  string          `json:"error"`
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
	Detail string          `json:"detail"`
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return apiErr
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return apiErr
	}

	apiErr.Detail = envelope.Detail
	if apiErr.Detail == "" && len(envelope.Body) > 0 {
		var nested struct {
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(envelope.Body, &nested); err == nil {
			apiErr.Detail = nested.Detail
		}
	}
	return apiErr
}
