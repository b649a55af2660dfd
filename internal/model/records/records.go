package records

// Citizen is the registry entry looked up by DNI before a booking starts.
// Only the name fields feed the confirmation text.
type Citizen struct {
	DNI       string `json:"dni"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
}

// Department is an administrative unit offering procedures at a physical
// office address. Address may be empty when the detail endpoint fails; the
// booking workflow recovers it from the full listing in that case.
type Department struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// DepartmentRef is the nested department annotation some procedure listings
// carry.
type DepartmentRef struct {
	Name string `json:"name"`
}

// Procedure is a bookable municipal service inside a department.
type Procedure struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	DepartmentID string         `json:"department_id,omitempty"`
	Department   *DepartmentRef `json:"departments,omitempty"`
}

// AppointmentRequest is the creation payload for POST /turnos.
type AppointmentRequest struct {
	ProcedureID string `json:"procedure_id"`
	CitizenDNI  string `json:"citizen_dni"`
	ScheduledAt string `json:"scheduled_at"`
}

// Appointment is the persisted booking returned by the records backend.
// Immutable once created; the first 8 characters of ID become the citizen's
// confirmation number.
type Appointment struct {
	ID          string `json:"id"`
	ProcedureID string `json:"procedure_id,omitempty"`
	CitizenDNI  string `json:"citizen_dni,omitempty"`
	ScheduledAt string `json:"scheduled_at,omitempty"`
}
