package models

import "time"

// These structs define the JSON payloads exchanged between the portal UI
// (via the API gateway) and the worker Cloud Functions. The acting identity
// is not part of the body; it arrives in gateway-verified headers.

// CreateProjectRequest is the input for project-service /create.
type CreateProjectRequest struct {
	CustomerID        string   `json:"customerId"`
	CustomerName      string   `json:"customerName"`
	CompanyName       string   `json:"companyName"`
	AssignedStaffID   string   `json:"assignedStaffId,omitempty"`
	RequiredDocuments []string `json:"requiredDocuments"`
	RequiredForms     []string `json:"requiredForms"`
}

// SetProjectStatusRequest is the input for project-service /status.
type SetProjectStatusRequest struct {
	ProjectID string        `json:"projectId"`
	Status    ProjectStatus `json:"status"`
}

// AddNoteRequest is the input for project-service /note.
type AddNoteRequest struct {
	ProjectID  string `json:"projectId"`
	Content    string `json:"content"`
	IsInternal bool   `json:"isInternal"`
}

// ProjectOverviewResponse bundles everything the staff detail page shows.
type ProjectOverviewResponse struct {
	Project      *Project       `json:"project"`
	Documents    []Document     `json:"documents"`
	Forms        []Form         `json:"forms"`
	Responses    []FormResponse `json:"responses"`
	Appointments []Appointment  `json:"appointments"`
}

// UploadDocumentRequest is the input for document-service /upload. Data is
// base64 on the wire (encoding/json handles []byte natively).
type UploadDocumentRequest struct {
	ProjectID   string       `json:"projectId"`
	CustomerID  string       `json:"customerId"`
	Type        DocumentType `json:"type"`
	Required    bool         `json:"required"`
	FileName    string       `json:"fileName"`
	ContentType string       `json:"contentType"`
	Data        []byte       `json:"data"`
}

// ReuploadDocumentRequest is the input for document-service /reupload.
type ReuploadDocumentRequest struct {
	DocumentID  string `json:"documentId"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"data"`
}

// SetDocumentStatusRequest is the input for document-service /status.
type SetDocumentStatusRequest struct {
	DocumentID string         `json:"documentId"`
	Status     DocumentStatus `json:"status"`
	Reason     string         `json:"reason,omitempty"` // rejection reason
}

// RemoveDocumentRequest is the input for document-service /remove.
type RemoveDocumentRequest struct {
	DocumentID string `json:"documentId"`
}

// SubmitFormResponseRequest is the input for form-service /submit.
type SubmitFormResponseRequest struct {
	FormID    string         `json:"formId"`
	ProjectID string         `json:"projectId"`
	Responses map[string]any `json:"responses"`
}

// SetFormStatusRequest is the input for form-service /status.
type SetFormStatusRequest struct {
	FormID string     `json:"formId"`
	Status FormStatus `json:"status"`
}

// ScheduleCallRequest is the input for scheduling-service /schedule.
type ScheduleCallRequest struct {
	ProjectID  string          `json:"projectId"`
	CustomerID string          `json:"customerId"`
	Date       time.Time       `json:"date"`
	Time       string          `json:"time"`
	Duration   int             `json:"duration,omitempty"` // minutes, default 30
	Type       AppointmentType `json:"type,omitempty"`     // default onboarding
	Notes      string          `json:"notes,omitempty"`
}

// CancelAppointmentRequest is the input for scheduling-service /cancel.
type CancelAppointmentRequest struct {
	AppointmentID string `json:"appointmentId"`
}

// CompleteAppointmentRequest is the input for scheduling-service /complete.
type CompleteAppointmentRequest struct {
	AppointmentID string `json:"appointmentId"`
	Notes         string `json:"notes,omitempty"`
}

// AvailableSlotsResponse is the output of scheduling-service /slots.
type AvailableSlotsResponse struct {
	Date  time.Time `json:"date"`
	Slots []string  `json:"slots"`
}
