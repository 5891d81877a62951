package models

import "time"

// AppointmentStatus is the lifecycle state of a scheduled call.
// scheduled → {completed, cancelled}; both end states are terminal.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// AppointmentType categorizes a call.
type AppointmentType string

const (
	CallOnboarding AppointmentType = "onboarding"
	CallFollowUp   AppointmentType = "follow-up"
	CallReview     AppointmentType = "review"
)

// Appointment is a scheduled onboarding call. Appointments are never hard
// deleted; cancellation and completion are status transitions.
type Appointment struct {
	ID         string `firestore:"-" json:"id"`
	ProjectID  string `firestore:"projectId" json:"projectId"`
	CustomerID string `firestore:"customerId" json:"customerId"`

	Date     time.Time         `firestore:"date" json:"date"`
	Time     string            `firestore:"time" json:"time"` // slot label, e.g. "09:00 AM"
	Duration int               `firestore:"duration" json:"duration"` // minutes
	Type     AppointmentType   `firestore:"type" json:"type"`
	Status   AppointmentStatus `firestore:"status" json:"status"`
	Notes    string            `firestore:"notes,omitempty" json:"notes,omitempty"`

	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
	CreatedBy string    `firestore:"createdBy" json:"createdBy"`
	UpdatedAt time.Time `firestore:"updatedAt" json:"updatedAt"`
}
