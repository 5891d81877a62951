package models

import "time"

// ProjectStatus tracks the overall health of an onboarding engagement.
type ProjectStatus string

const (
	ProjectOnTrack   ProjectStatus = "On Track"
	ProjectDelayed   ProjectStatus = "Delayed"
	ProjectCompleted ProjectStatus = "Completed"
)

// ActorRole identifies who performed a mutation.
type ActorRole string

const (
	RoleCustomer ActorRole = "customer"
	RoleStaff    ActorRole = "staff"
	RoleSystem   ActorRole = "system"
)

// Actor is the resolved identity passed into every mutating operation.
// The core never reads ambient session state; the gateway resolves the
// caller and hands us this pair.
type Actor struct {
	ID   string    `json:"id"`
	Role ActorRole `json:"role"`
}

// SystemActor attributes automated mutations such as recomputation after a
// deletion.
var SystemActor = Actor{ID: "system", Role: RoleSystem}

// Project is the onboarding engagement aggregate. It is the single shared
// mutable record in the system: every lifecycle manager writes progress,
// activities or denormalized tag lists onto it, so all mutations must go
// through the store's transactional project mutator.
type Project struct {
	ID           string        `firestore:"-" json:"id"`
	CustomerID   string        `firestore:"customerId" json:"customerId"`
	CustomerName string        `firestore:"customerName" json:"customerName"`
	CompanyName  string        `firestore:"companyName" json:"companyName"`
	Status       ProjectStatus `firestore:"status" json:"status"`

	// Progress is a derived value: round(100 * done / required) over the
	// project's required items at the last recompute. Never set directly;
	// the progress aggregator owns it.
	Progress int `firestore:"progress" json:"progress"`

	StartDate     time.Time  `firestore:"startDate" json:"startDate"`
	Documents     TagSet     `firestore:"documents" json:"documents"`
	Forms         FormTagSet `firestore:"forms" json:"forms"`
	CallScheduled *time.Time `firestore:"callScheduled" json:"callScheduled"`

	AssignedStaffID string `firestore:"assignedStaffId,omitempty" json:"assignedStaffId,omitempty"`

	Activities []ActivityLog `firestore:"activities" json:"activities"`
	Notes      []Note        `firestore:"notes" json:"notes"`

	LastUpdated time.Time `firestore:"lastUpdated" json:"lastUpdated"`

	// Version backs the optimistic-concurrency check on every project
	// write. Incremented by the store on each successful mutation.
	Version int64 `firestore:"version" json:"version"`
}

// TagSet holds the denormalized document-type bookkeeping on a project:
// which semantic types are required and which currently have a live upload.
type TagSet struct {
	Required []string `firestore:"required" json:"required"`
	Uploaded []string `firestore:"uploaded" json:"uploaded"`
}

// FormTagSet mirrors TagSet for form types.
type FormTagSet struct {
	Required  []string `firestore:"required" json:"required"`
	Completed []string `firestore:"completed" json:"completed"`
}

// ActivityType categorizes an audit-trail entry.
type ActivityType string

const (
	ActivityDocument ActivityType = "document"
	ActivityForm     ActivityType = "form"
	ActivityCall     ActivityType = "call"
	ActivityStatus   ActivityType = "status"
	ActivityNote     ActivityType = "note"
)

// ActivityLog is one immutable entry in a project's audit trail.
// Entries are append-only; nothing in the system mutates or removes them.
type ActivityLog struct {
	ID              string       `firestore:"id" json:"id"`
	Timestamp       time.Time    `firestore:"timestamp" json:"timestamp"`
	Type            ActivityType `firestore:"type" json:"type"`
	Description     string       `firestore:"description" json:"description"`
	PerformedBy     string       `firestore:"performedBy" json:"performedBy"`
	PerformedByType ActorRole    `firestore:"performedByType" json:"performedByType"`
	RelatedEntityID string       `firestore:"relatedEntityId,omitempty" json:"relatedEntityId,omitempty"`
}

// Note is a free-text annotation on a project. Internal notes are visible
// to staff only.
type Note struct {
	ID            string    `firestore:"id" json:"id"`
	Content       string    `firestore:"content" json:"content"`
	CreatedAt     time.Time `firestore:"createdAt" json:"createdAt"`
	CreatedBy     string    `firestore:"createdBy" json:"createdBy"`
	CreatedByType ActorRole `firestore:"createdByType" json:"createdByType"`
	IsInternal    bool      `firestore:"isInternal" json:"isInternal"`
}

// HasRequiredTag reports whether the given document type is on the
// project's required list.
func (t TagSet) HasRequiredTag(tag string) bool {
	for _, r := range t.Required {
		if r == tag {
			return true
		}
	}
	return false
}

// VisibleNotes returns the project's notes filtered for the reader's role.
// Customers never see internal notes.
func (p *Project) VisibleNotes(role ActorRole) []Note {
	if role == RoleStaff || role == RoleSystem {
		return p.Notes
	}
	visible := make([]Note, 0, len(p.Notes))
	for _, n := range p.Notes {
		if !n.IsInternal {
			visible = append(visible, n)
		}
	}
	return visible
}
