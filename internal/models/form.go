package models

import "time"

// FormStatus is the lifecycle state of an onboarding questionnaire step.
// The machine runs pending → in-progress → completed → reviewed; reviewed
// is terminal.
type FormStatus string

const (
	FormPending    FormStatus = "pending"
	FormInProgress FormStatus = "in-progress"
	FormCompleted  FormStatus = "completed"
	FormReviewed   FormStatus = "reviewed"
)

// FormType is the semantic category of a questionnaire step.
type FormType string

const (
	FormCompanyInformation FormType = "company-information"
	FormRequirements       FormType = "requirements"
	FormContactDetails     FormType = "contact-details"
	FormCustom             FormType = "custom"
)

// Form is one step of the onboarding questionnaire.
type Form struct {
	ID          string     `firestore:"-" json:"id"`
	ProjectID   string     `firestore:"projectId" json:"projectId"`
	CustomerID  string     `firestore:"customerId" json:"customerId"`
	Title       string     `firestore:"title" json:"title"`
	Description string     `firestore:"description,omitempty" json:"description,omitempty"`
	Type        FormType   `firestore:"type" json:"type"`
	Status      FormStatus `firestore:"status" json:"status"`
	Required    bool       `firestore:"required" json:"required"`

	Fields []FormField `firestore:"fields" json:"fields"`

	CreatedAt   time.Time  `firestore:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `firestore:"updatedAt" json:"updatedAt"`
	CompletedAt *time.Time `firestore:"completedAt,omitempty" json:"completedAt,omitempty"`
	CompletedBy string     `firestore:"completedBy,omitempty" json:"completedBy,omitempty"`
	ReviewedAt  *time.Time `firestore:"reviewedAt,omitempty" json:"reviewedAt,omitempty"`
	ReviewedBy  string     `firestore:"reviewedBy,omitempty" json:"reviewedBy,omitempty"`

	// Version tracks schema revisions; responses record the version they
	// were submitted against so old answers survive schema drift.
	Version int `firestore:"version" json:"version"`

	// Order positions the form within the multi-step flow.
	Order int `firestore:"order" json:"order"`
}

// FieldType enumerates supported form field widgets.
type FieldType string

const (
	FieldText        FieldType = "text"
	FieldTextarea    FieldType = "textarea"
	FieldNumber      FieldType = "number"
	FieldEmail       FieldType = "email"
	FieldPhone       FieldType = "phone"
	FieldDate        FieldType = "date"
	FieldSelect      FieldType = "select"
	FieldMultiselect FieldType = "multiselect"
	FieldRadio       FieldType = "radio"
	FieldCheckbox    FieldType = "checkbox"
	FieldFile        FieldType = "file"
)

// FormField describes one entry in a form's ordered field schema.
type FormField struct {
	ID          string        `firestore:"id" json:"id"`
	Name        string        `firestore:"name" json:"name"`
	Label       string        `firestore:"label" json:"label"`
	Type        FieldType     `firestore:"type" json:"type"`
	Required    bool          `firestore:"required" json:"required"`
	Placeholder string        `firestore:"placeholder,omitempty" json:"placeholder,omitempty"`
	Options     []FieldOption `firestore:"options,omitempty" json:"options,omitempty"`
	Order       int           `firestore:"order" json:"order"`
}

// FieldOption is a choice for select/multiselect/radio/checkbox fields.
type FieldOption struct {
	Label string `firestore:"label" json:"label"`
	Value string `firestore:"value" json:"value"`
}

// FormResponse is one submission of a form's values. Resubmission creates
// a new response against the same form; prior responses are retained for
// audit.
type FormResponse struct {
	ID         string `firestore:"-" json:"id"`
	FormID     string `firestore:"formId" json:"formId"`
	ProjectID  string `firestore:"projectId" json:"projectId"`
	CustomerID string `firestore:"customerId" json:"customerId"`

	// Responses maps field ID to the submitted value.
	Responses map[string]any `firestore:"responses" json:"responses"`

	SubmittedAt time.Time `firestore:"submittedAt" json:"submittedAt"`
	SubmittedBy string    `firestore:"submittedBy" json:"submittedBy"`

	// FormVersion is the form schema version this submission was made
	// against.
	FormVersion int `firestore:"formVersion" json:"formVersion"`
}

// Done reports whether the form counts toward progress.
func (s FormStatus) Done() bool {
	return s == FormCompleted || s == FormReviewed
}
