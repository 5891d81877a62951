package models

import "time"

// DocumentStatus is the lifecycle state of an uploaded document.
// Transitions move forward only: pending → uploaded → {verified, rejected}.
// A rejected document may be re-uploaded, which produces a new version of
// the same record rather than a new record.
type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "pending"
	DocumentUploaded DocumentStatus = "uploaded"
	DocumentVerified DocumentStatus = "verified"
	DocumentRejected DocumentStatus = "rejected"
)

// DocumentType is the semantic category of an upload.
type DocumentType string

const (
	DocTypeID           DocumentType = "id"
	DocTypeContract     DocumentType = "contract"
	DocTypeRegistration DocumentType = "registration"
	DocTypeFinancial    DocumentType = "financial"
	DocTypeOther        DocumentType = "other"
)

// Document is one required or optional upload for a project.
type Document struct {
	ID         string         `firestore:"-" json:"id"`
	ProjectID  string         `firestore:"projectId" json:"projectId"`
	CustomerID string         `firestore:"customerId" json:"customerId"`
	Name       string         `firestore:"name" json:"name"`
	Type       DocumentType   `firestore:"type" json:"type"`
	Status     DocumentStatus `firestore:"status" json:"status"`
	Required   bool           `firestore:"required" json:"required"`

	UploadedAt time.Time `firestore:"uploadedAt" json:"uploadedAt"`
	UploadedBy string    `firestore:"uploadedBy" json:"uploadedBy"`

	VerifiedAt      *time.Time `firestore:"verifiedAt,omitempty" json:"verifiedAt,omitempty"`
	VerifiedBy      string     `firestore:"verifiedBy,omitempty" json:"verifiedBy,omitempty"`
	RejectionReason string     `firestore:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`

	FileURL  string `firestore:"fileUrl" json:"fileUrl"`
	FilePath string `firestore:"filePath" json:"filePath"`
	FileType string `firestore:"fileType" json:"fileType"` // MIME type
	FileSize int64  `firestore:"fileSize" json:"fileSize"`

	Metadata DocumentMetadata `firestore:"metadata" json:"metadata"`

	// Version starts at 1 and increments on each re-upload after a
	// rejection. PriorVersions keeps the superseded file metadata so old
	// submissions stay auditable.
	Version       int               `firestore:"version" json:"version"`
	PriorVersions []DocumentVersion `firestore:"priorVersions,omitempty" json:"priorVersions,omitempty"`

	UpdatedAt time.Time `firestore:"updatedAt" json:"updatedAt"`
}

// DocumentMetadata carries file details recorded at upload time.
type DocumentMetadata struct {
	OriginalFilename string `firestore:"originalFilename" json:"originalFilename"`
	ContentType      string `firestore:"contentType" json:"contentType"`
	PageCount        int    `firestore:"pageCount,omitempty" json:"pageCount,omitempty"` // PDFs only
}

// DocumentVersion is a snapshot of the file fields of a superseded upload.
type DocumentVersion struct {
	Version    int              `firestore:"version" json:"version"`
	FilePath   string           `firestore:"filePath" json:"filePath"`
	FileURL    string           `firestore:"fileUrl" json:"fileUrl"`
	FileType   string           `firestore:"fileType" json:"fileType"`
	FileSize   int64            `firestore:"fileSize" json:"fileSize"`
	Metadata   DocumentMetadata `firestore:"metadata" json:"metadata"`
	UploadedAt time.Time        `firestore:"uploadedAt" json:"uploadedAt"`
	UploadedBy string           `firestore:"uploadedBy" json:"uploadedBy"`
	Rejection  string           `firestore:"rejection,omitempty" json:"rejection,omitempty"`
}

// Done reports whether the document counts toward progress.
func (s DocumentStatus) Done() bool {
	return s == DocumentUploaded || s == DocumentVerified
}
