package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/onboardhq/onboardflow/internal/blob"
	"github.com/onboardhq/onboardflow/internal/models"
	"github.com/onboardhq/onboardflow/internal/store"
)

type documentsFixture struct {
	store   *store.Memory
	blobs   *blob.Memory
	service *DocumentsService
	project *models.Project
}

func newDocumentsFixture(t *testing.T) *documentsFixture {
	t.Helper()
	st := store.NewMemory()
	blobs := blob.NewMemory()
	svc := NewDocuments(st, blobs, DefaultDocumentsConfig("onboard-docs"))
	svc.nowFn = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	p := newTestProject(t, st, NewProjects(st))
	return &documentsFixture{store: st, blobs: blobs, service: svc, project: p}
}

func (f *documentsFixture) upload(t *testing.T, docType models.DocumentType, fileName string) *models.Document {
	t.Helper()
	d, err := f.service.Upload(context.Background(), models.UploadDocumentRequest{
		ProjectID:   f.project.ID,
		CustomerID:  f.project.CustomerID,
		Type:        docType,
		Required:    true,
		FileName:    fileName,
		ContentType: "image/png",
		Data:        []byte("file-bytes"),
	}, customerActor)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	return d
}

func (f *documentsFixture) progress(t *testing.T) int {
	t.Helper()
	p, err := f.store.Project(context.Background(), f.project.ID)
	if err != nil {
		t.Fatal(err)
	}
	return p.Progress
}

func TestUploadDocument(t *testing.T) {
	f := newDocumentsFixture(t)

	d := f.upload(t, models.DocTypeID, "passport scan.png")

	if d.Status != models.DocumentUploaded || d.Version != 1 {
		t.Errorf("status=%q version=%d, want uploaded/1", d.Status, d.Version)
	}
	if !strings.HasPrefix(d.FilePath, "documents/"+f.project.ID+"/") || strings.Contains(d.FilePath, " ") {
		t.Errorf("unexpected blob path %q", d.FilePath)
	}
	if d.FileURL != fmt.Sprintf("gs://onboard-docs/%s", d.FilePath) {
		t.Errorf("unexpected file URL %q", d.FileURL)
	}
	if _, ok := f.blobs.Get(d.FilePath); !ok {
		t.Error("blob not stored")
	}
	if d.Metadata.OriginalFilename != "passport scan.png" || d.Metadata.ContentType != "image/png" {
		t.Errorf("metadata = %+v", d.Metadata)
	}

	// One of the three required tags is satisfied.
	if got := f.progress(t); got != 33 {
		t.Errorf("progress = %d, want 33", got)
	}
	p, _ := f.store.Project(context.Background(), f.project.ID)
	acts := p.Activities
	if acts[len(acts)-1].Description != "Document uploaded: passport scan.png" {
		t.Errorf("last activity = %q", acts[len(acts)-1].Description)
	}
	if acts[len(acts)-2].Description != "Progress updated to 33%" {
		t.Errorf("progress activity = %q", acts[len(acts)-2].Description)
	}
	if got := p.Documents.Uploaded; len(got) != 1 || got[0] != "id" {
		t.Errorf("uploaded tags = %v", got)
	}
}

func TestUploadValidation(t *testing.T) {
	f := newDocumentsFixture(t)
	_, err := f.service.Upload(context.Background(), models.UploadDocumentRequest{
		ProjectID: f.project.ID, FileName: "empty.png",
	}, customerActor)
	if err == nil {
		t.Error("expected error for empty payload")
	}
	_, err = f.service.Upload(context.Background(), models.UploadDocumentRequest{
		ProjectID: "missing", FileName: "x.png", Data: []byte("x"),
	}, customerActor)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDocumentStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to models.DocumentStatus
		role     models.ActorRole
		allowed  bool
	}{
		{models.DocumentPending, models.DocumentUploaded, models.RoleCustomer, true},
		{models.DocumentUploaded, models.DocumentVerified, models.RoleStaff, true},
		{models.DocumentUploaded, models.DocumentRejected, models.RoleStaff, true},
		{models.DocumentUploaded, models.DocumentPending, models.RoleStaff, false},
		{models.DocumentRejected, models.DocumentVerified, models.RoleStaff, false},
		{models.DocumentVerified, models.DocumentUploaded, models.RoleStaff, true},
		{models.DocumentVerified, models.DocumentRejected, models.RoleStaff, true},
		{models.DocumentVerified, models.DocumentUploaded, models.RoleCustomer, false},
	}
	for _, tt := range tests {
		name := fmt.Sprintf("%s to %s as %s", tt.from, tt.to, tt.role)
		t.Run(name, func(t *testing.T) {
			if got := documentTransitionAllowed(tt.from, tt.to, tt.role); got != tt.allowed {
				t.Errorf("allowed = %v, want %v", got, tt.allowed)
			}
		})
	}
}

func TestVerifyAndRejectStamps(t *testing.T) {
	f := newDocumentsFixture(t)
	d := f.upload(t, models.DocTypeID, "passport.png")

	verified, err := f.service.SetStatus(context.Background(), d.ID, models.DocumentVerified, "", staffActor)
	if err != nil {
		t.Fatalf("SetStatus verified: %v", err)
	}
	if verified.VerifiedAt == nil || verified.VerifiedBy != "staff-1" {
		t.Errorf("verification stamps missing: %+v", verified)
	}

	// Staff may pull a verification back and reject.
	rejected, err := f.service.SetStatus(context.Background(), d.ID, models.DocumentRejected, "", staffActor)
	if err != nil {
		t.Fatalf("SetStatus rejected: %v", err)
	}
	if rejected.RejectionReason != "Document requires revision" {
		t.Errorf("default rejection reason not applied: %q", rejected.RejectionReason)
	}

	if _, err := f.service.SetStatus(context.Background(), d.ID, models.DocumentVerified, "", staffActor); err == nil {
		t.Error("rejected document must be re-uploaded, not verified directly")
	}
}

func TestReupload(t *testing.T) {
	f := newDocumentsFixture(t)
	d := f.upload(t, models.DocTypeID, "passport.png")
	if _, err := f.service.Reupload(context.Background(), d.ID, "v2.png", "image/png", []byte("new"), customerActor); err == nil {
		t.Fatal("only rejected documents can be re-uploaded")
	}

	if _, err := f.service.SetStatus(context.Background(), d.ID, models.DocumentRejected, "blurry scan", staffActor); err != nil {
		t.Fatal(err)
	}
	if got := f.progress(t); got != 0 {
		t.Errorf("progress after rejection = %d, want 0", got)
	}

	re, err := f.service.Reupload(context.Background(), d.ID, "passport v2.png", "image/png", []byte("new-bytes"), customerActor)
	if err != nil {
		t.Fatalf("Reupload: %v", err)
	}
	if re.Version != 2 || re.Status != models.DocumentUploaded || re.RejectionReason != "" {
		t.Errorf("re-uploaded doc = %+v", re)
	}
	if len(re.PriorVersions) != 1 {
		t.Fatalf("expected 1 prior version, got %d", len(re.PriorVersions))
	}
	prior := re.PriorVersions[0]
	if prior.Version != 1 || prior.FilePath != d.FilePath || prior.Rejection != "blurry scan" {
		t.Errorf("prior version = %+v", prior)
	}
	// Superseded file is retained for audit.
	if _, ok := f.blobs.Get(d.FilePath); !ok {
		t.Error("prior version blob was deleted")
	}
	if _, ok := f.blobs.Get(re.FilePath); !ok {
		t.Error("new blob not stored")
	}
	if got := f.progress(t); got != 33 {
		t.Errorf("progress after re-upload = %d, want 33", got)
	}
}

func TestProgressClimbsPerRequiredTag(t *testing.T) {
	f := newDocumentsFixture(t)

	f.upload(t, models.DocTypeContract, "contract.png")
	if got := f.progress(t); got != 33 {
		t.Fatalf("after contract: progress = %d, want 33", got)
	}
	f.upload(t, models.DocTypeID, "passport.png")
	if got := f.progress(t); got != 67 {
		t.Fatalf("after id: progress = %d, want 67", got)
	}
	f.upload(t, models.DocTypeFinancial, "statements.png")
	if got := f.progress(t); got != 100 {
		t.Fatalf("after financial: progress = %d, want 100", got)
	}
}

func TestRemoveDocument(t *testing.T) {
	f := newDocumentsFixture(t)
	f.upload(t, models.DocTypeContract, "contract.png")
	d := f.upload(t, models.DocTypeID, "passport.png")
	if got := f.progress(t); got != 67 {
		t.Fatalf("progress = %d, want 67", got)
	}

	if err := f.service.Remove(context.Background(), d.ID, staffActor); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := f.blobs.Get(d.FilePath); ok {
		t.Error("blob survived removal")
	}
	if _, err := f.store.Document(context.Background(), d.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("record survived removal: %v", err)
	}
	// The id requirement is open again; the contract upload still counts.
	if got := f.progress(t); got != 33 {
		t.Errorf("progress after removal = %d, want 33", got)
	}
	p, _ := f.store.Project(context.Background(), f.project.ID)
	acts := p.Activities
	if acts[len(acts)-1].Description != "Document removed: passport.png" {
		t.Errorf("last activity = %q", acts[len(acts)-1].Description)
	}
}

func TestDownloadURL(t *testing.T) {
	f := newDocumentsFixture(t)
	d := f.upload(t, models.DocTypeID, "passport.png")

	url, err := f.service.DownloadURL(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("DownloadURL: %v", err)
	}
	if url != "memory://"+d.FilePath {
		t.Errorf("url = %q", url)
	}
	if _, err := f.service.DownloadURL(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListDocuments(t *testing.T) {
	f := newDocumentsFixture(t)
	f.upload(t, models.DocTypeID, "a.png")
	f.upload(t, models.DocTypeContract, "b.png")

	byProject, err := f.service.ByProject(context.Background(), f.project.ID)
	if err != nil || len(byProject) != 2 {
		t.Fatalf("ByProject = %d docs, err %v", len(byProject), err)
	}
	byCustomer, err := f.service.ByCustomer(context.Background(), f.project.CustomerID)
	if err != nil || len(byCustomer) != 2 {
		t.Fatalf("ByCustomer = %d docs, err %v", len(byCustomer), err)
	}
}

func TestFileMetadataNonPDF(t *testing.T) {
	f := newDocumentsFixture(t)
	meta := f.service.fileMetadata("logo.png", "image/png", []byte("png-bytes"))
	if meta.OriginalFilename != "logo.png" || meta.ContentType != "image/png" || meta.PageCount != 0 {
		t.Errorf("metadata = %+v", meta)
	}
}
