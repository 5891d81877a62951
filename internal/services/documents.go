package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/onboardhq/onboardflow/internal/blob"
	"github.com/onboardhq/onboardflow/internal/models"
	"github.com/onboardhq/onboardflow/internal/store"
)

// DocumentsConfig holds configuration for the document lifecycle manager.
type DocumentsConfig struct {
	// Bucket is the blob bucket name, used to build canonical gs:// file
	// URIs on document records. Download links are signed on demand.
	Bucket string
	// DefaultRejectionReason is stamped when a rejection arrives without
	// one.
	DefaultRejectionReason string
}

// DefaultDocumentsConfig returns production defaults.
func DefaultDocumentsConfig(bucket string) DocumentsConfig {
	return DocumentsConfig{
		Bucket:                 bucket,
		DefaultRejectionReason: "Document requires revision",
	}
}

// DocumentsService orchestrates the document lifecycle: blob upload,
// record creation, status transitions, and removal, each followed by a
// progress recompute and an audit entry on the owning project.
type DocumentsService struct {
	store  store.Store
	blobs  blob.Store
	config DocumentsConfig
	nowFn  func() time.Time
}

// NewDocuments constructs the document lifecycle manager.
func NewDocuments(st store.Store, blobs blob.Store, config DocumentsConfig) *DocumentsService {
	return &DocumentsService{
		store:  st,
		blobs:  blobs,
		config: config,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// documentTransitions is the forward-only status machine. Re-upload after
// rejection goes through Reupload, not SetStatus.
var documentTransitions = map[models.DocumentStatus][]models.DocumentStatus{
	models.DocumentPending:  {models.DocumentUploaded},
	models.DocumentUploaded: {models.DocumentVerified, models.DocumentRejected},
	models.DocumentRejected: {},
	models.DocumentVerified: {},
}

func documentTransitionAllowed(from, to models.DocumentStatus, role models.ActorRole) bool {
	// Verified is terminal for customers; staff may override a
	// verification back to uploaded or straight to rejected.
	if from == models.DocumentVerified && role == models.RoleStaff {
		return to == models.DocumentUploaded || to == models.DocumentRejected
	}
	for _, next := range documentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Upload stores the file and creates the document record with status
// uploaded and version 1, then recomputes project progress and logs the
// upload. The blob write happens first; if the record cannot be created
// the blob is deleted again so no orphan survives the failure path (the
// reconciliation sweep covers crashes between the two steps).
func (s *DocumentsService) Upload(ctx context.Context, req models.UploadDocumentRequest, actor models.Actor) (*models.Document, error) {
	if len(req.Data) == 0 {
		return nil, fmt.Errorf("upload is empty")
	}
	if _, err := s.store.Project(ctx, req.ProjectID); err != nil {
		return nil, err
	}

	now := s.nowFn()
	path := blob.ObjectPath(req.ProjectID, req.FileName, now)
	logCtx := slog.With("projectId", req.ProjectID, "path", path)

	err := s.blobs.Upload(ctx, path, bytes.NewReader(req.Data), blob.UploadOptions{
		ContentType: req.ContentType,
		Size:        int64(len(req.Data)),
	})
	if err != nil {
		logCtx.Error("Blob upload failed", "error", err)
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	doc := &models.Document{
		ProjectID:  req.ProjectID,
		CustomerID: req.CustomerID,
		Name:       req.FileName,
		Type:       req.Type,
		Status:     models.DocumentUploaded,
		Required:   req.Required,
		UploadedAt: now,
		UploadedBy: actor.ID,
		FileURL:    fmt.Sprintf("gs://%s/%s", s.config.Bucket, path),
		FilePath:   path,
		FileType:   req.ContentType,
		FileSize:   int64(len(req.Data)),
		Metadata:   s.fileMetadata(req.FileName, req.ContentType, req.Data),
		Version:    1,
	}
	created, err := s.store.CreateDocument(ctx, doc)
	if err != nil {
		// Compensate so the blob does not dangle without a record.
		if delErr := s.blobs.Delete(ctx, path); delErr != nil && !errors.Is(delErr, blob.ErrNotExist) {
			logCtx.Error("CRITICAL: failed to delete blob after record creation failure", "error", delErr)
		}
		return nil, err
	}

	if err := s.recomputeProgress(ctx, req.ProjectID, actor, models.ActivityLog{
		Type:            models.ActivityDocument,
		Description:     fmt.Sprintf("Document uploaded: %s", req.FileName),
		PerformedBy:     actor.ID,
		PerformedByType: actor.Role,
		RelatedEntityID: created.ID,
	}); err != nil {
		return nil, err
	}
	logCtx.Info("Document uploaded.", "documentId", created.ID, "type", string(req.Type))
	return created, nil
}

// Reupload replaces the file of a rejected document: the superseded file
// metadata moves into the version history, the version counter increments,
// and the status returns to uploaded.
func (s *DocumentsService) Reupload(ctx context.Context, documentID, fileName, contentType string, data []byte, actor models.Actor) (*models.Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("upload is empty")
	}
	current, err := s.store.Document(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if current.Status != models.DocumentRejected {
		return nil, fmt.Errorf("document %s is %s; only rejected documents can be re-uploaded", documentID, current.Status)
	}

	now := s.nowFn()
	path := blob.ObjectPath(current.ProjectID, fileName, now)
	if err := s.blobs.Upload(ctx, path, bytes.NewReader(data), blob.UploadOptions{
		ContentType: contentType,
		Size:        int64(len(data)),
	}); err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	updated, err := s.store.MutateDocument(ctx, documentID, func(d *models.Document) error {
		if d.Status != models.DocumentRejected {
			return fmt.Errorf("document %s is %s; only rejected documents can be re-uploaded", documentID, d.Status)
		}
		d.PriorVersions = append(d.PriorVersions, models.DocumentVersion{
			Version:    d.Version,
			FilePath:   d.FilePath,
			FileURL:    d.FileURL,
			FileType:   d.FileType,
			FileSize:   d.FileSize,
			Metadata:   d.Metadata,
			UploadedAt: d.UploadedAt,
			UploadedBy: d.UploadedBy,
			Rejection:  d.RejectionReason,
		})
		d.Version++
		d.Status = models.DocumentUploaded
		d.Name = fileName
		d.FilePath = path
		d.FileURL = fmt.Sprintf("gs://%s/%s", s.config.Bucket, path)
		d.FileType = contentType
		d.FileSize = int64(len(data))
		d.Metadata = s.fileMetadata(fileName, contentType, data)
		d.UploadedAt = now
		d.UploadedBy = actor.ID
		d.RejectionReason = ""
		return nil
	})
	if err != nil {
		if delErr := s.blobs.Delete(ctx, path); delErr != nil && !errors.Is(delErr, blob.ErrNotExist) {
			slog.Error("CRITICAL: failed to delete blob after re-upload failure", "error", delErr, "path", path)
		}
		return nil, err
	}

	if err := s.recomputeProgress(ctx, updated.ProjectID, actor, models.ActivityLog{
		Type:            models.ActivityDocument,
		Description:     fmt.Sprintf("Document re-uploaded: %s (version %d)", fileName, updated.Version),
		PerformedBy:     actor.ID,
		PerformedByType: actor.Role,
		RelatedEntityID: updated.ID,
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

// SetStatus applies a status transition, stamping verifier or rejection
// details, then recomputes progress and logs the change.
func (s *DocumentsService) SetStatus(ctx context.Context, documentID string, status models.DocumentStatus, reason string, actor models.Actor) (*models.Document, error) {
	now := s.nowFn()
	updated, err := s.store.MutateDocument(ctx, documentID, func(d *models.Document) error {
		if !documentTransitionAllowed(d.Status, status, actor.Role) {
			return fmt.Errorf("document %s: transition %s → %s not allowed", documentID, d.Status, status)
		}
		d.Status = status
		switch status {
		case models.DocumentVerified:
			t := now
			d.VerifiedAt = &t
			d.VerifiedBy = actor.ID
		case models.DocumentRejected:
			if reason == "" {
				reason = s.config.DefaultRejectionReason
			}
			d.RejectionReason = reason
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.recomputeProgress(ctx, updated.ProjectID, actor, models.ActivityLog{
		Type:            models.ActivityDocument,
		Description:     fmt.Sprintf("Document %s: %s", status, updated.Name),
		PerformedBy:     actor.ID,
		PerformedByType: actor.Role,
		RelatedEntityID: updated.ID,
	}); err != nil {
		return nil, err
	}
	slog.Info("Document status changed.", "documentId", documentID, "status", string(status), "actor", actor.ID)
	return updated, nil
}

// Remove deletes the blob and the record. A required document's removal
// reverts its contribution, so the follow-up recompute can only hold or
// lower the project's percentage; that recompute is attributed to the
// system actor.
func (s *DocumentsService) Remove(ctx context.Context, documentID string, actor models.Actor) error {
	doc, err := s.store.Document(ctx, documentID)
	if err != nil {
		return err
	}

	if doc.FilePath != "" {
		if err := s.blobs.Delete(ctx, doc.FilePath); err != nil && !errors.Is(err, blob.ErrNotExist) {
			return fmt.Errorf("failed to delete stored file: %w", err)
		}
	}
	for _, v := range doc.PriorVersions {
		if err := s.blobs.Delete(ctx, v.FilePath); err != nil && !errors.Is(err, blob.ErrNotExist) {
			return fmt.Errorf("failed to delete stored file version %d: %w", v.Version, err)
		}
	}
	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		return err
	}

	if err := s.recomputeProgress(ctx, doc.ProjectID, models.SystemActor, models.ActivityLog{
		Type:            models.ActivityDocument,
		Description:     fmt.Sprintf("Document removed: %s", doc.Name),
		PerformedBy:     actor.ID,
		PerformedByType: actor.Role,
		RelatedEntityID: doc.ID,
	}); err != nil {
		return err
	}
	slog.Info("Document removed.", "documentId", documentID, "projectId", doc.ProjectID)
	return nil
}

// ByProject lists a project's documents.
func (s *DocumentsService) ByProject(ctx context.Context, projectID string) ([]models.Document, error) {
	return s.store.Documents(ctx, store.DocumentQuery{ProjectID: projectID}).All()
}

// ByCustomer lists a customer's documents across projects.
func (s *DocumentsService) ByCustomer(ctx context.Context, customerID string) ([]models.Document, error) {
	return s.store.Documents(ctx, store.DocumentQuery{CustomerID: customerID}).All()
}

// DownloadURL returns a time-limited link for the document's current file.
func (s *DocumentsService) DownloadURL(ctx context.Context, documentID string) (string, error) {
	doc, err := s.store.Document(ctx, documentID)
	if err != nil {
		return "", err
	}
	return s.blobs.SignedURL(ctx, doc.FilePath)
}

// recomputeProgress re-derives the project's percentage and denormalized
// uploaded-tag list from the full current document set, then writes both
// plus the triggering activity in one atomic project mutation. Always fed
// from ground truth, never incrementally.
func (s *DocumentsService) recomputeProgress(ctx context.Context, projectID string, actor models.Actor, entry models.ActivityLog) error {
	docs, err := s.store.Documents(ctx, store.DocumentQuery{ProjectID: projectID}).All()
	if err != nil {
		return fmt.Errorf("failed to list project documents: %w", err)
	}

	now := s.nowFn()
	_, err = s.store.MutateProject(ctx, projectID, func(p *models.Project) error {
		items := documentItems(p.Documents.Required, docs)
		p.Documents.Uploaded = doneTags(items)
		applyProgress(p, ComputeProgress(items), actor, now)
		appendActivity(p, entry, now)
		return nil
	})
	return err
}

// fileMetadata records upload details; PDFs additionally get a page count
// when the file parses (a bad page count is not worth failing an upload
// over).
func (s *DocumentsService) fileMetadata(fileName, contentType string, data []byte) models.DocumentMetadata {
	meta := models.DocumentMetadata{
		OriginalFilename: fileName,
		ContentType:      contentType,
	}
	if contentType == "application/pdf" {
		conf := model.NewDefaultConfiguration()
		conf.ValidationMode = model.ValidationRelaxed
		if count, err := api.PageCount(bytes.NewReader(data), conf); err != nil {
			slog.Warn("Could not read PDF page count.", "file", fileName, "error", err)
		} else {
			meta.PageCount = count
		}
	}
	return meta
}
