package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/onboardhq/onboardflow/internal/models"
	"github.com/onboardhq/onboardflow/internal/store"
)

// FormsService orchestrates the questionnaire lifecycle: form creation,
// response submission, and status transitions, each recomputing the
// project's progress over its required forms.
type FormsService struct {
	store store.Store
	nowFn func() time.Time
}

// NewForms constructs the form lifecycle manager.
func NewForms(st store.Store) *FormsService {
	return &FormsService{store: st, nowFn: func() time.Time { return time.Now().UTC() }}
}

// formRank orders the status machine; transitions only move forward.
var formRank = map[models.FormStatus]int{
	models.FormPending:    0,
	models.FormInProgress: 1,
	models.FormCompleted:  2,
	models.FormReviewed:   3,
}

// Create registers one questionnaire step for a project.
func (s *FormsService) Create(ctx context.Context, f *models.Form) (*models.Form, error) {
	if f.ProjectID == "" {
		return nil, fmt.Errorf("form must reference a project")
	}
	if _, err := s.store.Project(ctx, f.ProjectID); err != nil {
		return nil, err
	}
	if f.Status == "" {
		f.Status = models.FormPending
	}
	if f.Version == 0 {
		f.Version = 1
	}
	created, err := s.store.CreateForm(ctx, f)
	if err != nil {
		return nil, err
	}
	slog.Info("Form created.", "formId", created.ID, "projectId", created.ProjectID, "type", string(created.Type))
	return created, nil
}

// Get returns one form by id.
func (s *FormsService) Get(ctx context.Context, formID string) (*models.Form, error) {
	return s.store.Form(ctx, formID)
}

// ByProject lists a project's forms in multi-step order.
func (s *FormsService) ByProject(ctx context.Context, projectID string) ([]models.Form, error) {
	return s.store.Forms(ctx, store.FormQuery{ProjectID: projectID}).All()
}

// SubmitResponse records a new response stamped with the form's current
// schema version, marks the form completed, and recomputes project
// progress. Resubmitting creates another response against the same form;
// earlier responses stay untouched for audit.
func (s *FormsService) SubmitResponse(ctx context.Context, req models.SubmitFormResponseRequest, actor models.Actor) (*models.FormResponse, error) {
	form, err := s.store.Form(ctx, req.FormID)
	if err != nil {
		return nil, err
	}
	if form.Status == models.FormReviewed {
		return nil, fmt.Errorf("form %s is reviewed; no further submissions accepted", req.FormID)
	}
	if form.ProjectID != req.ProjectID {
		return nil, fmt.Errorf("form %s does not belong to project %s", req.FormID, req.ProjectID)
	}

	now := s.nowFn()
	response := &models.FormResponse{
		FormID:      req.FormID,
		ProjectID:   req.ProjectID,
		CustomerID:  form.CustomerID,
		Responses:   req.Responses,
		SubmittedAt: now,
		SubmittedBy: actor.ID,
		FormVersion: form.Version,
	}
	created, err := s.store.CreateFormResponse(ctx, response)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.MutateForm(ctx, req.FormID, func(f *models.Form) error {
		f.Status = models.FormCompleted
		t := now
		f.CompletedAt = &t
		f.CompletedBy = actor.ID
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.recomputeProgress(ctx, req.ProjectID, actor, models.ActivityLog{
		Type:            models.ActivityForm,
		Description:     fmt.Sprintf("Form submitted: %s", form.Title),
		PerformedBy:     actor.ID,
		PerformedByType: actor.Role,
		RelatedEntityID: form.ID,
	}); err != nil {
		return nil, err
	}
	slog.Info("Form response submitted.", "formId", req.FormID, "responseId", created.ID, "formVersion", form.Version)
	return created, nil
}

// SetStatus applies a direct status transition, e.g. staff marking a form
// reviewed or the UI flagging it in-progress, then recomputes progress.
func (s *FormsService) SetStatus(ctx context.Context, formID string, status models.FormStatus, actor models.Actor) (*models.Form, error) {
	if _, ok := formRank[status]; !ok {
		return nil, fmt.Errorf("invalid form status %q", status)
	}
	now := s.nowFn()
	updated, err := s.store.MutateForm(ctx, formID, func(f *models.Form) error {
		if formRank[status] < formRank[f.Status] {
			return fmt.Errorf("form %s: transition %s → %s not allowed", formID, f.Status, status)
		}
		f.Status = status
		switch status {
		case models.FormCompleted:
			t := now
			f.CompletedAt = &t
			f.CompletedBy = actor.ID
		case models.FormReviewed:
			t := now
			f.ReviewedAt = &t
			f.ReviewedBy = actor.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.recomputeProgress(ctx, updated.ProjectID, actor, models.ActivityLog{
		Type:            models.ActivityForm,
		Description:     fmt.Sprintf("Form %s: %s", status, updated.Title),
		PerformedBy:     actor.ID,
		PerformedByType: actor.Role,
		RelatedEntityID: updated.ID,
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

// ResponsesByForm lists every submission for a form, oldest first.
func (s *FormsService) ResponsesByForm(ctx context.Context, formID string) ([]models.FormResponse, error) {
	return s.store.FormResponses(ctx, store.ResponseQuery{FormID: formID}).All()
}

// ResponsesByProject lists every submission across a project's forms.
func (s *FormsService) ResponsesByProject(ctx context.Context, projectID string) ([]models.FormResponse, error) {
	return s.store.FormResponses(ctx, store.ResponseQuery{ProjectID: projectID}).All()
}

// recomputeProgress re-derives progress and the completed-tag list from
// the project's full current form set and writes them, with the
// triggering activity, in one atomic project mutation.
func (s *FormsService) recomputeProgress(ctx context.Context, projectID string, actor models.Actor, entry models.ActivityLog) error {
	forms, err := s.store.Forms(ctx, store.FormQuery{ProjectID: projectID}).All()
	if err != nil {
		return fmt.Errorf("failed to list project forms: %w", err)
	}

	now := s.nowFn()
	_, err = s.store.MutateProject(ctx, projectID, func(p *models.Project) error {
		items := formItems(p.Forms.Required, forms)
		p.Forms.Completed = doneTags(items)
		applyProgress(p, ComputeProgress(items), actor, now)
		appendActivity(p, entry, now)
		return nil
	})
	return err
}
