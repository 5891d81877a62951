package services

import (
	"context"
	"errors"
	"testing"

	"github.com/onboardhq/onboardflow/internal/models"
	"github.com/onboardhq/onboardflow/internal/store"
)

type formsFixture struct {
	store   *store.Memory
	service *FormsService
	project *models.Project
}

func newFormsFixture(t *testing.T) *formsFixture {
	t.Helper()
	st := store.NewMemory()
	p := newTestProject(t, st, NewProjects(st))
	return &formsFixture{store: st, service: NewForms(st), project: p}
}

func (f *formsFixture) createForm(t *testing.T, title string, formType models.FormType, order int) *models.Form {
	t.Helper()
	form, err := f.service.Create(context.Background(), &models.Form{
		ProjectID:  f.project.ID,
		CustomerID: f.project.CustomerID,
		Title:      title,
		Type:       formType,
		Required:   true,
		Order:      order,
		Fields: []models.FormField{
			{ID: "name", Name: "name", Label: "Company name", Type: models.FieldText, Required: true, Order: 0},
		},
	})
	if err != nil {
		t.Fatalf("Create form: %v", err)
	}
	return form
}

func (f *formsFixture) progress(t *testing.T) int {
	t.Helper()
	p, err := f.store.Project(context.Background(), f.project.ID)
	if err != nil {
		t.Fatal(err)
	}
	return p.Progress
}

func TestCreateFormDefaults(t *testing.T) {
	f := newFormsFixture(t)
	form := f.createForm(t, "Company Information", models.FormCompanyInformation, 0)
	if form.Status != models.FormPending || form.Version != 1 {
		t.Errorf("form = status %q version %d, want pending/1", form.Status, form.Version)
	}

	if _, err := f.service.Create(context.Background(), &models.Form{Title: "orphan"}); err == nil {
		t.Error("form without project must be rejected")
	}
	if _, err := f.service.Create(context.Background(), &models.Form{ProjectID: "missing", Title: "x"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestByProjectOrder(t *testing.T) {
	f := newFormsFixture(t)
	f.createForm(t, "Requirements", models.FormRequirements, 1)
	f.createForm(t, "Company Information", models.FormCompanyInformation, 0)

	forms, err := f.service.ByProject(context.Background(), f.project.ID)
	if err != nil {
		t.Fatalf("ByProject: %v", err)
	}
	if len(forms) != 2 || forms[0].Title != "Company Information" || forms[1].Title != "Requirements" {
		t.Errorf("forms out of step order: %+v", forms)
	}
}

func TestSubmitResponse(t *testing.T) {
	f := newFormsFixture(t)
	form := f.createForm(t, "Company Information", models.FormCompanyInformation, 0)
	f.createForm(t, "Requirements", models.FormRequirements, 1)

	resp, err := f.service.SubmitResponse(context.Background(), models.SubmitFormResponseRequest{
		FormID:    form.ID,
		ProjectID: f.project.ID,
		Responses: map[string]any{"name": "Analytical Engines Ltd"},
	}, customerActor)
	if err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}
	if resp.FormVersion != 1 || resp.SubmittedBy != "cust-1" {
		t.Errorf("response = %+v", resp)
	}

	updated, err := f.service.Get(context.Background(), form.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != models.FormCompleted || updated.CompletedAt == nil || updated.CompletedBy != "cust-1" {
		t.Errorf("form after submit = %+v", updated)
	}

	// One of two required forms is done.
	if got := f.progress(t); got != 50 {
		t.Errorf("progress = %d, want 50", got)
	}
	p, _ := f.store.Project(context.Background(), f.project.ID)
	if tags := p.Forms.Completed; len(tags) != 1 || tags[0] != "company-information" {
		t.Errorf("completed tags = %v", tags)
	}
	last := p.Activities[len(p.Activities)-1]
	if last.Description != "Form submitted: Company Information" {
		t.Errorf("activity = %q", last.Description)
	}
}

func TestResubmitKeepsHistory(t *testing.T) {
	f := newFormsFixture(t)
	form := f.createForm(t, "Company Information", models.FormCompanyInformation, 0)

	req := models.SubmitFormResponseRequest{
		FormID:    form.ID,
		ProjectID: f.project.ID,
		Responses: map[string]any{"name": "first"},
	}
	if _, err := f.service.SubmitResponse(context.Background(), req, customerActor); err != nil {
		t.Fatal(err)
	}
	req.Responses = map[string]any{"name": "second"}
	if _, err := f.service.SubmitResponse(context.Background(), req, customerActor); err != nil {
		t.Fatal(err)
	}

	responses, err := f.service.ResponsesByForm(context.Background(), form.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}
	if responses[0].Responses["name"] != "first" || responses[1].Responses["name"] != "second" {
		t.Errorf("responses = %+v", responses)
	}
}

func TestSubmitResponseValidation(t *testing.T) {
	f := newFormsFixture(t)
	form := f.createForm(t, "Company Information", models.FormCompanyInformation, 0)

	// Wrong project.
	_, err := f.service.SubmitResponse(context.Background(), models.SubmitFormResponseRequest{
		FormID: form.ID, ProjectID: "other-project",
	}, customerActor)
	if err == nil {
		t.Error("cross-project submission must be rejected")
	}

	// Reviewed forms are closed.
	if _, err := f.service.SetStatus(context.Background(), form.ID, models.FormReviewed, staffActor); err != nil {
		t.Fatal(err)
	}
	_, err = f.service.SubmitResponse(context.Background(), models.SubmitFormResponseRequest{
		FormID: form.ID, ProjectID: f.project.ID,
	}, customerActor)
	if err == nil {
		t.Error("reviewed form must not accept submissions")
	}
}

func TestFormSetStatus(t *testing.T) {
	f := newFormsFixture(t)
	form := f.createForm(t, "Company Information", models.FormCompanyInformation, 0)

	inProgress, err := f.service.SetStatus(context.Background(), form.ID, models.FormInProgress, customerActor)
	if err != nil || inProgress.Status != models.FormInProgress {
		t.Fatalf("SetStatus in-progress: %+v, %v", inProgress, err)
	}

	reviewed, err := f.service.SetStatus(context.Background(), form.ID, models.FormReviewed, staffActor)
	if err != nil {
		t.Fatalf("SetStatus reviewed: %v", err)
	}
	if reviewed.ReviewedAt == nil || reviewed.ReviewedBy != "staff-1" {
		t.Errorf("review stamps missing: %+v", reviewed)
	}

	// The machine only moves forward.
	if _, err := f.service.SetStatus(context.Background(), form.ID, models.FormPending, staffActor); err == nil {
		t.Error("backward transition must be rejected")
	}
	if _, err := f.service.SetStatus(context.Background(), form.ID, "archived", staffActor); err == nil {
		t.Error("unknown status must be rejected")
	}

	// Reviewed still counts as done; the requirements form is untouched.
	if got := f.progress(t); got != 50 {
		t.Errorf("progress = %d, want 50", got)
	}
}
