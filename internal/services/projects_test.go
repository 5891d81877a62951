package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/onboardhq/onboardflow/internal/models"
	"github.com/onboardhq/onboardflow/internal/store"
)

var (
	staffActor    = models.Actor{ID: "staff-1", Role: models.RoleStaff}
	customerActor = models.Actor{ID: "cust-1", Role: models.RoleCustomer}
)

func newTestProject(t *testing.T, st store.Store, svc *ProjectsService) *models.Project {
	t.Helper()
	p, err := svc.Create(context.Background(), models.CreateProjectRequest{
		CustomerID:        "cust-1",
		CustomerName:      "Ada Lovelace",
		CompanyName:       "Analytical Engines Ltd",
		AssignedStaffID:   "staff-1",
		RequiredDocuments: []string{"id", "contract", "financial"},
		RequiredForms:     []string{"company-information", "requirements"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return p
}

func TestCreateProjectSeedsAggregate(t *testing.T) {
	st := store.NewMemory()
	svc := NewProjects(st)
	p := newTestProject(t, st, svc)

	if p.Status != models.ProjectOnTrack {
		t.Errorf("status = %q, want %q", p.Status, models.ProjectOnTrack)
	}
	if p.Progress != 0 {
		t.Errorf("progress = %d, want 0", p.Progress)
	}
	if len(p.Documents.Required) != 3 || len(p.Forms.Required) != 2 {
		t.Errorf("required tags not seeded: %+v %+v", p.Documents, p.Forms)
	}
	if len(p.Documents.Uploaded) != 0 || len(p.Forms.Completed) != 0 {
		t.Errorf("done tags should start empty")
	}
	if len(p.Activities) != 1 || p.Activities[0].Description != "Project created" {
		t.Fatalf("expected single creation activity, got %+v", p.Activities)
	}
	if p.Activities[0].PerformedByType != models.RoleSystem {
		t.Errorf("creation activity attributed to %q, want system", p.Activities[0].PerformedByType)
	}
}

func TestSetProjectStatus(t *testing.T) {
	st := store.NewMemory()
	svc := NewProjects(st)
	p := newTestProject(t, st, svc)

	updated, err := svc.SetStatus(context.Background(), p.ID, models.ProjectDelayed, staffActor)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if updated.Status != models.ProjectDelayed {
		t.Errorf("status = %q, want Delayed", updated.Status)
	}
	last := updated.Activities[len(updated.Activities)-1]
	if last.Description != "Status changed to Delayed" || last.PerformedBy != "staff-1" {
		t.Errorf("unexpected activity %+v", last)
	}
	if updated.Version <= p.Version {
		t.Errorf("version not bumped: %d -> %d", p.Version, updated.Version)
	}

	if _, err := svc.SetStatus(context.Background(), p.ID, "Paused", staffActor); err == nil {
		t.Error("expected error for unknown status")
	}
	if _, err := svc.SetStatus(context.Background(), "missing", models.ProjectDelayed, staffActor); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAddNote(t *testing.T) {
	st := store.NewMemory()
	svc := NewProjects(st)
	p := newTestProject(t, st, svc)

	if _, err := svc.AddNote(context.Background(), p.ID, "", false, staffActor); err == nil {
		t.Fatal("expected error for empty note")
	}

	updated, err := svc.AddNote(context.Background(), p.ID, "kickoff call went well", true, staffActor)
	if err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	if len(updated.Notes) != 1 {
		t.Fatalf("expected 1 note, got %d", len(updated.Notes))
	}
	n := updated.Notes[0]
	if n.Content != "kickoff call went well" || !n.IsInternal || n.CreatedBy != "staff-1" || n.ID == "" {
		t.Errorf("unexpected note %+v", n)
	}
	last := updated.Activities[len(updated.Activities)-1]
	if last.Type != models.ActivityNote || last.Description != "Note added" {
		t.Errorf("unexpected activity %+v", last)
	}
}

func TestVisibleNotesFiltersInternal(t *testing.T) {
	p := &models.Project{Notes: []models.Note{
		{Content: "public", IsInternal: false},
		{Content: "internal", IsInternal: true},
	}}
	if got := p.VisibleNotes(models.RoleStaff); len(got) != 2 {
		t.Errorf("staff should see all notes, got %d", len(got))
	}
	got := p.VisibleNotes(models.RoleCustomer)
	if len(got) != 1 || got[0].Content != "public" {
		t.Errorf("customer notes = %+v", got)
	}
}

func TestListProjects(t *testing.T) {
	st := store.NewMemory()
	svc := NewProjects(st)
	newTestProject(t, st, svc)
	other, err := svc.Create(context.Background(), models.CreateProjectRequest{
		CustomerID:   "cust-2",
		CustomerName: "Grace Hopper",
		CompanyName:  "Compilers Inc",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	all, err := svc.List(context.Background(), store.ProjectQuery{})
	if err != nil || len(all) != 2 {
		t.Fatalf("List all = %d projects, err %v", len(all), err)
	}
	byCustomer, err := svc.List(context.Background(), store.ProjectQuery{CustomerID: "cust-2"})
	if err != nil || len(byCustomer) != 1 || byCustomer[0].ID != other.ID {
		t.Fatalf("List by customer = %+v, err %v", byCustomer, err)
	}
	byStaff, err := svc.List(context.Background(), store.ProjectQuery{AssignedStaffID: "staff-1"})
	if err != nil || len(byStaff) != 1 {
		t.Fatalf("List by staff = %d, err %v", len(byStaff), err)
	}
}

func TestOverviewAggregates(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := NewProjects(st)
	p := newTestProject(t, st, svc)

	if _, err := st.CreateDocument(ctx, &models.Document{ProjectID: p.ID, Name: "passport.pdf", Required: true, Status: models.DocumentUploaded}); err != nil {
		t.Fatal(err)
	}
	form, err := st.CreateForm(ctx, &models.Form{ProjectID: p.ID, Title: "Company Information", Required: true, Status: models.FormPending, Version: 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateFormResponse(ctx, &models.FormResponse{FormID: form.ID, ProjectID: p.ID}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateAppointment(ctx, &models.Appointment{ProjectID: p.ID, Date: time.Now(), Status: models.AppointmentScheduled}); err != nil {
		t.Fatal(err)
	}

	ov, err := svc.Overview(ctx, p.ID)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if ov.Project == nil || ov.Project.ID != p.ID {
		t.Error("overview missing project")
	}
	if len(ov.Documents) != 1 || len(ov.Forms) != 1 || len(ov.Responses) != 1 || len(ov.Appointments) != 1 {
		t.Errorf("overview counts: docs=%d forms=%d responses=%d appts=%d",
			len(ov.Documents), len(ov.Forms), len(ov.Responses), len(ov.Appointments))
	}

	if _, err := svc.Overview(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTimelineOrder(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	p := &models.Project{Activities: []models.ActivityLog{
		{ID: "a", Timestamp: base},
		{ID: "b", Timestamp: base.Add(time.Minute)},
		{ID: "c", Timestamp: base.Add(time.Minute)}, // same instant as b, inserted later
		{ID: "d", Timestamp: base.Add(-time.Minute)},
	}}
	tl := Timeline(p)
	got := []string{tl[0].ID, tl[1].ID, tl[2].ID, tl[3].ID}
	want := []string{"c", "b", "a", "d"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("timeline order = %v, want %v", got, want)
		}
	}
	// Source log untouched.
	if p.Activities[0].ID != "a" {
		t.Error("Timeline must not reorder the stored log")
	}
}

func TestActivityWriterAppend(t *testing.T) {
	st := store.NewMemory()
	svc := NewProjects(st)
	p := newTestProject(t, st, svc)

	w := NewActivityWriter(st)
	entry := models.ActivityLog{Type: models.ActivityCall, Description: "Call rescheduled", PerformedBy: "staff-1", PerformedByType: models.RoleStaff}
	if err := w.Append(context.Background(), p.ID, entry); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := w.Append(context.Background(), "missing", entry); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	got, err := st.Project(context.Background(), p.ID)
	if err != nil {
		t.Fatal(err)
	}
	last := got.Activities[len(got.Activities)-1]
	if last.Description != "Call rescheduled" || last.ID == "" || last.Timestamp.IsZero() {
		t.Errorf("unexpected entry %+v", last)
	}
}
