package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/onboardhq/onboardflow/internal/models"
	"github.com/onboardhq/onboardflow/internal/store"
)

// ProjectsService manages the onboarding engagement aggregate: creation,
// status transitions, notes, and the read paths behind the staff
// dashboard.
type ProjectsService struct {
	store store.Store
	nowFn func() time.Time
}

// NewProjects constructs the project manager.
func NewProjects(st store.Store) *ProjectsService {
	return &ProjectsService{store: st, nowFn: func() time.Time { return time.Now().UTC() }}
}

// Create starts a new onboarding engagement. The required document and
// form tags seed the denormalized bookkeeping the dashboard renders before
// any records exist.
func (s *ProjectsService) Create(ctx context.Context, req models.CreateProjectRequest) (*models.Project, error) {
	now := s.nowFn()
	p := &models.Project{
		CustomerID:   req.CustomerID,
		CustomerName: req.CustomerName,
		CompanyName:  req.CompanyName,
		Status:       models.ProjectOnTrack,
		Progress:     0,
		StartDate:    now,
		Documents: models.TagSet{
			Required: append([]string(nil), req.RequiredDocuments...),
			Uploaded: []string{},
		},
		Forms: models.FormTagSet{
			Required:  append([]string(nil), req.RequiredForms...),
			Completed: []string{},
		},
		AssignedStaffID: req.AssignedStaffID,
		Activities:      []models.ActivityLog{},
		Notes:           []models.Note{},
	}
	appendActivity(p, models.ActivityLog{
		Type:            models.ActivityStatus,
		Description:     "Project created",
		PerformedBy:     models.SystemActor.ID,
		PerformedByType: models.RoleSystem,
	}, now)

	created, err := s.store.CreateProject(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	slog.Info("Project created.", "projectId", created.ID, "customerId", created.CustomerID)
	return created, nil
}

// Get returns one project by id.
func (s *ProjectsService) Get(ctx context.Context, projectID string) (*models.Project, error) {
	return s.store.Project(ctx, projectID)
}

// List returns projects matching the query, e.g. all projects for one
// customer, one assigned staff member, or one status.
func (s *ProjectsService) List(ctx context.Context, q store.ProjectQuery) ([]models.Project, error) {
	return s.store.Projects(ctx, q).All()
}

// SetStatus transitions the engagement status and records who did it.
func (s *ProjectsService) SetStatus(ctx context.Context, projectID string, status models.ProjectStatus, actor models.Actor) (*models.Project, error) {
	switch status {
	case models.ProjectOnTrack, models.ProjectDelayed, models.ProjectCompleted:
	default:
		return nil, fmt.Errorf("invalid project status %q", status)
	}
	p, err := s.store.MutateProject(ctx, projectID, func(p *models.Project) error {
		p.Status = status
		appendActivity(p, models.ActivityLog{
			Type:            models.ActivityStatus,
			Description:     fmt.Sprintf("Status changed to %s", status),
			PerformedBy:     actor.ID,
			PerformedByType: actor.Role,
		}, s.nowFn())
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Project status changed.", "projectId", projectID, "status", string(status), "actor", actor.ID)
	return p, nil
}

// AddNote appends a free-text annotation plus its audit entry.
func (s *ProjectsService) AddNote(ctx context.Context, projectID, content string, isInternal bool, actor models.Actor) (*models.Project, error) {
	if content == "" {
		return nil, fmt.Errorf("note content must not be empty")
	}
	now := s.nowFn()
	return s.store.MutateProject(ctx, projectID, func(p *models.Project) error {
		p.Notes = append(p.Notes, models.Note{
			ID:            newEntryID(),
			Content:       content,
			CreatedAt:     now,
			CreatedBy:     actor.ID,
			CreatedByType: actor.Role,
			IsInternal:    isInternal,
		})
		appendActivity(p, models.ActivityLog{
			Type:            models.ActivityNote,
			Description:     "Note added",
			PerformedBy:     actor.ID,
			PerformedByType: actor.Role,
		}, now)
		return nil
	})
}

// Overview assembles the full picture the staff detail page renders. The
// four dependent collections load concurrently.
func (s *ProjectsService) Overview(ctx context.Context, projectID string) (*models.ProjectOverviewResponse, error) {
	project, err := s.store.Project(ctx, projectID)
	if err != nil {
		return nil, err
	}

	out := &models.ProjectOverviewResponse{Project: project}
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		docs, err := s.store.Documents(gctx, store.DocumentQuery{ProjectID: projectID}).All()
		out.Documents = docs
		return err
	})
	eg.Go(func() error {
		forms, err := s.store.Forms(gctx, store.FormQuery{ProjectID: projectID}).All()
		out.Forms = forms
		return err
	})
	eg.Go(func() error {
		responses, err := s.store.FormResponses(gctx, store.ResponseQuery{ProjectID: projectID}).All()
		out.Responses = responses
		return err
	})
	eg.Go(func() error {
		appts, err := s.store.Appointments(gctx, store.AppointmentQuery{ProjectID: projectID, DateDesc: true}).All()
		out.Appointments = appts
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load project %s overview: %w", projectID, err)
	}
	return out, nil
}
