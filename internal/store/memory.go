package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/onboardhq/onboardflow/internal/models"
)

// Memory is an in-memory Store used by tests and local development. A
// single mutex serializes all writes, so project mutations get the same
// lost-update protection the Firestore implementation gets from
// transactions.
type Memory struct {
	mu           sync.RWMutex
	projects     map[string]models.Project
	documents    map[string]models.Document
	forms        map[string]models.Form
	responses    map[string]models.FormResponse
	appointments map[string]models.Appointment

	// seq preserves insertion order for queries over map-backed state.
	seq   map[string]int
	nextN int

	nowFn func() time.Time
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		projects:     make(map[string]models.Project),
		documents:    make(map[string]models.Document),
		forms:        make(map[string]models.Form),
		responses:    make(map[string]models.FormResponse),
		appointments: make(map[string]models.Appointment),
		seq:          make(map[string]int),
		nowFn:        func() time.Time { return time.Now().UTC() },
	}
}

// SetNow overrides the store clock. Test hook.
func (s *Memory) SetNow(fn func() time.Time) { s.nowFn = fn }

func (s *Memory) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

func (s *Memory) track(id string) {
	s.seq[id] = s.nextN
	s.nextN++
}

// --- projects ---

func cloneProject(p models.Project) models.Project {
	cp := p
	cp.Documents.Required = append([]string(nil), p.Documents.Required...)
	cp.Documents.Uploaded = append([]string(nil), p.Documents.Uploaded...)
	cp.Forms.Required = append([]string(nil), p.Forms.Required...)
	cp.Forms.Completed = append([]string(nil), p.Forms.Completed...)
	cp.Activities = append([]models.ActivityLog(nil), p.Activities...)
	cp.Notes = append([]models.Note(nil), p.Notes...)
	if p.CallScheduled != nil {
		t := *p.CallScheduled
		cp.CallScheduled = &t
	}
	return cp
}

func (s *Memory) CreateProject(ctx context.Context, p *models.Project) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.newID()
	p.LastUpdated = s.nowFn()
	p.Version = 1
	s.projects[p.ID] = cloneProject(*p)
	s.track(p.ID)
	return p, nil
}

func (s *Memory) Project(ctx context.Context, id string) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	cp := cloneProject(p)
	return &cp, nil
}

func (s *Memory) MutateProject(ctx context.Context, id string, fn func(*models.Project) error) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	p := cloneProject(stored)
	if err := fn(&p); err != nil {
		return nil, err
	}
	p.LastUpdated = s.nowFn()
	p.Version++
	s.projects[id] = cloneProject(p)
	return &p, nil
}

func (s *Memory) Projects(ctx context.Context, q ProjectQuery) *Iterator[models.Project] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Project
	for _, p := range s.projects {
		if q.CustomerID != "" && p.CustomerID != q.CustomerID {
			continue
		}
		if q.AssignedStaffID != "" && p.AssignedStaffID != q.AssignedStaffID {
			continue
		}
		if q.Status != "" && p.Status != q.Status {
			continue
		}
		out = append(out, cloneProject(p))
	}
	sortByInsertion(s.seq, out, func(p models.Project) string { return p.ID })
	return SliceIterator(out)
}

// --- documents ---

func cloneDocument(d models.Document) models.Document {
	cp := d
	cp.PriorVersions = append([]models.DocumentVersion(nil), d.PriorVersions...)
	if d.VerifiedAt != nil {
		t := *d.VerifiedAt
		cp.VerifiedAt = &t
	}
	return cp
}

func (s *Memory) CreateDocument(ctx context.Context, d *models.Document) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.ID = s.newID()
	d.UpdatedAt = s.nowFn()
	s.documents[d.ID] = cloneDocument(*d)
	s.track(d.ID)
	return d, nil
}

func (s *Memory) Document(ctx context.Context, id string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	cp := cloneDocument(d)
	return &cp, nil
}

func (s *Memory) MutateDocument(ctx context.Context, id string, fn func(*models.Document) error) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	d := cloneDocument(stored)
	if err := fn(&d); err != nil {
		return nil, err
	}
	d.UpdatedAt = s.nowFn()
	s.documents[id] = cloneDocument(d)
	return &d, nil
}

func (s *Memory) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	delete(s.documents, id)
	return nil
}

func (s *Memory) Documents(ctx context.Context, q DocumentQuery) *Iterator[models.Document] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Document
	for _, d := range s.documents {
		if q.ProjectID != "" && d.ProjectID != q.ProjectID {
			continue
		}
		if q.CustomerID != "" && d.CustomerID != q.CustomerID {
			continue
		}
		if q.FilePath != "" && d.FilePath != q.FilePath {
			continue
		}
		out = append(out, cloneDocument(d))
	}
	sortByInsertion(s.seq, out, func(d models.Document) string { return d.ID })
	return SliceIterator(out)
}

// --- forms ---

func cloneForm(f models.Form) models.Form {
	cp := f
	cp.Fields = append([]models.FormField(nil), f.Fields...)
	for i, fld := range cp.Fields {
		cp.Fields[i].Options = append([]models.FieldOption(nil), fld.Options...)
	}
	if f.CompletedAt != nil {
		t := *f.CompletedAt
		cp.CompletedAt = &t
	}
	if f.ReviewedAt != nil {
		t := *f.ReviewedAt
		cp.ReviewedAt = &t
	}
	return cp
}

func (s *Memory) CreateForm(ctx context.Context, f *models.Form) (*models.Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.ID = s.newID()
	now := s.nowFn()
	f.CreatedAt = now
	f.UpdatedAt = now
	s.forms[f.ID] = cloneForm(*f)
	s.track(f.ID)
	return f, nil
}

func (s *Memory) Form(ctx context.Context, id string) (*models.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.forms[id]
	if !ok {
		return nil, fmt.Errorf("form %s: %w", id, ErrNotFound)
	}
	cp := cloneForm(f)
	return &cp, nil
}

func (s *Memory) MutateForm(ctx context.Context, id string, fn func(*models.Form) error) (*models.Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.forms[id]
	if !ok {
		return nil, fmt.Errorf("form %s: %w", id, ErrNotFound)
	}
	f := cloneForm(stored)
	if err := fn(&f); err != nil {
		return nil, err
	}
	f.UpdatedAt = s.nowFn()
	s.forms[id] = cloneForm(f)
	return &f, nil
}

func (s *Memory) Forms(ctx context.Context, q FormQuery) *Iterator[models.Form] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Form
	for _, f := range s.forms {
		if q.ProjectID != "" && f.ProjectID != q.ProjectID {
			continue
		}
		if q.CustomerID != "" && f.CustomerID != q.CustomerID {
			continue
		}
		out = append(out, cloneForm(f))
	}
	if q.ProjectID != "" {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	} else {
		sortByInsertion(s.seq, out, func(f models.Form) string { return f.ID })
	}
	return SliceIterator(out)
}

// --- form responses ---

func cloneResponse(r models.FormResponse) models.FormResponse {
	cp := r
	if r.Responses != nil {
		cp.Responses = make(map[string]any, len(r.Responses))
		for k, v := range r.Responses {
			cp.Responses[k] = v
		}
	}
	return cp
}

func (s *Memory) CreateFormResponse(ctx context.Context, r *models.FormResponse) (*models.FormResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.newID()
	s.responses[r.ID] = cloneResponse(*r)
	s.track(r.ID)
	return r, nil
}

func (s *Memory) FormResponses(ctx context.Context, q ResponseQuery) *Iterator[models.FormResponse] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.FormResponse
	for _, r := range s.responses {
		if q.FormID != "" && r.FormID != q.FormID {
			continue
		}
		if q.ProjectID != "" && r.ProjectID != q.ProjectID {
			continue
		}
		if q.CustomerID != "" && r.CustomerID != q.CustomerID {
			continue
		}
		out = append(out, cloneResponse(r))
	}
	sortByInsertion(s.seq, out, func(r models.FormResponse) string { return r.ID })
	return SliceIterator(out)
}

// --- appointments ---

func (s *Memory) CreateAppointment(ctx context.Context, a *models.Appointment) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.newID()
	now := s.nowFn()
	a.CreatedAt = now
	a.UpdatedAt = now
	s.appointments[a.ID] = *a
	s.track(a.ID)
	return a, nil
}

func (s *Memory) Appointment(ctx context.Context, id string) (*models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	return &a, nil
}

func (s *Memory) MutateAppointment(ctx context.Context, id string, fn func(*models.Appointment) error) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.appointments[id]
	if !ok {
		return nil, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	a := stored
	if err := fn(&a); err != nil {
		return nil, err
	}
	a.UpdatedAt = s.nowFn()
	s.appointments[id] = a
	return &a, nil
}

func (s *Memory) Appointments(ctx context.Context, q AppointmentQuery) *Iterator[models.Appointment] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Appointment
	for _, a := range s.appointments {
		if q.ProjectID != "" && a.ProjectID != q.ProjectID {
			continue
		}
		if q.CustomerID != "" && a.CustomerID != q.CustomerID {
			continue
		}
		if q.Status != "" && a.Status != q.Status {
			continue
		}
		if !q.From.IsZero() && a.Date.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && a.Date.After(q.To) {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if q.DateDesc {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Date.Before(out[j].Date)
	})
	return SliceIterator(out)
}

// sortByInsertion orders query results by creation order, which stands in
// for Firestore's stable snapshot ordering.
func sortByInsertion[T any](seq map[string]int, items []T, id func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		return seq[id(items[i])] < seq[id(items[j])]
	})
}
