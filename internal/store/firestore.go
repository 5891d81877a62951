package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/onboardhq/onboardflow/internal/models"
)

// Collections names the Firestore collections backing each entity kind.
type Collections struct {
	Projects      string
	Documents     string
	Forms         string
	FormResponses string
	Appointments  string
}

// DefaultCollections returns the collection names used in production.
func DefaultCollections() Collections {
	return Collections{
		Projects:      "projects",
		Documents:     "documents",
		Forms:         "forms",
		FormResponses: "form_responses",
		Appointments:  "appointments",
	}
}

// Firestore implements Store on Cloud Firestore. Project mutations run
// inside RunTransaction, which gives the read-check-write semantics the
// project aggregate needs under concurrent uploads.
type Firestore struct {
	client *firestore.Client
	cols   Collections
}

// NewFirestore wraps an existing Firestore client.
func NewFirestore(client *firestore.Client, cols Collections) *Firestore {
	return &Firestore{client: client, cols: cols}
}

func notFound(kind, id string, err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s %s: %w", kind, id, err)
}

// --- projects ---

func (s *Firestore) CreateProject(ctx context.Context, p *models.Project) (*models.Project, error) {
	ref := s.client.Collection(s.cols.Projects).NewDoc()
	p.ID = ref.ID
	p.LastUpdated = time.Now().UTC()
	p.Version = 1
	if _, err := ref.Set(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return p, nil
}

func (s *Firestore) Project(ctx context.Context, id string) (*models.Project, error) {
	snap, err := s.client.Collection(s.cols.Projects).Doc(id).Get(ctx)
	if err != nil {
		return nil, notFound("project", id, err)
	}
	var p models.Project
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("failed to decode project %s: %w", id, err)
	}
	p.ID = snap.Ref.ID
	return &p, nil
}

func (s *Firestore) MutateProject(ctx context.Context, id string, fn func(*models.Project) error) (*models.Project, error) {
	ref := s.client.Collection(s.cols.Projects).Doc(id)
	var out models.Project
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return notFound("project", id, err)
		}
		var p models.Project
		if err := snap.DataTo(&p); err != nil {
			return fmt.Errorf("failed to decode project %s: %w", id, err)
		}
		p.ID = id
		if err := fn(&p); err != nil {
			return err
		}
		p.LastUpdated = time.Now().UTC()
		p.Version++
		out = p
		return tx.Set(ref, &p)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Firestore) Projects(ctx context.Context, q ProjectQuery) *Iterator[models.Project] {
	fq := s.client.Collection(s.cols.Projects).Query
	if q.CustomerID != "" {
		fq = fq.Where("customerId", "==", q.CustomerID)
	}
	if q.AssignedStaffID != "" {
		fq = fq.Where("assignedStaffId", "==", q.AssignedStaffID)
	}
	if q.Status != "" {
		fq = fq.Where("status", "==", string(q.Status))
	}
	return wrapDocs(fq.Documents(ctx), func(p *models.Project, id string) { p.ID = id })
}

// --- documents ---

func (s *Firestore) CreateDocument(ctx context.Context, d *models.Document) (*models.Document, error) {
	ref := s.client.Collection(s.cols.Documents).NewDoc()
	d.ID = ref.ID
	d.UpdatedAt = time.Now().UTC()
	if _, err := ref.Set(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}
	return d, nil
}

func (s *Firestore) Document(ctx context.Context, id string) (*models.Document, error) {
	snap, err := s.client.Collection(s.cols.Documents).Doc(id).Get(ctx)
	if err != nil {
		return nil, notFound("document", id, err)
	}
	var d models.Document
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	d.ID = snap.Ref.ID
	return &d, nil
}

func (s *Firestore) MutateDocument(ctx context.Context, id string, fn func(*models.Document) error) (*models.Document, error) {
	ref := s.client.Collection(s.cols.Documents).Doc(id)
	var out models.Document
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return notFound("document", id, err)
		}
		var d models.Document
		if err := snap.DataTo(&d); err != nil {
			return fmt.Errorf("failed to decode document %s: %w", id, err)
		}
		d.ID = id
		if err := fn(&d); err != nil {
			return err
		}
		d.UpdatedAt = time.Now().UTC()
		out = d
		return tx.Set(ref, &d)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Firestore) DeleteDocument(ctx context.Context, id string) error {
	ref := s.client.Collection(s.cols.Documents).Doc(id)
	if _, err := ref.Get(ctx); err != nil {
		return notFound("document", id, err)
	}
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return nil
}

func (s *Firestore) Documents(ctx context.Context, q DocumentQuery) *Iterator[models.Document] {
	fq := s.client.Collection(s.cols.Documents).Query
	if q.ProjectID != "" {
		fq = fq.Where("projectId", "==", q.ProjectID)
	}
	if q.CustomerID != "" {
		fq = fq.Where("customerId", "==", q.CustomerID)
	}
	if q.FilePath != "" {
		fq = fq.Where("filePath", "==", q.FilePath)
	}
	return wrapDocs(fq.Documents(ctx), func(d *models.Document, id string) { d.ID = id })
}

// --- forms ---

func (s *Firestore) CreateForm(ctx context.Context, f *models.Form) (*models.Form, error) {
	ref := s.client.Collection(s.cols.Forms).NewDoc()
	f.ID = ref.ID
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now
	if _, err := ref.Set(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to create form: %w", err)
	}
	return f, nil
}

func (s *Firestore) Form(ctx context.Context, id string) (*models.Form, error) {
	snap, err := s.client.Collection(s.cols.Forms).Doc(id).Get(ctx)
	if err != nil {
		return nil, notFound("form", id, err)
	}
	var f models.Form
	if err := snap.DataTo(&f); err != nil {
		return nil, fmt.Errorf("failed to decode form %s: %w", id, err)
	}
	f.ID = snap.Ref.ID
	return &f, nil
}

func (s *Firestore) MutateForm(ctx context.Context, id string, fn func(*models.Form) error) (*models.Form, error) {
	ref := s.client.Collection(s.cols.Forms).Doc(id)
	var out models.Form
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return notFound("form", id, err)
		}
		var f models.Form
		if err := snap.DataTo(&f); err != nil {
			return fmt.Errorf("failed to decode form %s: %w", id, err)
		}
		f.ID = id
		if err := fn(&f); err != nil {
			return err
		}
		f.UpdatedAt = time.Now().UTC()
		out = f
		return tx.Set(ref, &f)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Firestore) Forms(ctx context.Context, q FormQuery) *Iterator[models.Form] {
	fq := s.client.Collection(s.cols.Forms).Query
	if q.ProjectID != "" {
		fq = fq.Where("projectId", "==", q.ProjectID).OrderBy("order", firestore.Asc)
	}
	if q.CustomerID != "" {
		fq = fq.Where("customerId", "==", q.CustomerID)
	}
	return wrapDocs(fq.Documents(ctx), func(f *models.Form, id string) { f.ID = id })
}

// --- form responses ---

func (s *Firestore) CreateFormResponse(ctx context.Context, r *models.FormResponse) (*models.FormResponse, error) {
	ref := s.client.Collection(s.cols.FormResponses).NewDoc()
	r.ID = ref.ID
	if _, err := ref.Set(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to create form response: %w", err)
	}
	return r, nil
}

func (s *Firestore) FormResponses(ctx context.Context, q ResponseQuery) *Iterator[models.FormResponse] {
	fq := s.client.Collection(s.cols.FormResponses).Query
	if q.FormID != "" {
		fq = fq.Where("formId", "==", q.FormID)
	}
	if q.ProjectID != "" {
		fq = fq.Where("projectId", "==", q.ProjectID)
	}
	if q.CustomerID != "" {
		fq = fq.Where("customerId", "==", q.CustomerID)
	}
	return wrapDocs(fq.Documents(ctx), func(r *models.FormResponse, id string) { r.ID = id })
}

// --- appointments ---

func (s *Firestore) CreateAppointment(ctx context.Context, a *models.Appointment) (*models.Appointment, error) {
	ref := s.client.Collection(s.cols.Appointments).NewDoc()
	a.ID = ref.ID
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	if _, err := ref.Set(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}
	return a, nil
}

func (s *Firestore) Appointment(ctx context.Context, id string) (*models.Appointment, error) {
	snap, err := s.client.Collection(s.cols.Appointments).Doc(id).Get(ctx)
	if err != nil {
		return nil, notFound("appointment", id, err)
	}
	var a models.Appointment
	if err := snap.DataTo(&a); err != nil {
		return nil, fmt.Errorf("failed to decode appointment %s: %w", id, err)
	}
	a.ID = snap.Ref.ID
	return &a, nil
}

func (s *Firestore) MutateAppointment(ctx context.Context, id string, fn func(*models.Appointment) error) (*models.Appointment, error) {
	ref := s.client.Collection(s.cols.Appointments).Doc(id)
	var out models.Appointment
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return notFound("appointment", id, err)
		}
		var a models.Appointment
		if err := snap.DataTo(&a); err != nil {
			return fmt.Errorf("failed to decode appointment %s: %w", id, err)
		}
		a.ID = id
		if err := fn(&a); err != nil {
			return err
		}
		a.UpdatedAt = time.Now().UTC()
		out = a
		return tx.Set(ref, &a)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Firestore) Appointments(ctx context.Context, q AppointmentQuery) *Iterator[models.Appointment] {
	fq := s.client.Collection(s.cols.Appointments).Query
	if q.ProjectID != "" {
		fq = fq.Where("projectId", "==", q.ProjectID)
	}
	if q.CustomerID != "" {
		fq = fq.Where("customerId", "==", q.CustomerID)
	}
	if q.Status != "" {
		fq = fq.Where("status", "==", string(q.Status))
	}
	if !q.From.IsZero() {
		fq = fq.Where("date", ">=", q.From)
	}
	if !q.To.IsZero() {
		fq = fq.Where("date", "<=", q.To)
	}
	dir := firestore.Asc
	if q.DateDesc {
		dir = firestore.Desc
	}
	fq = fq.OrderBy("date", dir)
	return wrapDocs(fq.Documents(ctx), func(a *models.Appointment, id string) { a.ID = id })
}

// wrapDocs adapts a Firestore document iterator to the generic store
// iterator, decoding each snapshot and stamping the document ID.
func wrapDocs[T any](docs *firestore.DocumentIterator, setID func(*T, string)) *Iterator[T] {
	return NewIterator(func() (T, error) {
		var zero T
		snap, err := docs.Next()
		if err == iterator.Done {
			return zero, iterator.Done
		}
		if err != nil {
			return zero, fmt.Errorf("query failed: %w", err)
		}
		var v T
		if err := snap.DataTo(&v); err != nil {
			return zero, fmt.Errorf("failed to decode %s: %w", snap.Ref.ID, err)
		}
		setID(&v, snap.Ref.ID)
		return v, nil
	})
}
