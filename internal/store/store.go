// Package store is the durable keyed storage boundary for the onboarding
// core. It abstracts a hosted document database: keyed lookup, create with
// assigned identity, closure-style transactional updates, and filtered /
// ordered queries returning single-use iterators.
package store

import (
	"context"
	"errors"
	"time"

	"google.golang.org/api/iterator"

	"github.com/onboardhq/onboardflow/internal/models"
)

// ErrNotFound is returned when an entity id does not exist. Callers should
// test with errors.Is; implementations wrap it with the entity kind and id.
var ErrNotFound = errors.New("not found")

// Store is the entity persistence boundary. All project mutations funnel
// through MutateProject so that progress, activities and denormalized tag
// lists are updated under a single transactional read-modify-write; the
// project aggregate is the only record shared between managers.
type Store interface {
	CreateProject(ctx context.Context, p *models.Project) (*models.Project, error)
	Project(ctx context.Context, id string) (*models.Project, error)
	// MutateProject loads the project, applies fn, and writes the result
	// back atomically. The stored version field is incremented on every
	// successful write; concurrent mutators never overwrite each other's
	// intermediate state.
	MutateProject(ctx context.Context, id string, fn func(*models.Project) error) (*models.Project, error)
	Projects(ctx context.Context, q ProjectQuery) *Iterator[models.Project]

	CreateDocument(ctx context.Context, d *models.Document) (*models.Document, error)
	Document(ctx context.Context, id string) (*models.Document, error)
	MutateDocument(ctx context.Context, id string, fn func(*models.Document) error) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	Documents(ctx context.Context, q DocumentQuery) *Iterator[models.Document]

	CreateForm(ctx context.Context, f *models.Form) (*models.Form, error)
	Form(ctx context.Context, id string) (*models.Form, error)
	MutateForm(ctx context.Context, id string, fn func(*models.Form) error) (*models.Form, error)
	Forms(ctx context.Context, q FormQuery) *Iterator[models.Form]

	CreateFormResponse(ctx context.Context, r *models.FormResponse) (*models.FormResponse, error)
	FormResponses(ctx context.Context, q ResponseQuery) *Iterator[models.FormResponse]

	CreateAppointment(ctx context.Context, a *models.Appointment) (*models.Appointment, error)
	Appointment(ctx context.Context, id string) (*models.Appointment, error)
	MutateAppointment(ctx context.Context, id string, fn func(*models.Appointment) error) (*models.Appointment, error)
	Appointments(ctx context.Context, q AppointmentQuery) *Iterator[models.Appointment]
}

// ProjectQuery filters project listings. Zero-value fields are ignored.
type ProjectQuery struct {
	CustomerID      string
	AssignedStaffID string
	Status          models.ProjectStatus
}

// DocumentQuery filters document listings.
type DocumentQuery struct {
	ProjectID  string
	CustomerID string
	FilePath   string // exact storage-path match, used by the reconciler
}

// FormQuery filters form listings. Results for a single project are
// ordered by the form's position in the multi-step flow.
type FormQuery struct {
	ProjectID  string
	CustomerID string
}

// ResponseQuery filters form-response listings.
type ResponseQuery struct {
	FormID     string
	ProjectID  string
	CustomerID string
}

// AppointmentQuery filters appointment listings. From/To bound the
// appointment date (inclusive); zero times are unbounded.
type AppointmentQuery struct {
	ProjectID  string
	CustomerID string
	Status     models.AppointmentStatus
	From       time.Time
	To         time.Time
	// DateDesc orders results newest-first; the default is oldest-first.
	DateDesc bool
}

// Iterator is a single-use sequence of query results. Next returns
// iterator.Done after the last element, mirroring a consumed query result
// set: once drained it cannot be restarted.
type Iterator[T any] struct {
	next func() (T, error)
}

// NewIterator wraps a next func. Intended for store implementations.
func NewIterator[T any](next func() (T, error)) *Iterator[T] {
	return &Iterator[T]{next: next}
}

// Next returns the next element, or iterator.Done when the sequence is
// exhausted.
func (it *Iterator[T]) Next() (T, error) {
	return it.next()
}

// All drains the iterator into a slice.
func (it *Iterator[T]) All() ([]T, error) {
	var out []T
	for {
		v, err := it.Next()
		if err == iterator.Done {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

// SliceIterator adapts an in-memory slice to the Iterator contract.
// Used by the memory store and by tests; terminates with iterator.Done.
func SliceIterator[T any](items []T) *Iterator[T] {
	i := 0
	return NewIterator(func() (T, error) {
		var zero T
		if i >= len(items) {
			return zero, iterator.Done
		}
		v := items[i]
		i++
		return v, nil
	})
}

// ErrIterator yields a single error. Store implementations use it when a
// query cannot even be constructed.
func ErrIterator[T any](err error) *Iterator[T] {
	return NewIterator(func() (T, error) {
		var zero T
		return zero, err
	})
}
