package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/onboardhq/onboardflow/internal/models"
	"github.com/onboardhq/onboardflow/internal/store"
)

// newEntryID mints identifiers for embedded activity and note entries,
// which have no document of their own.
func newEntryID() string { return uuid.NewString() }

// appendActivity adds one immutable entry to the project's audit trail,
// assigning an id and timestamp when the caller left them zero. It never
// touches prior entries. Runs inside a project mutator.
func appendActivity(p *models.Project, entry models.ActivityLog, at time.Time) {
	if entry.ID == "" {
		entry.ID = newEntryID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = at
	}
	p.Activities = append(p.Activities, entry)
}

// ActivityWriter appends audit entries to a project for callers outside
// the lifecycle managers. Each call produces exactly one new entry; there
// is no deduplication.
type ActivityWriter struct {
	store store.Store
}

// NewActivityWriter constructs a writer over the given store.
func NewActivityWriter(st store.Store) *ActivityWriter {
	return &ActivityWriter{store: st}
}

// Append records the entry on the project's log. Fails when the project
// does not exist.
func (w *ActivityWriter) Append(ctx context.Context, projectID string, entry models.ActivityLog) error {
	_, err := w.store.MutateProject(ctx, projectID, func(p *models.Project) error {
		appendActivity(p, entry, time.Now().UTC())
		return nil
	})
	return err
}

// Timeline returns the project's activities in display order: newest
// first, ties broken by insertion order (later insertions first).
func Timeline(p *models.Project) []models.ActivityLog {
	out := make([]models.ActivityLog, len(p.Activities))
	// Reversing before the stable sort makes insertion order the
	// tiebreak for equal timestamps.
	for i, a := range p.Activities {
		out[len(p.Activities)-1-i] = a
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}
