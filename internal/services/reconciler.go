package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/onboardhq/onboardflow/internal/blob"
	"github.com/onboardhq/onboardflow/internal/store"
)

// ReconcilerConfig holds the tunables for the storage sweep.
type ReconcilerConfig struct {
	// Prefix limits the sweep to document uploads.
	Prefix string
	// GracePeriod protects blobs younger than this from deletion, so an
	// upload whose record write is still in flight is never reclaimed.
	GracePeriod time.Duration
	// MaxConcurrentDeletes bounds the delete fan-out.
	MaxConcurrentDeletes int
}

// DefaultReconcilerConfig returns the production sweep settings.
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		Prefix:               "documents/",
		GracePeriod:          1 * time.Hour,
		MaxConcurrentDeletes: 8,
	}
}

// ReconcilerService removes orphaned blobs: objects under the documents
// prefix that no document record references. Orphans appear when an upload
// succeeds in blob storage but the record write fails and the compensating
// delete also fails.
type ReconcilerService struct {
	store  store.Store
	blobs  blob.Store
	config ReconcilerConfig
	nowFn  func() time.Time
}

// NewReconciler constructs the storage reconciliation sweep.
func NewReconciler(st store.Store, blobs blob.Store, config ReconcilerConfig) *ReconcilerService {
	return &ReconcilerService{
		store:  st,
		blobs:  blobs,
		config: config,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// Sweep deletes unreferenced blobs past the grace window and returns how
// many were removed. Paths held by any document record — current version or
// a retained prior version — are never touched.
func (s *ReconcilerService) Sweep(ctx context.Context) (int, error) {
	referenced, err := s.referencedPaths(ctx)
	if err != nil {
		return 0, err
	}

	objects, err := s.blobs.List(ctx, s.config.Prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to list blobs under %q: %w", s.config.Prefix, err)
	}

	cutoff := s.nowFn().Add(-s.config.GracePeriod)
	var orphans []string
	for _, obj := range objects {
		if referenced[obj.Path] {
			continue
		}
		if obj.Created.After(cutoff) {
			continue
		}
		orphans = append(orphans, obj.Path)
	}
	if len(orphans) == 0 {
		slog.Info("Reconciliation sweep found no orphans.", "scanned", len(objects))
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.MaxConcurrentDeletes)
	for _, path := range orphans {
		g.Go(func() error {
			err := s.blobs.Delete(gctx, path)
			if err != nil && !errors.Is(err, blob.ErrNotExist) {
				return fmt.Errorf("failed to delete orphaned blob %s: %w", path, err)
			}
			slog.Info("Deleted orphaned blob.", "path", path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	slog.Info("Reconciliation sweep finished.", "scanned", len(objects), "removed", len(orphans))
	return len(orphans), nil
}

// referencedPaths collects every blob path any document record points at,
// including the file history kept on re-uploaded documents.
func (s *ReconcilerService) referencedPaths(ctx context.Context) (map[string]bool, error) {
	docs, err := s.store.Documents(ctx, store.DocumentQuery{}).All()
	if err != nil {
		return nil, fmt.Errorf("failed to list document records: %w", err)
	}
	referenced := make(map[string]bool, len(docs))
	for _, d := range docs {
		if d.FilePath != "" {
			referenced[d.FilePath] = true
		}
		for _, v := range d.PriorVersions {
			if v.FilePath != "" {
				referenced[v.FilePath] = true
			}
		}
	}
	return referenced, nil
}
