package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/onboardhq/onboardflow/internal/blob"
	"github.com/onboardhq/onboardflow/internal/models"
	"github.com/onboardhq/onboardflow/internal/store"
)

func TestSweepRemovesOrphans(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	blobs := blob.NewMemory()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	old := now.Add(-2 * time.Hour)

	put := func(path string, created time.Time) {
		t.Helper()
		blobs.SetNow(func() time.Time { return created })
		if err := blobs.Upload(ctx, path, bytes.NewReader([]byte("x")), blob.UploadOptions{}); err != nil {
			t.Fatal(err)
		}
	}

	// Referenced by a live record: kept regardless of age.
	put("documents/p1/1_current.png", old)
	// Referenced only through the record's version history: kept.
	put("documents/p1/1_prior.png", old)
	// Old and unreferenced: reclaimed.
	put("documents/p1/1_orphan.png", old)
	// Unreferenced but inside the grace window: kept, its record write may
	// still be in flight.
	put("documents/p1/1_fresh.png", now.Add(-time.Minute))
	// Outside the sweep prefix: never considered.
	put("exports/report.csv", old)

	if _, err := st.CreateDocument(ctx, &models.Document{
		ProjectID: "p1",
		FilePath:  "documents/p1/1_current.png",
		PriorVersions: []models.DocumentVersion{
			{Version: 1, FilePath: "documents/p1/1_prior.png"},
		},
	}); err != nil {
		t.Fatal(err)
	}

	svc := NewReconciler(st, blobs, DefaultReconcilerConfig())
	svc.nowFn = func() time.Time { return now }

	removed, err := svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, ok := blobs.Get("documents/p1/1_orphan.png"); ok {
		t.Error("orphan survived the sweep")
	}
	for _, path := range []string{
		"documents/p1/1_current.png",
		"documents/p1/1_prior.png",
		"documents/p1/1_fresh.png",
		"exports/report.csv",
	} {
		if _, ok := blobs.Get(path); !ok {
			t.Errorf("%s should have been kept", path)
		}
	}
}

func TestSweepEmptyStore(t *testing.T) {
	svc := NewReconciler(store.NewMemory(), blob.NewMemory(), DefaultReconcilerConfig())
	removed, err := svc.Sweep(context.Background())
	if err != nil || removed != 0 {
		t.Fatalf("Sweep = %d, %v", removed, err)
	}
}
