package services

import (
	"context"
	"fmt"

	"github.com/onboardhq/onboardflow/internal/blob"
	"github.com/onboardhq/onboardflow/internal/gcp"
	"github.com/onboardhq/onboardflow/internal/store"
)

// Deps bundles the shared backends the deployed functions construct once at
// cold start.
type Deps struct {
	Store  store.Store
	Blobs  blob.Store
	Bucket string
}

// NewDepsFromEnv builds the production store and blob backends. PROJECT_ID
// must be set; DOCUMENTS_BUCKET is only required by the functions that touch
// files.
func NewDepsFromEnv(ctx context.Context) (*Deps, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	fsClient, err := gcp.NewFirestoreClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	deps := &Deps{Store: store.NewFirestore(fsClient, store.DefaultCollections())}

	if bucket := gcp.GetEnv("DOCUMENTS_BUCKET", ""); bucket != "" {
		storageClient, err := gcp.NewStorageClient(ctx)
		if err != nil {
			return nil, err
		}
		deps.Blobs = blob.NewGCS(storageClient, bucket)
		deps.Bucket = bucket
	}
	return deps, nil
}

// RequireBlobs returns an error when DOCUMENTS_BUCKET was not configured.
func (d *Deps) RequireBlobs() error {
	if d.Blobs == nil {
		return fmt.Errorf("DOCUMENTS_BUCKET environment variable must be set")
	}
	return nil
}
