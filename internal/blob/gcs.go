package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// signedURLTTL bounds how long a download link handed to the UI stays
// valid.
const signedURLTTL = 15 * time.Minute

// GCS implements Store on a single Cloud Storage bucket.
type GCS struct {
	bucket *storage.BucketHandle
	name   string
}

// NewGCS wraps the named bucket of an existing storage client.
func NewGCS(client *storage.Client, bucket string) *GCS {
	return &GCS{bucket: client.Bucket(bucket), name: bucket}
}

func (g *GCS) Upload(ctx context.Context, path string, r io.Reader, opts UploadOptions) error {
	w := g.bucket.Object(path).NewWriter(ctx)
	if opts.ContentType != "" {
		w.ContentType = opts.ContentType
	}
	if _, err := io.Copy(w, wrapProgress(r, opts)); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write gs://%s/%s: %w", g.name, path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize gs://%s/%s: %w", g.name, path, err)
	}
	return nil
}

func (g *GCS) SignedURL(ctx context.Context, path string) (string, error) {
	url, err := g.bucket.SignedURL(path, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(signedURLTTL),
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign URL for gs://%s/%s: %w", g.name, path, err)
	}
	return url, nil
}

func (g *GCS) Delete(ctx context.Context, path string) error {
	if err := g.bucket.Object(path).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("gs://%s/%s: %w", g.name, path, ErrNotExist)
		}
		return fmt.Errorf("failed to delete gs://%s/%s: %w", g.name, path, err)
	}
	return nil
}

func (g *GCS) List(ctx context.Context, prefix string) ([]Object, error) {
	it := g.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	var out []Object
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list gs://%s/%s*: %w", g.name, prefix, err)
		}
		out = append(out, Object{Path: attrs.Name, Size: attrs.Size, Created: attrs.Created})
	}
	return out, nil
}
