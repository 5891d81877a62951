// Package blob is the binary-object storage boundary: uploads with an
// optional progress callback, signed download URLs, delete-by-path, and
// prefix listing. Backed by Cloud Storage in production and by an
// in-memory implementation in tests.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"
)

// ErrNotExist is returned when the referenced object is missing.
var ErrNotExist = errors.New("object does not exist")

// UploadOptions carries optional parameters for Store.Upload.
type UploadOptions struct {
	ContentType string
	// Size is the total upload size in bytes, used only to report
	// percentages through Progress.
	Size int64
	// Progress, when set, is called as bytes are written.
	Progress func(written, total int64)
}

// Object describes one stored blob.
type Object struct {
	Path    string
	Size    int64
	Created time.Time
}

// Store is the blob storage abstraction consumed by the document lifecycle
// manager and the reconciliation sweep.
type Store interface {
	Upload(ctx context.Context, path string, r io.Reader, opts UploadOptions) error
	// SignedURL returns a time-limited download URL for the object.
	SignedURL(ctx context.Context, path string) (string, error)
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, prefix string) ([]Object, error)
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.]`)

// ObjectPath derives a collision-resistant storage path for an upload:
// documents/{projectID}/{unixMillis}_{sanitizedName}.
func ObjectPath(projectID, fileName string, at time.Time) string {
	clean := unsafeChars.ReplaceAllString(fileName, "_")
	return fmt.Sprintf("documents/%s/%d_%s", projectID, at.UnixMilli(), clean)
}

// progressReader reports bytes read through to the callback.
type progressReader struct {
	r        io.Reader
	total    int64
	written  int64
	progress func(written, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.written += int64(n)
		p.progress(p.written, p.total)
	}
	return n, err
}

// wrapProgress attaches the progress callback to the reader when one is
// configured.
func wrapProgress(r io.Reader, opts UploadOptions) io.Reader {
	if opts.Progress == nil {
		return r
	}
	return &progressReader{r: r, total: opts.Size, progress: opts.Progress}
}
