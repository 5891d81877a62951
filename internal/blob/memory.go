package blob

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

type memObject struct {
	data        []byte
	contentType string
	created     time.Time
}

// Memory is an in-memory Store for tests and local development.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memObject
	nowFn   func() time.Time
}

// NewMemory constructs an empty in-memory blob store.
func NewMemory() *Memory {
	return &Memory{
		objects: make(map[string]memObject),
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// SetNow overrides the store clock. Test hook.
func (m *Memory) SetNow(fn func() time.Time) { m.nowFn = fn }

func (m *Memory) Upload(ctx context.Context, path string, r io.Reader, opts UploadOptions) error {
	data, err := io.ReadAll(wrapProgress(r, opts))
	if err != nil {
		return fmt.Errorf("failed to read upload for %s: %w", path, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = memObject{data: data, contentType: opts.ContentType, created: m.nowFn()}
	return nil
}

func (m *Memory) SignedURL(ctx context.Context, path string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[path]; !ok {
		return "", fmt.Errorf("%s: %w", path, ErrNotExist)
	}
	return "memory://" + path, nil
}

func (m *Memory) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[path]; !ok {
		return fmt.Errorf("%s: %w", path, ErrNotExist)
	}
	delete(m.objects, path)
	return nil
}

func (m *Memory) List(ctx context.Context, prefix string) ([]Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Object
	for path, obj := range m.objects {
		if strings.HasPrefix(path, prefix) {
			out = append(out, Object{Path: path, Size: int64(len(obj.data)), Created: obj.created})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Get returns the stored bytes. Test helper.
func (m *Memory) Get(path string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[path]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), obj.data...), true
}
