package attachment

import (
	"sync"

	"github.com/google/uuid"
)

// Preview is addressable attached content, typically an image a renderer
// shows before the form is submitted.
type Preview struct {
	ID      string
	Name    string
	MIME    string
	Content []byte
}

// PreviewStore hands out handles to attached content so previews have an
// explicit lifecycle: created on attach, released on remove, replace, or
// reset. One store is shared across a session's controllers; an HTTP surface
// can serve preview bytes straight from it.
type PreviewStore struct {
	mu       sync.RWMutex
	previews map[string]Preview
}

func NewPreviewStore() *PreviewStore {
	return &PreviewStore{previews: make(map[string]Preview)}
}

// Create registers content and returns its handle.
func (ps *PreviewStore) Create(f File) string {
	id := uuid.NewString()
	ps.mu.Lock()
	ps.previews[id] = Preview{
		ID:      id,
		Name:    f.Name,
		MIME:    f.MIME,
		Content: append([]byte(nil), f.Content...),
	}
	ps.mu.Unlock()
	return id
}

// Resolve returns the preview for a handle.
func (ps *PreviewStore) Resolve(id string) (Preview, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	preview, ok := ps.previews[id]
	return preview, ok
}

// Release drops a handle; releasing an unknown handle is a no-op.
func (ps *PreviewStore) Release(id string) {
	ps.mu.Lock()
	delete(ps.previews, id)
	ps.mu.Unlock()
}

// Len reports how many previews are live, which tests use to prove releases
// actually happen.
func (ps *PreviewStore) Len() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.previews)
}
