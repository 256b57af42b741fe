package imagecache

import (
	"errors"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// HandlePrefix starts every handle created by a Registry.
const HandlePrefix = "blob:"

// ErrUnknownHandle is returned when releasing a handle the registry does not hold.
var ErrUnknownHandle = errors.New("unknown resource handle")

// blob is the downloaded content behind a handle.
type blob struct {
	data        []byte
	contentType string
}

// Registry holds downloaded image bytes in memory and hands out handles for them.
//
// Handles live only as long as the process. A handle must be released once
// nothing refers to it, otherwise its bytes are kept forever.
type Registry struct {
	mu    sync.RWMutex
	blobs map[string]blob
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		blobs: make(map[string]blob),
	}
}

// IsHandle reports whether s looks like a handle created by a Registry.
func IsHandle(s string) bool {
	return strings.HasPrefix(s, HandlePrefix)
}

// Create stores data and returns a new handle for it.
func (r *Registry) Create(data []byte, contentType string) string {
	handle := HandlePrefix + uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.blobs[handle] = blob{data: data, contentType: contentType}
	return handle
}

// Lookup returns the bytes and content type behind handle.
func (r *Registry) Lookup(handle string) ([]byte, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.blobs[handle]
	if !ok {
		return nil, "", false
	}
	return b.data, b.contentType, true
}

// Has reports whether handle is live.
func (r *Registry) Has(handle string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.blobs[handle]
	return ok
}

// Release frees the bytes behind handle.
func (r *Registry) Release(handle string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.blobs[handle]; !ok {
		return ErrUnknownHandle
	}
	delete(r.blobs, handle)
	return nil
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blobs)
}

// ServeHTTP serves the bytes of the handle named by the last path segment,
// so "/blob/<id>" serves handle "blob:<id>".
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		http.Error(w, "only GET method is allowed", http.StatusMethodNotAllowed)
		return
	}

	id := path.Base(req.URL.Path)
	data, contentType, ok := r.Lookup(HandlePrefix + id)
	if !ok {
		http.NotFound(w, req)
		return
	}

	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	// Handles are never reused for other content
	w.Header().Set("Cache-Control", "private, max-age=604800, immutable")
	if req.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(data)
}
