// Package attachment manages file and image fields. A controller tracks one
// field through its whole edit lifecycle and keeps the distinction between
// "never touched", "explicitly removed", and "replaced" intact, because the
// submit payload treats those three very differently.
package attachment

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

var (
	ErrTooLarge        = errors.New("attachment: file exceeds size limit")
	ErrUnsupportedType = errors.New("attachment: file type not allowed")
	ErrReadOnly        = errors.New("attachment: field is read-only")
	ErrEmptyFile       = errors.New("attachment: file has no content")
)

// File is a candidate attachment, content included.
type File struct {
	Name    string
	Size    int64
	MIME    string
	Content []byte
}

// Stored describes the attachment already persisted on a record. Edit
// sessions hold metadata only; the bytes stay server-side.
type Stored struct {
	Name string `json:"name"`
	Size int64  `json:"size,omitempty"`
	MIME string `json:"mime,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Status names the lifecycle position of an attachment field.
type Status string

const (
	// StatusEmpty means nothing stored and nothing attached.
	StatusEmpty Status = "empty"
	// StatusStored means the original attachment is untouched.
	StatusStored Status = "stored"
	// StatusAttached means a new file replaces whatever was stored.
	StatusAttached Status = "attached"
	// StatusRemoved means the stored attachment was explicitly deleted.
	StatusRemoved Status = "removed"
)

// State is a snapshot renderers paint from.
type State struct {
	Status    Status
	File      *File
	Original  *Stored
	PreviewID string
	Dirty     bool
}

// Controller guards one attachment field. Methods are safe for concurrent
// use.
type Controller struct {
	maxSize  int64
	accept   []string
	readOnly bool
	previews *PreviewStore

	mu        sync.Mutex
	original  *Stored
	file      *File
	removed   bool
	previewID string
}

// NewController builds a controller; see Options for the knobs.
func NewController(fns ...OptionFn) *Controller {
	opts := NewOptions(fns...)
	return &Controller{
		maxSize:  opts.MaxSize,
		accept:   opts.Accept,
		readOnly: opts.ReadOnly,
		previews: opts.Previews,
		original: opts.Original,
	}
}

// Attach validates and stores a new file. A rejected file leaves the
// controller exactly as it was, previous attachment included.
func (c *Controller) Attach(f File) error {
	if c.readOnly {
		return ErrReadOnly
	}
	if err := c.check(f); err != nil {
		return err
	}

	c.mu.Lock()
	c.releasePreviewLocked()
	copied := f
	copied.Content = append([]byte(nil), f.Content...)
	c.file = &copied
	c.removed = false
	if c.previews != nil && strings.HasPrefix(f.MIME, "image/") {
		c.previewID = c.previews.Create(copied)
	}
	c.mu.Unlock()
	return nil
}

// Remove clears the field. With a stored original this records an explicit
// deletion; without one it returns the field to its untouched state.
func (c *Controller) Remove() error {
	if c.readOnly {
		return ErrReadOnly
	}
	c.mu.Lock()
	c.releasePreviewLocked()
	c.file = nil
	c.removed = c.original != nil
	c.mu.Unlock()
	return nil
}

// Reset discards every local change and returns to the loaded state.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.releasePreviewLocked()
	c.file = nil
	c.removed = false
	c.mu.Unlock()
}

// Commit adopts the submitted state as the new baseline after a successful
// save. The stored metadata usually comes from the server response; when nil,
// a committed upload falls back to the local file's metadata and a committed
// removal leaves the field empty.
func (c *Controller) Commit(stored *Stored) {
	c.mu.Lock()
	c.releasePreviewLocked()
	switch {
	case stored != nil:
		copied := *stored
		c.original = &copied
	case c.file != nil:
		size := c.file.Size
		if size == 0 {
			size = int64(len(c.file.Content))
		}
		c.original = &Stored{Name: c.file.Name, Size: size, MIME: c.file.MIME}
	case c.removed:
		c.original = nil
	}
	c.file = nil
	c.removed = false
	c.mu.Unlock()
}

// Payload reports what the submit body should carry for this field:
//
//	(file, true)  a new upload
//	(nil, true)   an explicit null, deleting the stored attachment
//	(nil, false)  omit the key entirely, nothing changed
func (c *Controller) Payload() (*File, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.file != nil:
		copied := *c.file
		return &copied, true
	case c.removed:
		return nil, true
	default:
		return nil, false
	}
}

// Status reports the lifecycle position.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// Dirty reports whether submitting would change the stored attachment.
func (c *Controller) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.file != nil || c.removed
}

// Filled reports whether the field holds content, local or stored. Required
// attachment checks at submit time key off this.
func (c *Controller) Filled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.file != nil || (c.original != nil && !c.removed)
}

// PreviewID returns the live preview handle, empty when none exists.
func (c *Controller) PreviewID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.previewID
}

// Snapshot returns a copy of the visible state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{
		Status:    c.statusLocked(),
		PreviewID: c.previewID,
		Dirty:     c.file != nil || c.removed,
	}
	if c.file != nil {
		copied := *c.file
		copied.Content = nil
		st.File = &copied
	}
	if c.original != nil {
		copied := *c.original
		st.Original = &copied
	}
	return st
}

func (c *Controller) statusLocked() Status {
	switch {
	case c.file != nil:
		return StatusAttached
	case c.removed:
		return StatusRemoved
	case c.original != nil:
		return StatusStored
	default:
		return StatusEmpty
	}
}

func (c *Controller) releasePreviewLocked() {
	if c.previewID != "" && c.previews != nil {
		c.previews.Release(c.previewID)
	}
	c.previewID = ""
}

func (c *Controller) check(f File) error {
	size := f.Size
	if size == 0 {
		size = int64(len(f.Content))
	}
	if size == 0 {
		return fmt.Errorf("%q: %w", f.Name, ErrEmptyFile)
	}
	if size > c.maxSize {
		return fmt.Errorf("%q is %s, the limit is %s: %w",
			f.Name, FormatSize(size), FormatSize(c.maxSize), ErrTooLarge)
	}
	if len(c.accept) > 0 && !accepted(c.accept, f) {
		return fmt.Errorf("%q (%s): %w", f.Name, f.MIME, ErrUnsupportedType)
	}
	return nil
}

// accepted matches a file against the accept list: exact MIME, "type/*"
// wildcard, or filename extension entries.
func accepted(accept []string, f File) bool {
	mime := strings.ToLower(strings.TrimSpace(f.MIME))
	ext := strings.ToLower(filepath.Ext(f.Name))
	for _, entry := range accept {
		entry = strings.ToLower(strings.TrimSpace(entry))
		switch {
		case entry == "":
			continue
		case strings.HasPrefix(entry, "."):
			if ext == entry {
				return true
			}
		case strings.HasSuffix(entry, "/*"):
			if strings.HasPrefix(mime, strings.TrimSuffix(entry, "*")) {
				return true
			}
		default:
			if mime == entry {
				return true
			}
		}
	}
	return false
}

// FormatSize renders a byte count for error messages, binary units.
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return strconv.FormatInt(size, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	value := strconv.FormatFloat(float64(size)/float64(div), 'f', 1, 64)
	value = strings.TrimSuffix(value, ".0")
	return value + " " + []string{"KB", "MB", "GB", "TB"}[exp]
}
