package console

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/goliatone/go-formflow/pkg/attachment"
)

// FileOpener resolves a user-entered path into an attachment file. The
// default reads from disk; tests substitute in-memory files.
type FileOpener func(path string) (attachment.File, error)

// Option configures the console runner.
type Option func(*Runner)

// WithPromptDriver overrides the prompt driver used by the runner.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Runner) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithSelectPageSize bounds how many options a select prompt shows at once.
func WithSelectPageSize(size int) Option {
	return func(r *Runner) {
		if size > 0 {
			r.selectPageSize = size
		}
	}
}

// WithFileOpener overrides how attachment paths are resolved.
func WithFileOpener(open FileOpener) Option {
	return func(r *Runner) {
		if open != nil {
			r.openFile = open
		}
	}
}

func defaultFileOpener(path string) (attachment.File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return attachment.File{}, fmt.Errorf("console: read %s: %w", path, err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return attachment.File{
		Name:    filepath.Base(path),
		Size:    int64(len(content)),
		MIME:    contentType,
		Content: content,
	}, nil
}
