package console

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("console: aborted")
	// ErrCancelled signals the user declined to submit the form.
	ErrCancelled = errors.New("console: cancelled")
)
