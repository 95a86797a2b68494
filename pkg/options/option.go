// Package options models remote reference data as label/value pairs and
// provides the Source seam the paginated selector fetches through. Sources
// stay dumb: pagination state, debouncing, and retry policy live with the
// caller.
package options

import "context"

// Option is a single selectable reference entry.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Query describes one page request against a Source.
type Query struct {
	// Search is the free-text filter; empty means unfiltered.
	Search string
	// Page is 1-based.
	Page int
	// PageSize caps the number of options returned per page.
	PageSize int
	// Filters carries static parameters forwarded verbatim to the source.
	Filters map[string]string
}

// Page is one fetched batch of options. Total is the remote item count when
// the source reports one, otherwise -1.
type Page struct {
	Options []Option
	Total   int
}

// TransformFunc converts a raw remote item into an Option. Returning false
// drops the item. When a source has a transform configured it takes
// precedence over label/value key extraction.
type TransformFunc func(item map[string]any) (Option, bool)

// Source supplies option pages. Implementations must be safe for use from a
// single selector goroutine at a time; they are not required to support
// concurrent FetchPage calls for the same selector instance.
type Source interface {
	FetchPage(ctx context.Context, query Query) (Page, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, query Query) (Page, error)

// FetchPage implements Source.
func (f SourceFunc) FetchPage(ctx context.Context, query Query) (Page, error) {
	return f(ctx, query)
}
