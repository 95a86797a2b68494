// Package render defines the seam between form descriptors and output
// surfaces. A Renderer turns a Form into bytes (an HTML document, a text
// summary), the Registry tracks renderers by name, and the Translator hooks
// localize titles, labels, and help text before rendering.
package render

import "context"

// Renderer converts a Form into a byte representation (HTML, text, etc.).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, form Form, options RenderOptions) ([]byte, error)
}
