package template

import (
	"io"
)

// TemplateRenderer is the contract renderers rely on. Render dispatches
// between named-template and inline-content rendering; RegisterFilter and
// GlobalContext let callers extend the template environment.
type TemplateRenderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	GlobalContext(data any) error
}
