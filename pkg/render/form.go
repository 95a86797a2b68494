package render

import "github.com/goliatone/go-formflow/pkg/field"

// Form is the renderer-facing description of one form: identity, submit
// target, and the descriptors to lay out in declaration order.
type Form struct {
	// Name identifies the form ("articles.create"); renderers use it for
	// data attributes and translation keys.
	Name string
	// Title is the human heading. Renderers fall back to Name when empty.
	Title string
	// Entity names the record type the form edits, when known.
	Entity string
	// Action is the submit URL. RenderOptions.Action overrides it.
	Action string
	// Method is the submit verb. Defaults to POST when empty.
	Method string
	Fields []field.Descriptor
}

// Field looks up a descriptor by name.
func (f Form) Field(name string) (field.Descriptor, bool) {
	for _, d := range f.Fields {
		if d.Name == name {
			return d, true
		}
	}
	return field.Descriptor{}, false
}

// DisplayTitle returns the declared title or the form name as fallback.
func (f Form) DisplayTitle() string {
	if f.Title != "" {
		return f.Title
	}
	return f.Name
}
