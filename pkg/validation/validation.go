// Package validation turns field descriptors into runnable validation
// schemas. Generation is table-driven: each field kind maps to a rule
// builder, and an explicit descriptor rule replaces the generated one
// entirely.
package validation

import (
	"fmt"

	"github.com/goliatone/go-formflow/pkg/field"
)

// Issue is one per-field validation failure with a display-ready message.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Schema validates values against the descriptor set it was generated from.
type Schema struct {
	order []string
	specs map[string]field.Descriptor
	rules map[string]field.Rule
}

// Generate compiles a schema for a descriptor set. The set is structurally
// validated first; a bad pattern or duplicate name fails generation rather
// than surfacing later as a runtime panic.
func Generate(fields []field.Descriptor) (*Schema, error) {
	if err := field.ValidateSet(fields); err != nil {
		return nil, err
	}

	s := &Schema{
		order: make([]string, 0, len(fields)),
		specs: make(map[string]field.Descriptor, len(fields)),
		rules: make(map[string]field.Rule, len(fields)),
	}
	for _, f := range fields {
		rule, err := buildRule(f)
		if err != nil {
			return nil, err
		}
		s.order = append(s.order, f.Name)
		s.specs[f.Name] = f
		s.rules[f.Name] = rule
	}
	return s, nil
}

// Rebind recompiles a single field, used when a dependency variant reshapes
// a descriptor after generation.
func (s *Schema) Rebind(d field.Descriptor) error {
	if _, ok := s.specs[d.Name]; !ok {
		return fmt.Errorf("validation: unknown field %q", d.Name)
	}
	rule, err := buildRule(d)
	if err != nil {
		return err
	}
	s.specs[d.Name] = d
	s.rules[d.Name] = rule
	return nil
}

// Descriptor returns the (possibly rebound) descriptor for a field.
func (s *Schema) Descriptor(name string) (field.Descriptor, bool) {
	d, ok := s.specs[name]
	return d, ok
}

// Fields returns descriptors in declaration order.
func (s *Schema) Fields() []field.Descriptor {
	out := make([]field.Descriptor, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.specs[name])
	}
	return out
}

// ValidateField runs one field's rule. Read-only fields always pass.
func (s *Schema) ValidateField(name string, value any) error {
	spec, ok := s.specs[name]
	if !ok {
		return fmt.Errorf("validation: unknown field %q", name)
	}
	if spec.ReadOnly {
		return nil
	}
	rule := s.rules[name]
	if rule == nil {
		return nil
	}
	return rule(value)
}

// Validate checks every field and returns issues in declaration order. An
// empty slice means the values pass.
func (s *Schema) Validate(values map[string]any) []Issue {
	var issues []Issue
	for _, name := range s.order {
		if err := s.ValidateField(name, values[name]); err != nil {
			issues = append(issues, Issue{Field: name, Message: err.Error()})
		}
	}
	return issues
}
