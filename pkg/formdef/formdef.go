// Package formdef loads declarative form definitions from YAML or JSON
// documents. One document describes one admin screen: the entity it edits,
// a title, and the ordered field descriptors the engine builds the form
// from. Reference endpoints, dependent-field variants, constraints, and
// static options are all expressible in the document.
package formdef

import (
	"sort"

	"github.com/goliatone/go-formflow/pkg/field"
)

// Definition is one loaded form document.
type Definition struct {
	// Name identifies the definition; Lookup resolves by it.
	Name string
	// Title is the human heading for the screen.
	Title string
	// Entity names the record type the form edits.
	Entity string
	// Source is the file the definition was loaded from.
	Source string
	// Fields holds the descriptors in declaration order.
	Fields []field.Descriptor
}

// Store holds loaded definitions keyed by name.
type Store struct {
	definitions map[string]Definition
}

// Lookup returns the definition registered under name.
func (s *Store) Lookup(name string) (Definition, bool) {
	if s == nil {
		return Definition{}, false
	}
	def, ok := s.definitions[name]
	return def, ok
}

// Empty reports whether the store holds any definitions.
func (s *Store) Empty() bool {
	return s == nil || len(s.definitions) == 0
}

// Names returns every loaded definition name in sorted order.
func (s *Store) Names() []string {
	if s == nil || len(s.definitions) == 0 {
		return nil
	}
	names := make([]string, 0, len(s.definitions))
	for name := range s.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
