package field

import (
	"errors"
	"fmt"
)

var (
	errNameMissing      = errors.New("field: descriptor name is required")
	errReferenceMissing = errors.New("field: paginated select requires a reference")
)

// ValidateSet checks a descriptor slice for the structural problems that make
// a form unusable: duplicate names, unknown kinds, paginated selects without
// a reference, duplicate option values, and dependencies on absent fields.
func ValidateSet(fields []Descriptor) error {
	names := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if trimmed(f.Name) == "" {
			return errNameMissing
		}
		if _, dup := names[f.Name]; dup {
			return fmt.Errorf("field: duplicate descriptor %q", f.Name)
		}
		names[f.Name] = struct{}{}

		if err := validateDescriptor(f); err != nil {
			return err
		}
	}

	for _, f := range fields {
		if f.DependsOn == nil {
			continue
		}
		if trimmed(f.DependsOn.Field) == "" {
			return fmt.Errorf("field: %q declares a dependency without a watched field", f.Name)
		}
		if f.DependsOn.Field == f.Name {
			return fmt.Errorf("field: %q cannot depend on itself", f.Name)
		}
		if _, ok := names[f.DependsOn.Field]; !ok {
			return fmt.Errorf("field: %q depends on unknown field %q", f.Name, f.DependsOn.Field)
		}
		if len(f.DependsOn.Variants) == 0 {
			return fmt.Errorf("field: %q declares a dependency without variants", f.Name)
		}
		for key, variant := range f.DependsOn.Variants {
			if variant.Kind != "" && !variant.Kind.Valid() {
				return fmt.Errorf("field: %q variant %q has unknown kind %q", f.Name, key, variant.Kind)
			}
			if variant.Kind == KindPaginatedSelect && variant.Reference == nil && f.Reference == nil {
				return fmt.Errorf("field: %q variant %q needs a reference", f.Name, key)
			}
		}
	}
	return nil
}

func validateDescriptor(f Descriptor) error {
	if !f.Kind.Valid() {
		return fmt.Errorf("field: %q has unknown kind %q", f.Name, f.Kind)
	}
	if f.ValueType != "" && !f.ValueType.Valid() {
		return fmt.Errorf("field: %q has unknown value type %q", f.Name, f.ValueType)
	}
	if f.Kind == KindPaginatedSelect {
		if f.Reference == nil || trimmed(f.Reference.Endpoint) == "" {
			return fmt.Errorf("field %q: %w", f.Name, errReferenceMissing)
		}
	}
	if f.Kind == KindCustom && f.Custom == nil {
		return fmt.Errorf("field: custom field %q has no behaviour", f.Name)
	}
	if f.Kind.Choice() && len(f.Options) > 0 {
		seen := make(map[string]struct{}, len(f.Options))
		for _, opt := range f.Options {
			if _, dup := seen[opt.Value]; dup {
				return fmt.Errorf("field: %q repeats option value %q", f.Name, opt.Value)
			}
			seen[opt.Value] = struct{}{}
		}
	}
	return nil
}
