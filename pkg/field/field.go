// Package field defines the declarative descriptors the form engine consumes:
// one Descriptor per input, carrying its kind, constraints, static options,
// remote reference configuration, and dependent-field behaviour. Descriptors
// are plain data so screens can declare them inline, load them from form
// definition documents, or derive them from an OpenAPI operation.
package field

import (
	"strings"
	"time"

	"github.com/goliatone/go-formflow/pkg/options"
)

// Rule is an explicit validation override. When set it replaces the rule the
// schema generator would derive for the descriptor's kind.
type Rule func(value any) error

// CustomBehavior is the capability interface specialised fields implement
// instead of threading ad hoc callbacks through descriptors.
type CustomBehavior interface {
	// Default supplies the initial value for create-mode sessions.
	Default() any
	// Validate checks a candidate value; a nil error accepts it.
	Validate(value any) error
	// Serialize converts the held value into its payload representation.
	Serialize(value any) (any, error)
}

// Constraints carries the kind-specific limits a descriptor may declare.
// Pointers distinguish "absent" from zero.
type Constraints struct {
	MinLength *int     `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Min       *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Pattern   string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	// Accept lists allowed MIME types for attachments; entries may use the
	// "image/*" wildcard form.
	Accept []string `json:"accept,omitempty" yaml:"accept,omitempty"`
	// MaxSize caps attachment size in bytes. Zero means the engine default.
	MaxSize int64 `json:"maxSize,omitempty" yaml:"maxSize,omitempty"`
}

// ReferenceConfig wires a paginated-select descriptor to its remote dataset.
type ReferenceConfig struct {
	// Endpoint identifies the remote dataset. The engine treats it as an
	// opaque key resolved by the configured source factory; HTTP setups use
	// the endpoint URL directly.
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	// LabelKey and ValueKey are dotted extraction paths into raw items.
	LabelKey string `json:"labelKey,omitempty" yaml:"labelKey,omitempty"`
	ValueKey string `json:"valueKey,omitempty" yaml:"valueKey,omitempty"`
	// PageSize is the batch size per fetch (engine default when zero).
	PageSize int `json:"pageSize,omitempty" yaml:"pageSize,omitempty"`
	// Debounce is the quiet interval before a search issues a fetch.
	Debounce time.Duration `json:"debounce,omitempty" yaml:"debounce,omitempty"`
	// Filters are static parameters sent with every fetch.
	Filters map[string]string `json:"filters,omitempty" yaml:"filters,omitempty"`
	// Transform optionally replaces label/value extraction per raw item.
	Transform options.TransformFunc `json:"-" yaml:"-"`
}

// Clone returns a deep copy so variant swaps never alias the original.
func (r *ReferenceConfig) Clone() *ReferenceConfig {
	if r == nil {
		return nil
	}
	cloned := *r
	if r.Filters != nil {
		cloned.Filters = make(map[string]string, len(r.Filters))
		for key, value := range r.Filters {
			cloned.Filters[key] = value
		}
	}
	return &cloned
}

// Variant is one alternative shape a dependent descriptor can take.
type Variant struct {
	Kind      Kind             `json:"kind,omitempty" yaml:"kind,omitempty"`
	Reference *ReferenceConfig `json:"reference,omitempty" yaml:"reference,omitempty"`
	Options   []options.Option `json:"options,omitempty" yaml:"options,omitempty"`
}

// Dependency re-derives a descriptor whenever another field's value changes.
// Variants are keyed by the watched field's stringified value; when the key
// changes the dependent field's value is discarded so stale references never
// survive a category switch.
type Dependency struct {
	Field    string             `json:"field" yaml:"field"`
	Variants map[string]Variant `json:"variants" yaml:"variants"`
}

// Resolve looks up the variant for a watched value. The returned key is the
// value category used for staleness comparison.
func (d *Dependency) Resolve(watched any) (Variant, string, bool) {
	if d == nil || len(d.Variants) == 0 {
		return Variant{}, "", false
	}
	key := variantKey(watched)
	variant, ok := d.Variants[key]
	return variant, key, ok
}

// Descriptor declares one form field. The zero value is not usable; Name and
// Kind are mandatory.
type Descriptor struct {
	Name        string `json:"name" yaml:"name"`
	Kind        Kind   `json:"kind" yaml:"kind"`
	Label       string `json:"label,omitempty" yaml:"label,omitempty"`
	Help        string `json:"help,omitempty" yaml:"help,omitempty"`
	Placeholder string `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty"`
	// ReadOnly fields render but are excluded from validation and payloads.
	ReadOnly bool `json:"readOnly,omitempty" yaml:"readOnly,omitempty"`
	Default  any  `json:"default,omitempty" yaml:"default,omitempty"`
	// ValueType types choice values explicitly (default string).
	ValueType   ValueType        `json:"valueType,omitempty" yaml:"valueType,omitempty"`
	Options     []options.Option `json:"options,omitempty" yaml:"options,omitempty"`
	Constraints Constraints      `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	Reference   *ReferenceConfig `json:"reference,omitempty" yaml:"reference,omitempty"`
	DependsOn   *Dependency      `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
	Rule        Rule             `json:"-" yaml:"-"`
	Custom      CustomBehavior   `json:"-" yaml:"-"`
}

// DisplayLabel returns the declared label or a humanised fallback.
func (d Descriptor) DisplayLabel() string {
	if trimmed(d.Label) != "" {
		return d.Label
	}
	return Labelize(d.Name)
}

// EffectiveValueType defaults undeclared value types to string.
func (d Descriptor) EffectiveValueType() ValueType {
	if d.ValueType == "" {
		return ValueString
	}
	return d.ValueType
}

// WithVariant returns a copy reshaped by a dependency variant. Unset variant
// parts keep the descriptor's own configuration.
func (d Descriptor) WithVariant(variant Variant) Descriptor {
	out := d
	if variant.Kind != "" {
		out.Kind = variant.Kind
	}
	if variant.Reference != nil {
		out.Reference = variant.Reference.Clone()
	}
	if variant.Options != nil {
		out.Options = append([]options.Option(nil), variant.Options...)
	}
	return out
}

// OptionLabel resolves a static option's label by value; falls back to the
// raw value so unresolved selections stay visible.
func (d Descriptor) OptionLabel(value string) string {
	for _, opt := range d.Options {
		if opt.Value == value {
			return opt.Label
		}
	}
	return value
}

func variantKey(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(stringify(v))
	}
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
