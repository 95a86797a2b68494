package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-formflow/pkg/field"
)

// ruleBuilder produces the validation rule for one descriptor of its kind.
type ruleBuilder func(d field.Descriptor) (field.Rule, error)

var kindRules = map[field.Kind]ruleBuilder{
	field.KindText:            textRule,
	field.KindPassword:        textRule,
	field.KindTextarea:        textRule,
	field.KindEmail:           emailRule,
	field.KindNumber:          numberRule,
	field.KindBoolean:         booleanRule,
	field.KindSelect:          choiceRule,
	field.KindRadio:           choiceRule,
	field.KindMultiSelect:     multiChoiceRule,
	field.KindPaginatedSelect: referenceRule,
	field.KindDate:            dateRule,
	field.KindDateTime:        dateTimeRule,
	field.KindFile:            presenceRule,
	field.KindImage:           presenceRule,
	field.KindHidden:          permissiveRule,
	field.KindCustom:          customRule,
}

func buildRule(d field.Descriptor) (field.Rule, error) {
	if d.Rule != nil {
		return d.Rule, nil
	}
	builder, ok := kindRules[d.Kind]
	if !ok {
		return nil, fmt.Errorf("validation: no rule builder for kind %q", d.Kind)
	}
	return builder(d)
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func textRule(d field.Descriptor) (field.Rule, error) {
	pattern, err := compilePattern(d)
	if err != nil {
		return nil, err
	}
	label := d.DisplayLabel()
	c := d.Constraints
	return func(value any) error {
		text, empty, err := coerceText(label, value)
		if err != nil {
			return err
		}
		if empty {
			return requiredError(d)
		}
		if text == "" {
			return nil
		}
		length := len([]rune(text))
		if c.MinLength != nil && length < *c.MinLength {
			return fmt.Errorf("%s must be at least %d characters", label, *c.MinLength)
		}
		if c.MaxLength != nil && length > *c.MaxLength {
			return fmt.Errorf("%s must be at most %d characters", label, *c.MaxLength)
		}
		if pattern != nil && !pattern.MatchString(text) {
			return fmt.Errorf("%s has an invalid format", label)
		}
		return nil
	}, nil
}

func emailRule(d field.Descriptor) (field.Rule, error) {
	base, err := textRule(d)
	if err != nil {
		return nil, err
	}
	label := d.DisplayLabel()
	return func(value any) error {
		if err := base(value); err != nil {
			return err
		}
		text, empty, _ := coerceText(label, value)
		if empty || text == "" {
			return nil
		}
		if !emailPattern.MatchString(text) {
			return fmt.Errorf("%s must be a valid email address", label)
		}
		return nil
	}, nil
}

func numberRule(d field.Descriptor) (field.Rule, error) {
	label := d.DisplayLabel()
	c := d.Constraints
	lower := c.Min
	if lower == nil && d.Required {
		// required numbers treat anything below 1 as not filled in; an
		// explicit range constraint takes over when declared.
		one := float64(1)
		lower = &one
	}
	return func(value any) error {
		if d.IsEmpty(value) {
			return requiredError(d)
		}
		n, ok := coerceNumber(value)
		if !ok {
			return fmt.Errorf("%s must be a number", label)
		}
		if lower != nil && n < *lower {
			return fmt.Errorf("%s must be at least %s", label, formatNumber(*lower))
		}
		if c.Max != nil && n > *c.Max {
			return fmt.Errorf("%s must be at most %s", label, formatNumber(*c.Max))
		}
		return nil
	}, nil
}

// booleanRule treats required as consent: the box must actually be checked.
func booleanRule(d field.Descriptor) (field.Rule, error) {
	label := d.DisplayLabel()
	return func(value any) error {
		if value == nil {
			if d.Required {
				return fmt.Errorf("%s must be accepted", label)
			}
			return nil
		}
		b, ok := coerceBool(value)
		if !ok {
			return fmt.Errorf("%s must be a boolean", label)
		}
		if d.Required && !b {
			return fmt.Errorf("%s must be accepted", label)
		}
		return nil
	}, nil
}

func choiceRule(d field.Descriptor) (field.Rule, error) {
	label := d.DisplayLabel()
	allowed := allowedValues(d)
	return func(value any) error {
		if d.IsEmpty(value) {
			return requiredError(d)
		}
		key, ok := choiceKey(d, value)
		if !ok {
			return fmt.Errorf("%s has an unsupported value", label)
		}
		if len(allowed) > 0 {
			if _, member := allowed[key]; !member {
				return fmt.Errorf("%s has an unsupported value", label)
			}
		}
		return nil
	}, nil
}

func multiChoiceRule(d field.Descriptor) (field.Rule, error) {
	label := d.DisplayLabel()
	allowed := allowedValues(d)
	return func(value any) error {
		if d.IsEmpty(value) {
			return requiredError(d)
		}
		elems, ok := coerceStringSlice(value)
		if !ok {
			return fmt.Errorf("%s must be a list of values", label)
		}
		if len(allowed) > 0 {
			for _, elem := range elems {
				if _, member := allowed[elem]; !member {
					return fmt.Errorf("%s has an unsupported value", label)
				}
			}
		}
		return nil
	}, nil
}

// referenceRule only enforces presence; membership lives server-side, the
// engine never holds the full remote dataset.
func referenceRule(d field.Descriptor) (field.Rule, error) {
	label := d.DisplayLabel()
	return func(value any) error {
		if d.IsEmpty(value) {
			return requiredError(d)
		}
		if _, ok := value.(string); !ok {
			if _, numeric := coerceNumber(value); !numeric {
				return fmt.Errorf("%s has an unsupported value", label)
			}
		}
		return nil
	}, nil
}

func dateRule(d field.Descriptor) (field.Rule, error) {
	return timeRule(d, "must be a valid date", "2006-01-02")
}

func dateTimeRule(d field.Descriptor) (field.Rule, error) {
	return timeRule(d, "must be a valid date and time",
		time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04")
}

func timeRule(d field.Descriptor, message string, layouts ...string) (field.Rule, error) {
	label := d.DisplayLabel()
	return func(value any) error {
		text, empty, err := coerceText(label, value)
		if err != nil {
			return err
		}
		if empty {
			return requiredError(d)
		}
		if text == "" {
			return nil
		}
		for _, layout := range layouts {
			if _, parseErr := time.Parse(layout, text); parseErr == nil {
				return nil
			}
		}
		return fmt.Errorf("%s %s", label, message)
	}, nil
}

// presenceRule covers attachments: content checks (size, MIME) happen in the
// attachment controller at attach time, so the schema only enforces that a
// required slot is filled.
func presenceRule(d field.Descriptor) (field.Rule, error) {
	return func(value any) error {
		if d.IsEmpty(value) {
			return requiredError(d)
		}
		return nil
	}, nil
}

func permissiveRule(field.Descriptor) (field.Rule, error) {
	return func(any) error { return nil }, nil
}

func customRule(d field.Descriptor) (field.Rule, error) {
	if d.Custom == nil {
		return nil, fmt.Errorf("validation: custom field %q has no behaviour", d.Name)
	}
	return func(value any) error {
		if d.IsEmpty(value) {
			return requiredError(d)
		}
		return d.Custom.Validate(value)
	}, nil
}

// requiredError returns the required message for empty values, nil when the
// field is optional. Callers invoke it only after IsEmpty reported true.
func requiredError(d field.Descriptor) error {
	if !d.Required {
		return nil
	}
	return fmt.Errorf("%s is required", d.DisplayLabel())
}

func compilePattern(d field.Descriptor) (*regexp.Regexp, error) {
	if strings.TrimSpace(d.Constraints.Pattern) == "" {
		return nil, nil
	}
	pattern, err := regexp.Compile(d.Constraints.Pattern)
	if err != nil {
		return nil, fmt.Errorf("validation: field %q pattern: %w", d.Name, err)
	}
	return pattern, nil
}

func allowedValues(d field.Descriptor) map[string]struct{} {
	if len(d.Options) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(d.Options))
	for _, opt := range d.Options {
		out[opt.Value] = struct{}{}
	}
	return out
}

// choiceKey renders a choice value into the option-value keyspace using the
// descriptor's declared value type.
func choiceKey(d field.Descriptor, value any) (string, bool) {
	switch d.EffectiveValueType() {
	case field.ValueBoolean:
		b, ok := coerceBool(value)
		if !ok {
			return "", false
		}
		return strconv.FormatBool(b), true
	case field.ValueNumber:
		n, ok := coerceNumber(value)
		if !ok {
			return "", false
		}
		return formatNumber(n), true
	default:
		s, ok := value.(string)
		if !ok {
			return "", false
		}
		return strings.TrimSpace(s), true
	}
}

var errNotText = errors.New("not text")

// coerceText accepts strings and nil; empty reports whether the value is
// absent (nil or blank). Any other type is a usage error.
func coerceText(label string, value any) (text string, empty bool, err error) {
	switch v := value.(type) {
	case nil:
		return "", true, nil
	case string:
		trimmed := strings.TrimSpace(v)
		return trimmed, trimmed == "", nil
	default:
		return "", false, fmt.Errorf("%s must be text: %w", label, errNotText)
	}
}
