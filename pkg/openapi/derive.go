package openapi

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formflow/pkg/field"
	"github.com/goliatone/go-formflow/pkg/options"
)

// extensionKey is the vendor namespace for hints plain schema keywords
// cannot carry.
const extensionKey = "x-formflow"

// descriptorsFromSchema flattens a request body object into descriptors.
// Nested objects contribute dotted names the way records address them.
func descriptorsFromSchema(schema *openapi3.Schema) ([]field.Descriptor, error) {
	fields, err := objectDescriptors("", schema, 0)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	if err := field.ValidateSet(fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func objectDescriptors(prefix string, schema *openapi3.Schema, depth int) ([]field.Descriptor, error) {
	if schema == nil || depth > 8 {
		return nil, nil
	}

	required := make(map[string]struct{}, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = struct{}{}
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	var fields []field.Descriptor
	for _, name := range names {
		ref := schema.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		src := ref.Value
		qualified := name
		if prefix != "" {
			qualified = prefix + "." + name
		}

		if schemaType := typeOf(src); schemaType == "object" || (schemaType == "" && len(src.Properties) > 0) {
			nested, err := objectDescriptors(qualified, src, depth+1)
			if err != nil {
				return nil, err
			}
			fields = append(fields, nested...)
			continue
		}

		_, isRequired := required[name]
		desc, ok, err := descriptorFromProperty(qualified, src, isRequired)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", qualified, err)
		}
		if ok {
			fields = append(fields, desc)
		}
	}
	return fields, nil
}

// descriptorFromProperty maps one schema property onto a descriptor. The
// second return is false for shapes a flat form cannot host, such as arrays
// of objects.
func descriptorFromProperty(name string, src *openapi3.Schema, required bool) (field.Descriptor, bool, error) {
	ext := extensionOf(src)

	desc := field.Descriptor{
		Name:     name,
		Label:    strings.TrimSpace(src.Title),
		Help:     src.Description,
		Required: required,
		ReadOnly: src.ReadOnly,
		Default:  src.Default,
	}

	enumSrc := src
	switch typeOf(src) {
	case "array":
		if src.Items == nil || src.Items.Value == nil {
			return field.Descriptor{}, false, nil
		}
		item := src.Items.Value
		if itemType := typeOf(item); itemType == "object" || itemType == "array" {
			return field.Descriptor{}, false, nil
		}
		desc.Kind = field.KindMultiSelect
		enumSrc = item
	case "boolean":
		desc.Kind = field.KindBoolean
	case "integer", "number":
		desc.Kind = field.KindNumber
	default:
		desc.Kind = kindForFormat(src.Format)
	}

	if len(enumSrc.Enum) > 0 {
		if desc.Kind != field.KindMultiSelect {
			desc.Kind = field.KindSelect
		}
		desc.Options = enumOptions(enumSrc.Enum)
		desc.ValueType = valueTypeFor(typeOf(enumSrc))
	}

	// Extension hints override what the schema alone suggests.
	kind, err := ext.kind()
	if err != nil {
		return field.Descriptor{}, false, err
	}
	if kind != "" {
		desc.Kind = kind
	}
	reference, err := ext.reference()
	if err != nil {
		return field.Descriptor{}, false, err
	}
	if reference != nil {
		desc.Kind = field.KindPaginatedSelect
		desc.Reference = reference
	}
	if desc.Kind == field.KindPaginatedSelect && desc.Reference == nil {
		return field.Descriptor{}, false, fmt.Errorf("paginated select needs an %s reference", extensionKey)
	}
	if placeholder := ext.placeholder(); placeholder != "" {
		desc.Placeholder = placeholder
	}

	applyConstraints(&desc, src, ext)
	return desc, true, nil
}

func applyConstraints(desc *field.Descriptor, src *openapi3.Schema, ext extension) {
	if src.Min != nil {
		value := *src.Min
		desc.Constraints.Min = &value
	}
	if src.Max != nil {
		value := *src.Max
		desc.Constraints.Max = &value
	}
	if src.MinLength != 0 {
		length := int(src.MinLength)
		desc.Constraints.MinLength = &length
	}
	if src.MaxLength != nil {
		length := int(*src.MaxLength)
		desc.Constraints.MaxLength = &length
	}
	if src.Pattern != "" {
		desc.Constraints.Pattern = src.Pattern
	}
	if desc.Kind.Attachment() {
		desc.Constraints.Accept = ext.accept()
		desc.Constraints.MaxSize = ext.maxSize()
	}
}

func kindForFormat(format string) field.Kind {
	switch strings.ToLower(format) {
	case "email":
		return field.KindEmail
	case "password":
		return field.KindPassword
	case "date":
		return field.KindDate
	case "date-time", "datetime", "datetime-local":
		return field.KindDateTime
	case "byte", "binary":
		return field.KindFile
	case "textarea":
		return field.KindTextarea
	default:
		return field.KindText
	}
}

func valueTypeFor(schemaType string) field.ValueType {
	switch schemaType {
	case "integer", "number":
		return field.ValueNumber
	case "boolean":
		return field.ValueBoolean
	default:
		return ""
	}
}

func enumOptions(enum []any) []options.Option {
	out := make([]options.Option, 0, len(enum))
	for _, raw := range enum {
		if raw == nil {
			continue
		}
		value := field.Stringify(raw)
		out = append(out, options.Option{Value: value, Label: value})
	}
	return out
}

// typeOf returns the first concrete type entry, skipping the nullable
// marker OpenAPI 3.1 unions carry.
func typeOf(src *openapi3.Schema) string {
	if src == nil || src.Type == nil {
		return ""
	}
	for _, value := range src.Type.Slice() {
		if value != "null" {
			return value
		}
	}
	return ""
}

// extension is the parsed x-formflow hint map of one property.
type extension map[string]any

// extensionOf merges hints from allOf compositions so a hint declared on a
// mixin still lands on the field; the property's own entries win.
func extensionOf(src *openapi3.Schema) extension {
	merged := extension{}
	collectExtensions(merged, src, 0)
	if len(merged) == 0 {
		return nil
	}
	return merged
}

func collectExtensions(target extension, src *openapi3.Schema, depth int) {
	if src == nil || depth > 8 {
		return
	}
	for _, ref := range src.AllOf {
		if ref != nil {
			collectExtensions(target, ref.Value, depth+1)
		}
	}
	raw, ok := src.Extensions[extensionKey]
	if !ok {
		return
	}
	if mapped, ok := raw.(map[string]any); ok {
		for key, value := range mapped {
			target[key] = value
		}
	}
}

func (e extension) kind() (field.Kind, error) {
	raw, ok := e.stringValue("kind")
	if !ok {
		return "", nil
	}
	kind := field.Kind(raw)
	if !kind.Valid() {
		return "", fmt.Errorf("unknown kind %q in %s extension", raw, extensionKey)
	}
	return kind, nil
}

func (e extension) placeholder() string {
	value, _ := e.stringValue("placeholder")
	return value
}

func (e extension) stringValue(key string) (string, bool) {
	if e == nil {
		return "", false
	}
	raw, ok := e[key]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	if !ok {
		return "", false
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", false
	}
	return trimmed, true
}

func (e extension) accept() []string {
	if e == nil {
		return nil
	}
	switch v := e["accept"].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	default:
		return nil
	}
}

func (e extension) maxSize() int64 {
	if e == nil {
		return 0
	}
	if n, ok := numberValue(e["maxSize"]); ok && n > 0 {
		return int64(n)
	}
	return 0
}

func (e extension) reference() (*field.ReferenceConfig, error) {
	if e == nil {
		return nil, nil
	}
	raw, ok := e["reference"]
	if !ok {
		return nil, nil
	}
	mapped, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s reference must be an object", extensionKey)
	}

	cfg := &field.ReferenceConfig{}
	if s, ok := mapped["endpoint"].(string); ok {
		cfg.Endpoint = strings.TrimSpace(s)
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%s reference needs an endpoint", extensionKey)
	}
	if s, ok := mapped["labelKey"].(string); ok {
		cfg.LabelKey = strings.TrimSpace(s)
	}
	if s, ok := mapped["valueKey"].(string); ok {
		cfg.ValueKey = strings.TrimSpace(s)
	}
	if n, ok := numberValue(mapped["pageSize"]); ok {
		cfg.PageSize = int(n)
	}
	if n, ok := numberValue(mapped["debounceMs"]); ok && n > 0 {
		cfg.Debounce = time.Duration(n) * time.Millisecond
	}
	if filters, ok := mapped["filters"].(map[string]any); ok && len(filters) > 0 {
		cfg.Filters = make(map[string]string, len(filters))
		for key, value := range filters {
			if s, ok := value.(string); ok {
				cfg.Filters[key] = s
			}
		}
	}
	return cfg, nil
}

func numberValue(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
