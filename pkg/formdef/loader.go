package formdef

import (
	"bytes"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formflow/pkg/field"
	"github.com/goliatone/go-formflow/pkg/options"
)

// LoadFS walks the provided filesystem and parses every JSON/YAML form
// definition it finds. When fsys is nil or holds no definition files, the
// returned store is empty.
func LoadFS(fsys fs.FS) (*Store, error) {
	store := &Store{definitions: make(map[string]Definition)}
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDefinitionFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("formdef: read %s: %w", path, err)
		}

		def, err := Parse(data, path)
		if err != nil {
			return err
		}
		if _, exists := store.definitions[def.Name]; exists {
			return fmt.Errorf("formdef: duplicate definition %q (file %s)", def.Name, path)
		}
		store.definitions[def.Name] = def
		return nil
	})
	if err != nil {
		return nil, err
	}

	return store, nil
}

// Parse decodes a single definition document; source names the origin for
// error messages. The resulting descriptor set is structurally validated,
// so a definition that parses always builds a schema.
func Parse(data []byte, source string) (Definition, error) {
	doc, err := parseDocument(data, source)
	if err != nil {
		return Definition{}, err
	}

	name := strings.TrimSpace(doc.Name)
	if name == "" {
		return Definition{}, fmt.Errorf("formdef: file %s has no definition name", source)
	}
	if len(doc.Fields) == 0 {
		return Definition{}, fmt.Errorf("formdef: definition %q (file %s) declares no fields", name, source)
	}

	fields := make([]field.Descriptor, 0, len(doc.Fields))
	for idx, raw := range doc.Fields {
		desc, err := raw.descriptor()
		if err != nil {
			return Definition{}, fmt.Errorf("formdef: definition %q (file %s) field %d: %w", name, source, idx, err)
		}
		fields = append(fields, desc)
	}
	if err := field.ValidateSet(fields); err != nil {
		return Definition{}, fmt.Errorf("formdef: definition %q (file %s): %w", name, source, err)
	}

	return Definition{
		Name:   name,
		Title:  strings.TrimSpace(doc.Title),
		Entity: strings.TrimSpace(doc.Entity),
		Source: source,
		Fields: fields,
	}, nil
}

type documentFile struct {
	Name   string      `json:"name" yaml:"name"`
	Title  string      `json:"title" yaml:"title"`
	Entity string      `json:"entity" yaml:"entity"`
	Fields []fieldFile `json:"fields" yaml:"fields"`
}

type fieldFile struct {
	Name        string            `json:"name" yaml:"name"`
	Kind        string            `json:"kind" yaml:"kind"`
	Label       string            `json:"label" yaml:"label"`
	Help        string            `json:"help" yaml:"help"`
	Placeholder string            `json:"placeholder" yaml:"placeholder"`
	Required    bool              `json:"required" yaml:"required"`
	ReadOnly    bool              `json:"readOnly" yaml:"readOnly"`
	Default     any               `json:"default" yaml:"default"`
	ValueType   string            `json:"valueType" yaml:"valueType"`
	Options     []optionNode      `json:"options" yaml:"options"`
	Constraints field.Constraints `json:"constraints" yaml:"constraints"`
	Reference   *referenceFile    `json:"reference" yaml:"reference"`
	DependsOn   *dependencyFile   `json:"dependsOn" yaml:"dependsOn"`
}

func (f fieldFile) descriptor() (field.Descriptor, error) {
	kind := field.KindText
	if trimmed := strings.TrimSpace(f.Kind); trimmed != "" {
		kind = field.Kind(trimmed)
		if !kind.Valid() {
			return field.Descriptor{}, fmt.Errorf("unknown kind %q", f.Kind)
		}
	}

	desc := field.Descriptor{
		Name:        strings.TrimSpace(f.Name),
		Kind:        kind,
		Label:       strings.TrimSpace(f.Label),
		Help:        f.Help,
		Placeholder: f.Placeholder,
		Required:    f.Required,
		ReadOnly:    f.ReadOnly,
		Default:     f.Default,
		ValueType:   field.ValueType(strings.TrimSpace(f.ValueType)),
		Options:     optionList(f.Options),
		Constraints: f.Constraints,
		Reference:   f.Reference.config(),
	}

	if f.DependsOn != nil {
		dep, err := f.DependsOn.dependency()
		if err != nil {
			return field.Descriptor{}, err
		}
		desc.DependsOn = dep
	}
	return desc, nil
}

type referenceFile struct {
	Endpoint   string            `json:"endpoint" yaml:"endpoint"`
	LabelKey   string            `json:"labelKey" yaml:"labelKey"`
	ValueKey   string            `json:"valueKey" yaml:"valueKey"`
	PageSize   int               `json:"pageSize" yaml:"pageSize"`
	DebounceMs int               `json:"debounceMs" yaml:"debounceMs"`
	Filters    map[string]string `json:"filters" yaml:"filters"`
}

func (r *referenceFile) config() *field.ReferenceConfig {
	if r == nil {
		return nil
	}
	cfg := &field.ReferenceConfig{
		Endpoint: strings.TrimSpace(r.Endpoint),
		LabelKey: strings.TrimSpace(r.LabelKey),
		ValueKey: strings.TrimSpace(r.ValueKey),
		PageSize: r.PageSize,
	}
	if r.DebounceMs > 0 {
		cfg.Debounce = time.Duration(r.DebounceMs) * time.Millisecond
	}
	if len(r.Filters) > 0 {
		cfg.Filters = make(map[string]string, len(r.Filters))
		for k, v := range r.Filters {
			cfg.Filters[k] = v
		}
	}
	return cfg
}

type dependencyFile struct {
	Field    string                 `json:"field" yaml:"field"`
	Variants map[string]variantFile `json:"variants" yaml:"variants"`
}

type variantFile struct {
	Kind      string         `json:"kind" yaml:"kind"`
	Reference *referenceFile `json:"reference" yaml:"reference"`
	Options   []optionNode   `json:"options" yaml:"options"`
}

func (d *dependencyFile) dependency() (*field.Dependency, error) {
	dep := &field.Dependency{
		Field:    strings.TrimSpace(d.Field),
		Variants: make(map[string]field.Variant, len(d.Variants)),
	}
	for key, raw := range d.Variants {
		variant := field.Variant{
			Reference: raw.Reference.config(),
			Options:   optionList(raw.Options),
		}
		if trimmed := strings.TrimSpace(raw.Kind); trimmed != "" {
			kind := field.Kind(trimmed)
			if !kind.Valid() {
				return nil, fmt.Errorf("variant %q: unknown kind %q", key, raw.Kind)
			}
			variant.Kind = kind
		}
		dep.Variants[key] = variant
	}
	return dep, nil
}

// optionNode accepts both the object form {value, label} and a bare scalar
// used as value and label at once.
type optionNode struct {
	Value string
	Label string
}

func (n *optionNode) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		n.Value = node.Value
		n.Label = node.Value
		return nil
	}
	var obj struct {
		Value string `yaml:"value"`
		Label string `yaml:"label"`
	}
	if err := node.Decode(&obj); err != nil {
		return err
	}
	n.Value = obj.Value
	n.Label = obj.Label
	return nil
}

func (n *optionNode) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var scalar string
		if err := sonic.Unmarshal(data, &scalar); err != nil {
			return err
		}
		n.Value = scalar
		n.Label = scalar
		return nil
	}
	var obj struct {
		Value string `json:"value"`
		Label string `json:"label"`
	}
	if err := sonic.Unmarshal(data, &obj); err != nil {
		return err
	}
	n.Value = obj.Value
	n.Label = obj.Label
	return nil
}

func optionList(nodes []optionNode) []options.Option {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]options.Option, 0, len(nodes))
	for _, node := range nodes {
		label := node.Label
		if strings.TrimSpace(label) == "" {
			label = node.Value
		}
		out = append(out, options.Option{Value: node.Value, Label: label})
	}
	return out
}

func parseDocument(data []byte, source string) (documentFile, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return documentFile{}, fmt.Errorf("formdef: file %s is empty", source)
	}

	var doc documentFile
	if err := sonic.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}

	doc = documentFile{}
	if err := yaml.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}

	return documentFile{}, fmt.Errorf("formdef: parse %s: invalid JSON or YAML", source)
}

func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
