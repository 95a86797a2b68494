// Package htmlform renders form descriptors as plain HTML controls: one
// labelled control per field, inline validation errors, and data attributes
// that carry reference-selector wiring for client runtimes. It produces a
// bare form element without page chrome or styling opinions.
package htmlform

import (
	"context"
	"fmt"
	"html"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formflow/pkg/attachment"
	"github.com/goliatone/go-formflow/pkg/field"
	"github.com/goliatone/go-formflow/pkg/render"
	rendertemplate "github.com/goliatone/go-formflow/pkg/render/template"
)

// Option configures the renderer before construction.
type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
	templateFuncs    map[string]any
	sanitizer        *bluemonday.Policy
	submitLabel      string
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		if files != nil {
			cfg.templateFS = files
		}
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithTemplateFuncs registers helper functions on the default template
// engine, typically render.TemplateI18nFuncs output.
func WithTemplateFuncs(funcs map[string]any) Option {
	return func(cfg *config) {
		if len(funcs) == 0 {
			return
		}
		if cfg.templateFuncs == nil {
			cfg.templateFuncs = make(map[string]any, len(funcs))
		}
		for name, fn := range funcs {
			cfg.templateFuncs[name] = fn
		}
	}
}

// WithSanitizer overrides the bluemonday policy applied to help text.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(cfg *config) {
		if policy != nil {
			cfg.sanitizer = policy
		}
	}
}

// WithSubmitLabel overrides the submit button text.
func WithSubmitLabel(label string) Option {
	return func(cfg *config) {
		if strings.TrimSpace(label) != "" {
			cfg.submitLabel = label
		}
	}
}

// Renderer renders forms as HTML. It satisfies render.Renderer.
type Renderer struct {
	templates   rendertemplate.TemplateRenderer
	sanitizer   *bluemonday.Policy
	submitLabel string
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the HTML form renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{
		templateFS:  TemplatesFS(),
		submitLabel: "Save",
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	renderer := cfg.templateRenderer
	if renderer == nil {
		engineOpts := []rendertemplate.Option{
			rendertemplate.WithFS(cfg.templateFS),
			rendertemplate.WithExtension(".tpl"),
		}
		if len(cfg.templateFuncs) > 0 {
			engineOpts = append(engineOpts, rendertemplate.WithTemplateFunc(cfg.templateFuncs))
		}
		engine, err := rendertemplate.New(engineOpts...)
		if err != nil {
			return nil, fmt.Errorf("htmlform: configure template renderer: %w", err)
		}
		renderer = engine
	}

	sanitizer := cfg.sanitizer
	if sanitizer == nil {
		sanitizer = bluemonday.UGCPolicy()
	}

	return &Renderer{
		templates:   renderer,
		sanitizer:   sanitizer,
		submitLabel: cfg.submitLabel,
	}, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "htmlform"
}

// ContentType reports the MIME type of rendered output.
func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render produces the form element with one control per descriptor. Values
// and errors from opts flow into the controls; PUT/PATCH/DELETE methods
// render as POST plus a hidden _method input.
func (r *Renderer) Render(ctx context.Context, form render.Form, opts render.RenderOptions) ([]byte, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	if r.templates == nil {
		return nil, fmt.Errorf("htmlform: template renderer is nil")
	}

	if opts.Translator != nil {
		// Localization mutates descriptors; work on a copy so the caller's
		// slice stays untouched.
		form.Fields = append([]field.Descriptor(nil), form.Fields...)
		render.LocalizeForm(&form, opts)
	}

	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	if method == "" {
		method = strings.ToUpper(strings.TrimSpace(form.Method))
	}
	if method == "" {
		method = "POST"
	}
	methodAttr, methodOverride := formMethod(method)

	action := opts.Action
	if action == "" {
		action = form.Action
	}

	var fields strings.Builder
	multipart := false
	for _, d := range form.Fields {
		if d.Kind.Attachment() {
			multipart = true
		}
		control, err := r.renderControl(d, opts)
		if err != nil {
			return nil, fmt.Errorf("htmlform: render control %q: %w", d.Name, err)
		}
		fields.WriteString(buildFieldMarkup(d, control, r.sanitizeHelp(d.Help), opts.Errors[d.Name]))
	}

	result, err := r.templates.RenderTemplate("form", map[string]any{
		"name":            form.Name,
		"title":           form.Title,
		"action":          action,
		"method":          methodAttr,
		"method_override": methodOverride,
		"multipart":       multipart,
		"form_error":      opts.FormError,
		"fields":          fields.String(),
		"submit_label":    r.submitLabel,
	})
	if err != nil {
		return nil, fmt.Errorf("htmlform: render form: %w", err)
	}
	return []byte(result), nil
}

func (r *Renderer) renderControl(d field.Descriptor, opts render.RenderOptions) (string, error) {
	value := controlValue(d, opts.Values)
	data := map[string]any{
		"id":          controlID(d.Name),
		"name":        d.Name,
		"placeholder": d.Placeholder,
		"required":    d.Required,
		"readonly":    d.ReadOnly,
		"invalid":     opts.Errors[d.Name] != "",
	}

	switch {
	case d.Kind == field.KindHidden:
		data["value"] = field.Stringify(value)
		return r.templates.RenderTemplate("controls/hidden", data)

	case d.Kind == field.KindBoolean:
		data["checked"] = boolValue(value)
		return r.templates.RenderTemplate("controls/checkbox", data)

	case d.Kind == field.KindTextarea:
		data["value"] = field.Stringify(value)
		data["attrs"] = constraintAttrs(d)
		return r.templates.RenderTemplate("controls/textarea", data)

	case d.Kind == field.KindRadio:
		data["options"] = choiceOptions(d, value)
		return r.templates.RenderTemplate("controls/radio", data)

	case d.Kind == field.KindSelect || d.Kind == field.KindMultiSelect:
		data["multiple"] = d.Kind == field.KindMultiSelect
		data["options"] = choiceOptions(d, value)
		if d.Kind == field.KindMultiSelect {
			data["placeholder"] = ""
		}
		return r.templates.RenderTemplate("controls/select", data)

	case d.Kind == field.KindPaginatedSelect:
		ref := d.Reference
		if ref == nil {
			return "", fmt.Errorf("missing reference configuration")
		}
		data["endpoint"] = ref.Endpoint
		data["page_size"] = ref.PageSize
		data["debounce_ms"] = int(ref.Debounce / time.Millisecond)
		if len(ref.Filters) > 0 {
			encoded, err := sonic.Marshal(ref.Filters)
			if err != nil {
				return "", fmt.Errorf("encode filters: %w", err)
			}
			data["filters"] = string(encoded)
		}
		selected := field.Stringify(value)
		data["value"] = selected
		data["label"] = referenceLabel(d.Name, selected, opts.Labels)
		return r.templates.RenderTemplate("controls/paginated_select", data)

	case d.Kind.Attachment():
		if len(d.Constraints.Accept) > 0 {
			data["accept"] = strings.Join(d.Constraints.Accept, ",")
		}
		if d.Constraints.MaxSize > 0 {
			data["max_size"] = d.Constraints.MaxSize
		}
		data["current"] = attachmentName(value)
		return r.templates.RenderTemplate("controls/file", data)

	default:
		data["type"] = inputType(d.Kind)
		data["value"] = field.Stringify(value)
		data["attrs"] = constraintAttrs(d)
		return r.templates.RenderTemplate("controls/input", data)
	}
}

func (r *Renderer) sanitizeHelp(help string) string {
	if strings.TrimSpace(help) == "" {
		return ""
	}
	return r.sanitizer.Sanitize(help)
}

// formMethod maps an HTTP verb onto the browser-safe form method plus the
// _method override value for verbs forms cannot submit directly.
func formMethod(method string) (attr, override string) {
	switch method {
	case "GET":
		return "get", ""
	case "POST", "":
		return "post", ""
	default:
		return "post", method
	}
}

func inputType(kind field.Kind) string {
	switch kind {
	case field.KindEmail:
		return "email"
	case field.KindPassword:
		return "password"
	case field.KindNumber:
		return "number"
	case field.KindDate:
		return "date"
	case field.KindDateTime:
		return "datetime-local"
	default:
		return "text"
	}
}

func controlValue(d field.Descriptor, values map[string]any) any {
	if values != nil {
		if v, ok := values[d.Name]; ok {
			return v
		}
	}
	return d.DefaultValue()
}

func boolValue(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}

func choiceOptions(d field.Descriptor, value any) []map[string]any {
	selected := selectedValues(d, value)
	out := make([]map[string]any, 0, len(d.Options))
	for _, opt := range d.Options {
		label := opt.Label
		if label == "" {
			label = opt.Value
		}
		out = append(out, map[string]any{
			"value":    opt.Value,
			"label":    label,
			"selected": selected[opt.Value],
		})
	}
	return out
}

func selectedValues(d field.Descriptor, value any) map[string]bool {
	out := make(map[string]bool)
	if value == nil {
		return out
	}
	if d.Kind == field.KindMultiSelect {
		switch vs := value.(type) {
		case []string:
			for _, v := range vs {
				out[v] = true
			}
		case []any:
			for _, v := range vs {
				out[field.Stringify(v)] = true
			}
		}
		return out
	}
	if s := field.Stringify(value); s != "" {
		out[s] = true
	}
	return out
}

func referenceLabel(name, value string, labels map[string]string) string {
	if labels != nil {
		if label, ok := labels[name]; ok && label != "" {
			return label
		}
	}
	return value
}

func attachmentName(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case attachment.Stored:
		return v.Name
	case *attachment.Stored:
		if v == nil {
			return ""
		}
		return v.Name
	case map[string]any:
		if name, ok := v["name"].(string); ok {
			return name
		}
	}
	return ""
}

func constraintAttrs(d field.Descriptor) string {
	var b strings.Builder
	c := d.Constraints
	if c.MinLength != nil {
		fmt.Fprintf(&b, ` minlength="%d"`, *c.MinLength)
	}
	if c.MaxLength != nil {
		fmt.Fprintf(&b, ` maxlength="%d"`, *c.MaxLength)
	}
	if c.Min != nil {
		fmt.Fprintf(&b, ` min="%s"`, formatNumber(*c.Min))
	}
	if c.Max != nil {
		fmt.Fprintf(&b, ` max="%s"`, formatNumber(*c.Max))
	}
	if c.Pattern != "" {
		fmt.Fprintf(&b, ` pattern="%s"`, html.EscapeString(c.Pattern))
	}
	return b.String()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
