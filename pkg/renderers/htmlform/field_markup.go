package htmlform

import (
	"html"
	"strings"

	"github.com/goliatone/go-formflow/pkg/field"
)

func controlID(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	return "ff-" + trimmed
}

// buildFieldMarkup wraps a rendered control in its chrome: the field
// container, label, help text, and inline error. help arrives sanitized and
// is inserted raw; everything else is escaped here.
func buildFieldMarkup(d field.Descriptor, control, help, errMsg string) string {
	if d.Kind == field.KindHidden {
		return control
	}

	var builder strings.Builder
	builder.Grow(len(control) + 256)

	builder.WriteString(`<div class="field field-`)
	builder.WriteString(html.EscapeString(string(d.Kind)))
	builder.WriteString(`" data-field="`)
	builder.WriteString(html.EscapeString(d.Name))
	builder.WriteString(`"`)
	if d.DependsOn != nil && d.DependsOn.Field != "" {
		builder.WriteString(` data-depends-on="`)
		builder.WriteString(html.EscapeString(d.DependsOn.Field))
		builder.WriteString(`"`)
	}
	builder.WriteString(">\n")

	if label := d.DisplayLabel(); label != "" {
		builder.WriteString(`    <label for="`)
		builder.WriteString(html.EscapeString(controlID(d.Name)))
		builder.WriteString(`">`)
		builder.WriteString(html.EscapeString(label))
		if d.Required {
			builder.WriteString(` *`)
		}
		builder.WriteString("</label>\n")
	}

	for _, line := range strings.Split(control, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		builder.WriteString("    ")
		builder.WriteString(line)
		builder.WriteByte('\n')
	}

	if strings.TrimSpace(help) != "" {
		builder.WriteString(`    <small class="field-help">`)
		builder.WriteString(help)
		builder.WriteString("</small>\n")
	}

	if strings.TrimSpace(errMsg) != "" {
		builder.WriteString(`    <p class="field-error" role="alert">`)
		builder.WriteString(html.EscapeString(errMsg))
		builder.WriteString("</p>\n")
	}

	builder.WriteString("</div>\n")
	return builder.String()
}
