package htmlform

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.tpl templates/controls/*.tpl
var embeddedTemplates embed.FS

// TemplatesFS exposes the embedded template bundle rooted at the templates
// directory, so engine paths stay short ("form", "controls/input"). Callers
// that want to override individual templates can supply their own fs.FS via
// WithTemplatesFS.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return embeddedTemplates
	}
	return sub
}
