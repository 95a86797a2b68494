package render_test

import (
	"errors"
	"testing"

	"github.com/goliatone/go-formflow/pkg/field"
	"github.com/goliatone/go-formflow/pkg/render"
)

type stubTranslator map[string]string

func (t stubTranslator) Translate(_ string, key string, _ ...any) (string, error) {
	if msg, ok := t[key]; ok {
		return msg, nil
	}
	return "", errors.New("missing translation")
}

func localizableForm() render.Form {
	return render.Form{
		Name:  "articles.create",
		Title: "Create Article",
		Fields: []field.Descriptor{
			{
				Name:        "title",
				Kind:        field.KindText,
				Label:       "Title",
				Help:        "Shown in listings",
				Placeholder: "Enter a title",
			},
			{Name: "summary", Kind: field.KindTextarea},
		},
	}
}

func TestLocalizeForm_UsesKeysAndFallbacks(t *testing.T) {
	form := localizableForm()

	render.LocalizeForm(&form, render.RenderOptions{
		Locale: "es",
		Translator: stubTranslator{
			"forms.articles.create.title":       "Crear artículo",
			"forms.articles.create.title.label": "Título",
			"forms.articles.create.title.help":  "Visible en listados",
		},
	})

	if form.Title != "Crear artículo" {
		t.Fatalf("expected translated form title, got %q", form.Title)
	}
	if form.Fields[0].Label != "Título" {
		t.Fatalf("expected translated field label, got %q", form.Fields[0].Label)
	}
	if form.Fields[0].Help != "Visible en listados" {
		t.Fatalf("expected translated help text, got %q", form.Fields[0].Help)
	}
	if form.Fields[0].Placeholder != "Enter a title" {
		t.Fatalf("expected untranslated placeholder to stay declared, got %q", form.Fields[0].Placeholder)
	}
	if form.Fields[1].Label != "Summary" {
		t.Fatalf("expected missing label to fall back to humanised name, got %q", form.Fields[1].Label)
	}
}

func TestLocalizeForm_NilTranslatorIsNoop(t *testing.T) {
	form := localizableForm()
	render.LocalizeForm(&form, render.RenderOptions{Locale: "es"})

	if form.Title != "Create Article" {
		t.Fatalf("expected declared title untouched, got %q", form.Title)
	}
	if form.Fields[0].Label != "Title" {
		t.Fatalf("expected declared label untouched, got %q", form.Fields[0].Label)
	}
}

func TestLocalizeForm_OnMissingOverride(t *testing.T) {
	form := localizableForm()

	render.LocalizeForm(&form, render.RenderOptions{
		Locale:     "fr",
		Translator: stubTranslator{},
		OnMissing: func(_, key string, _ []any, err error) string {
			if err == nil {
				t.Fatalf("expected translation error for %q", key)
			}
			return "!" + key
		},
	})

	if form.Title != "!forms.articles.create.title" {
		t.Fatalf("expected OnMissing result for title, got %q", form.Title)
	}
}

func TestTemplateI18nFuncs(t *testing.T) {
	funcs := render.TemplateI18nFuncs(
		stubTranslator{"actions.save": "Guardar"},
		render.TemplateI18nConfig{},
	)

	translateFn, ok := funcs["translate"].(func(any, string, ...any) string)
	if !ok {
		t.Fatalf("expected translate helper, got %T", funcs["translate"])
	}
	if got := translateFn("es", "actions.save"); got != "Guardar" {
		t.Fatalf("expected translated action, got %q", got)
	}
	if got := translateFn(map[string]any{"locale": "es"}, "actions.missing"); got != "actions.missing" {
		t.Fatalf("expected key fallback on miss, got %q", got)
	}

	localeFn, ok := funcs["current_locale"].(func(any) string)
	if !ok {
		t.Fatalf("expected current_locale helper, got %T", funcs["current_locale"])
	}
	if got := localeFn(map[string]string{"locale": "en-US"}); got != "en-US" {
		t.Fatalf("expected locale from map, got %q", got)
	}
}
