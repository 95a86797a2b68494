package render

import (
	"errors"
	"strings"
)

// Translator resolves a message key for a locale. Implementations typically
// wrap a message catalog; params carry positional or named substitutions.
type Translator interface {
	Translate(locale, key string, params ...any) (string, error)
}

// MissingTranslationHandler decides the string used when a translation cannot
// be resolved. params may carry a map with a "default" fallback entry.
type MissingTranslationHandler func(locale, key string, params []any, err error) string

// ErrMissingTranslator is passed to MissingTranslationHandler when no
// Translator is configured.
var ErrMissingTranslator = errors.New("render: translator is not configured")

// Convention key builders. Forms resolve their display strings under
// "forms.<form>.*" so catalogs stay navigable by form name.

// TitleKey returns the translation key for a form's title.
func TitleKey(form string) string {
	return "forms." + form + ".title"
}

// FieldLabelKey returns the translation key for a field's label.
func FieldLabelKey(form, fieldName string) string {
	return "forms." + form + "." + fieldName + ".label"
}

// FieldHelpKey returns the translation key for a field's help text.
func FieldHelpKey(form, fieldName string) string {
	return "forms." + form + "." + fieldName + ".help"
}

// FieldPlaceholderKey returns the translation key for a field's placeholder.
func FieldPlaceholderKey(form, fieldName string) string {
	return "forms." + form + "." + fieldName + ".placeholder"
}

// LocalizeForm mutates the supplied form in place, resolving convention keys
// against opts.Translator. Titles and labels always resolve (declared strings
// are the fallback); help and placeholder only change when the catalog
// actually has the key, so untranslated forms keep their declared text.
//
// A nil Translator makes this a no-op.
func LocalizeForm(form *Form, opts RenderOptions) {
	if form == nil || opts.Translator == nil {
		return
	}

	onMissing := opts.OnMissing
	if onMissing == nil {
		onMissing = missingTranslationDefault
	}

	form.Title = translate(opts.Locale, TitleKey(form.Name), form.DisplayTitle(), opts.Translator, onMissing)

	for i := range form.Fields {
		f := &form.Fields[i]
		f.Label = translate(opts.Locale, FieldLabelKey(form.Name, f.Name), f.DisplayLabel(), opts.Translator, onMissing)
		if msg, ok := tryTranslate(opts.Locale, FieldHelpKey(form.Name, f.Name), opts.Translator); ok {
			f.Help = msg
		}
		if msg, ok := tryTranslate(opts.Locale, FieldPlaceholderKey(form.Name, f.Name), opts.Translator); ok {
			f.Placeholder = msg
		}
	}
}

func translate(locale, key, fallback string, t Translator, onMissing MissingTranslationHandler) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}

	if t == nil {
		if onMissing != nil {
			return onMissing(locale, key, []any{map[string]any{"default": fallback}}, ErrMissingTranslator)
		}
		if strings.TrimSpace(fallback) != "" {
			return fallback
		}
		return key
	}

	result, err := t.Translate(locale, key)
	if err == nil && strings.TrimSpace(result) != "" {
		return result
	}

	if onMissing != nil {
		return onMissing(locale, key, []any{map[string]any{"default": fallback}}, err)
	}
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	return key
}

func tryTranslate(locale, key string, t Translator) (string, bool) {
	if t == nil {
		return "", false
	}
	result, err := t.Translate(locale, key)
	if err != nil || strings.TrimSpace(result) == "" {
		return "", false
	}
	return result, true
}

func missingTranslationDefault(_, key string, params []any, _ error) string {
	for _, param := range params {
		values, ok := param.(map[string]any)
		if !ok {
			continue
		}
		if fallback, ok := values["default"].(string); ok && strings.TrimSpace(fallback) != "" {
			return fallback
		}
	}
	return key
}
