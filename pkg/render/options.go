package render

// RenderOptions carry per-request data renderers use to customise output
// without mutating the form definition itself.
type RenderOptions struct {
	// Action overrides the submit URL declared on the form.
	Action string
	// Method overrides the HTTP method declared by the form. Renderers are
	// responsible for translating verbs browsers cannot submit (PUT, PATCH,
	// DELETE) into POST plus a hidden _method input when needed.
	Method string
	// Values pre-populates rendered controls keyed by field name. Fields
	// absent from the map fall back to their descriptor defaults.
	Values map[string]any
	// Labels carries display labels for reference values keyed by field
	// name, so server-rendered paginated selects can show the stored
	// selection's label instead of its raw id.
	Labels map[string]string
	// Errors surfaces validation feedback keyed by field name. Renderers map
	// these into inline error chrome next to the offending control.
	Errors map[string]string
	// FormError is a form-level failure banner (backend rejection, quota).
	FormError string
	// Locale selects the translation locale when a Translator is configured.
	Locale string
	// Translator resolves convention keys ("forms.<name>.title") before
	// rendering. Nil leaves the form's declared strings untouched.
	Translator Translator
	// OnMissing decides the string used when a translation cannot be
	// resolved. Nil falls back to the declared string, then the key.
	OnMissing MissingTranslationHandler
}
