// Package session runs one form instance end to end: loading the record an
// edit screen starts from, tracking values and per-field errors as the user
// types, resolving dependent fields, and walking the submit lifecycle without
// ever losing user input on failure.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-formflow/pkg/attachment"
	"github.com/goliatone/go-formflow/pkg/field"
	"github.com/goliatone/go-formflow/pkg/selector"
	"github.com/goliatone/go-formflow/pkg/validation"
)

// Status names the lifecycle position of a session.
type Status string

const (
	// StatusLoading covers an edit session waiting for its record.
	StatusLoading Status = "loading"
	// StatusLoadFailed means the record fetch failed; Retry re-runs it.
	StatusLoadFailed Status = "load-failed"
	// StatusReady accepts edits and submits.
	StatusReady Status = "ready"
	// StatusSubmitting blocks edits while the save is in flight.
	StatusSubmitting Status = "submitting"
	// StatusSuccess shows briefly after a save, then reverts to ready.
	StatusSuccess Status = "success"
	// StatusError keeps the form editable with the failure banner visible.
	StatusError Status = "error"
)

// Snapshot is a copy of everything a renderer needs to paint the form.
type Snapshot struct {
	Status    Status
	Mode      Mode
	RecordID  string
	Values    map[string]any
	Errors    map[string]string
	FormError string
	LoadError string
	Dirty     bool
	CanSubmit bool
	CanReset  bool
}

// Session is a live form. Methods are safe for concurrent use; Submit and
// Load block their caller while hooks and handlers run.
type Session struct {
	mode            Mode
	loader          LoadFunc
	creator         SubmitFunc
	updater         UpdateFunc
	beforeSubmit    BeforeSubmitFunc
	afterSuccess    func(map[string]any)
	afterError      func(error)
	notifier        Notifier
	sources         SourceFactory
	previews        *attachment.PreviewStore
	successInterval time.Duration
	successMessage  string
	mergePatch      bool
	observer        Observer

	mu           sync.Mutex
	status       Status
	recordID     string
	schema       *validation.Schema
	base         map[string]field.Descriptor
	order        []string
	variantKeys  map[string]string
	values       map[string]any
	originals    map[string]any
	errors       map[string]string
	formError    string
	loadErr      string
	selectors    map[string]*selector.Selector
	attachments  map[string]*attachment.Controller
	displayTimer *time.Timer
	displayEpoch uint64
	closed       bool
}

// New builds a session over a descriptor set. Create sessions start ready
// with kind defaults; edit sessions start loading and need Load called.
func New(fields []field.Descriptor, fns ...OptionFn) (*Session, error) {
	opts := NewOptions(fns...)

	schema, err := validation.Generate(fields)
	if err != nil {
		return nil, err
	}
	if opts.Mode == ModeEdit && opts.Loader == nil {
		return nil, ErrNoLoader
	}
	if opts.Mode != ModeEdit {
		for _, f := range fields {
			if f.Required && f.Kind.Attachment() {
				return nil, fmt.Errorf("%w: %q", ErrRequiredAttachment, f.Name)
			}
		}
	}

	s := &Session{
		mode:            opts.Mode,
		loader:          opts.Loader,
		creator:         opts.Creator,
		updater:         opts.Updater,
		beforeSubmit:    opts.BeforeSubmit,
		afterSuccess:    opts.AfterSuccess,
		afterError:      opts.AfterError,
		notifier:        opts.Notifier,
		sources:         opts.Sources,
		previews:        opts.Previews,
		successInterval: opts.SuccessInterval,
		successMessage:  opts.SuccessMessage,
		mergePatch:      opts.MergePatch,
		observer:        opts.Observer,

		recordID:    opts.RecordID,
		schema:      schema,
		base:        make(map[string]field.Descriptor, len(fields)),
		order:       make([]string, 0, len(fields)),
		variantKeys: make(map[string]string),
		values:      make(map[string]any, len(fields)),
		originals:   make(map[string]any, len(fields)),
		errors:      make(map[string]string),
		selectors:   make(map[string]*selector.Selector),
		attachments: make(map[string]*attachment.Controller),
	}
	for _, f := range fields {
		s.base[f.Name] = f
		s.order = append(s.order, f.Name)
	}

	if err := s.initControls(); err != nil {
		return nil, err
	}

	if s.mode == ModeEdit {
		s.status = StatusLoading
		return s, nil
	}

	s.seedDefaults()
	stale := s.resolveInitialVariants()
	s.originals = copyValues(s.values)
	s.status = StatusReady
	for _, old := range stale {
		old.Close()
	}
	return s, nil
}

// Fields returns the effective descriptors in declaration order, dependency
// variants applied.
func (s *Session) Fields() []field.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schema.Fields()
}

// Descriptor returns the effective descriptor for one field.
func (s *Session) Descriptor(name string) (field.Descriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schema.Descriptor(name)
}

// Status reports the lifecycle position.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Mode reports whether this is a create or an edit session.
func (s *Session) Mode() Mode { return s.mode }

// RecordID returns the record under edit; create sessions adopt the id of
// the stored record after a successful submit.
func (s *Session) RecordID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordID
}

// Value returns the current value for a field.
func (s *Session) Value(name string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[name]
}

// Values returns a copy of the current value map.
func (s *Session) Values() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyValues(s.values)
}

// FieldError returns the active validation message for a field.
func (s *Session) FieldError(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors[name]
}

// Errors returns a copy of the per-field error map.
func (s *Session) Errors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.errors))
	for k, v := range s.errors {
		out[k] = v
	}
	return out
}

// FormError returns the form-level failure banner, empty when none.
func (s *Session) FormError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.formError
}

// Dirty reports whether any value or attachment differs from the loaded
// baseline.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirtyLocked()
}

// CanSubmit reports whether the submit control should be enabled: the
// session accepts edits and something actually changed. Validation still
// runs inside Submit; this only covers lifecycle position.
func (s *Session) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editableLocked() && s.dirtyLocked()
}

// CanReset reports whether there are local changes to throw away.
func (s *Session) CanReset() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editableLocked() && s.dirtyLocked()
}

// Selector returns the option selector for a paginated reference field.
func (s *Session) Selector(name string) (*selector.Selector, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.selectors[name]
	return sel, ok
}

// Attachment returns the controller for a file or image field.
func (s *Session) Attachment(name string) (*attachment.Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctrl, ok := s.attachments[name]
	return ctrl, ok
}

// Previews exposes the preview store shared by this session's attachments.
func (s *Session) Previews() *attachment.PreviewStore { return s.previews }

// Snapshot returns a copy of the renderable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Close releases selectors and timers. The session rejects calls afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.displayTimer != nil {
		s.displayTimer.Stop()
		s.displayTimer = nil
	}
	stale := make([]*selector.Selector, 0, len(s.selectors))
	for _, sel := range s.selectors {
		stale = append(stale, sel)
	}
	s.mu.Unlock()

	for _, sel := range stale {
		sel.Close()
	}
}

func (s *Session) snapshotLocked() Snapshot {
	editable := s.editableLocked()
	dirty := s.dirtyLocked()
	return Snapshot{
		Status:    s.status,
		Mode:      s.mode,
		RecordID:  s.recordID,
		Values:    copyValues(s.values),
		Errors:    copyErrors(s.errors),
		FormError: s.formError,
		LoadError: s.loadErr,
		Dirty:     dirty,
		CanSubmit: editable && dirty,
		CanReset:  editable && dirty,
	}
}

// editableLocked reports whether edits and submits are accepted. Error and
// success states stay editable; loading and in-flight submits do not.
func (s *Session) editableLocked() bool {
	switch s.status {
	case StatusReady, StatusError, StatusSuccess:
		return true
	default:
		return false
	}
}

func (s *Session) dirtyLocked() bool {
	for _, name := range s.order {
		if !valuesEqual(s.values[name], s.originals[name]) {
			return true
		}
	}
	for _, ctrl := range s.attachments {
		if ctrl.Dirty() {
			return true
		}
	}
	return false
}

func (s *Session) observe(snap Snapshot) {
	if s.observer != nil {
		s.observer(snap)
	}
}

// initControls builds selectors and attachment controllers for the base
// descriptors. Dependency variants rebuild these later as needed.
func (s *Session) initControls() error {
	for _, name := range s.order {
		f := s.base[name]
		switch {
		case f.Kind == field.KindPaginatedSelect:
			sel, err := s.buildSelector(f)
			if err != nil {
				return fmt.Errorf("session: field %q: %w", name, err)
			}
			s.selectors[name] = sel
		case f.Kind.Attachment():
			s.attachments[name] = s.buildAttachment(f, nil)
		}
	}
	return nil
}

func (s *Session) buildSelector(f field.Descriptor) (*selector.Selector, error) {
	ref := f.Reference
	if ref == nil {
		return nil, fmt.Errorf("session: %q has no reference", f.Name)
	}
	source, err := s.sources(*ref)
	if err != nil {
		return nil, err
	}
	fns := []selector.OptionFn{}
	if ref.PageSize > 0 {
		fns = append(fns, selector.WithPageSize(ref.PageSize))
	}
	if ref.Debounce > 0 {
		fns = append(fns, selector.WithDebounce(ref.Debounce))
	}
	if len(ref.Filters) > 0 {
		fns = append(fns, selector.WithFilters(ref.Filters))
	}
	return selector.New(source, fns...)
}

func (s *Session) buildAttachment(f field.Descriptor, original *attachment.Stored) *attachment.Controller {
	fns := []attachment.OptionFn{
		attachment.WithPreviewStore(s.previews),
		attachment.WithReadOnly(f.ReadOnly),
	}
	if f.Constraints.MaxSize > 0 {
		fns = append(fns, attachment.WithMaxSize(f.Constraints.MaxSize))
	}
	if len(f.Constraints.Accept) > 0 {
		fns = append(fns, attachment.WithAccept(f.Constraints.Accept))
	}
	if original != nil {
		fns = append(fns, attachment.WithOriginal(*original))
	}
	return attachment.NewController(fns...)
}

func (s *Session) seedDefaults() {
	for _, name := range s.order {
		f := s.base[name]
		if f.Kind.Attachment() {
			continue
		}
		s.values[name] = normalizeValue(f, f.DefaultValue())
	}
}

// resolveInitialVariants applies dependency variants against current values
// without discarding anything; it runs once after defaults or a load seed
// the value map. Returned selectors were replaced and must be closed without
// the session lock held.
func (s *Session) resolveInitialVariants() []*selector.Selector {
	var stale []*selector.Selector
	for _, name := range s.order {
		f := s.base[name]
		if f.DependsOn == nil {
			continue
		}
		variant, key, ok := f.DependsOn.Resolve(s.values[f.DependsOn.Field])
		s.variantKeys[name] = key
		if !ok {
			continue
		}
		eff := f.WithVariant(variant)
		if err := s.schema.Rebind(eff); err != nil {
			s.errors[name] = err.Error()
			continue
		}
		if old := s.rebuildControlsLocked(eff); old != nil {
			stale = append(stale, old)
		}
	}
	return stale
}

func copyValues(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if slice, ok := v.([]string); ok {
			out[k] = append([]string(nil), slice...)
			continue
		}
		out[k] = v
	}
	return out
}

func copyErrors(errs map[string]string) map[string]string {
	out := make(map[string]string, len(errs))
	for k, v := range errs {
		out[k] = v
	}
	return out
}
