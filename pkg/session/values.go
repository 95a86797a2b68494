package session

import (
	"errors"
	"fmt"
	"path"
	"reflect"
	"strconv"
	"strings"

	"github.com/goliatone/go-formflow/pkg/attachment"
	"github.com/goliatone/go-formflow/pkg/field"
	"github.com/goliatone/go-formflow/pkg/options"
	"github.com/goliatone/go-formflow/pkg/selector"
)

// Set records a field edit: the value is normalised for the field's kind,
// validated immediately, and any field depending on this one is re-derived.
// Editing clears the form-level banner and pulls an error or success status
// back to ready.
func (s *Session) Set(name string, value any) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if !s.editableLocked() {
		s.mu.Unlock()
		return ErrNotEditable
	}
	eff, ok := s.schema.Descriptor(name)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	if eff.ReadOnly {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q is read-only", ErrNotEditable, name)
	}

	normalized := normalizeValue(eff, value)
	s.values[name] = normalized
	if err := s.schema.ValidateField(name, normalized); err != nil {
		s.errors[name] = err.Error()
	} else {
		delete(s.errors, name)
	}

	s.formError = ""
	if s.status == StatusError || s.status == StatusSuccess {
		s.status = StatusReady
	}

	stale := s.recomputeDependentsLocked(name)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	for _, old := range stale {
		old.Close()
	}
	s.observe(snap)
	return nil
}

// SelectOption records a paginated reference choice, keeping the selector's
// label state and the value map in step.
func (s *Session) SelectOption(name string, opt options.Option) error {
	s.mu.Lock()
	sel, ok := s.selectors[name]
	s.mu.Unlock()
	if ok {
		sel.Select(opt.Value, opt.Label)
	}
	return s.Set(name, opt.Value)
}

// Attach validates and stores a file on an attachment field. Rejections land
// in the field's error slot with a display-ready message; the previous
// attachment stays in place.
func (s *Session) Attach(name string, f attachment.File) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if !s.editableLocked() {
		s.mu.Unlock()
		return ErrNotEditable
	}
	ctrl, ok := s.attachments[name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q is not an attachment field", ErrUnknownField, name)
	}
	eff, _ := s.schema.Descriptor(name)

	err := ctrl.Attach(f)
	if err != nil {
		s.errors[name] = attachmentMessage(eff, err)
	} else {
		delete(s.errors, name)
		s.formError = ""
		if s.status == StatusError || s.status == StatusSuccess {
			s.status = StatusReady
		}
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.observe(snap)
	return err
}

// RemoveAttachment clears an attachment field. With a stored original this
// stages an explicit deletion; removing a required field's content surfaces
// the required error immediately rather than at submit.
func (s *Session) RemoveAttachment(name string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if !s.editableLocked() {
		s.mu.Unlock()
		return ErrNotEditable
	}
	ctrl, ok := s.attachments[name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q is not an attachment field", ErrUnknownField, name)
	}
	eff, _ := s.schema.Descriptor(name)

	err := ctrl.Remove()
	if err == nil {
		if eff.Required && !ctrl.Filled() {
			s.errors[name] = fmt.Sprintf("%s is required", eff.DisplayLabel())
		} else {
			delete(s.errors, name)
		}
		s.formError = ""
		if s.status == StatusError || s.status == StatusSuccess {
			s.status = StatusReady
		}
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.observe(snap)
	return err
}

// recomputeDependentsLocked re-derives every field watching the changed one.
// When the watched value moves to a different variant key, the dependent
// field is reshaped and its value discarded so a selection made under the
// old variant never leaks into the new one.
func (s *Session) recomputeDependentsLocked(changed string) []*selector.Selector {
	var stale []*selector.Selector
	for _, name := range s.order {
		base := s.base[name]
		if base.DependsOn == nil || base.DependsOn.Field != changed {
			continue
		}
		variant, key, ok := base.DependsOn.Resolve(s.values[changed])
		if key == s.variantKeys[name] {
			continue
		}
		s.variantKeys[name] = key

		eff := base
		if ok {
			eff = base.WithVariant(variant)
		}
		if err := s.schema.Rebind(eff); err != nil {
			s.errors[name] = err.Error()
			continue
		}
		if !eff.Kind.Attachment() {
			s.values[name] = normalizeValue(eff, eff.DefaultValue())
		}
		delete(s.errors, name)
		if old := s.rebuildControlsLocked(eff); old != nil {
			stale = append(stale, old)
		}
	}
	return stale
}

// rebuildControlsLocked swaps per-field controls after a descriptor change.
// It returns the replaced selector, if any, so the caller can close it after
// releasing the session lock.
func (s *Session) rebuildControlsLocked(eff field.Descriptor) *selector.Selector {
	name := eff.Name
	old := s.selectors[name]
	delete(s.selectors, name)

	if oldCtrl, had := s.attachments[name]; had {
		oldCtrl.Reset()
		delete(s.attachments, name)
	}

	switch {
	case eff.Kind == field.KindPaginatedSelect:
		sel, err := s.buildSelector(eff)
		if err != nil {
			s.errors[name] = err.Error()
			return old
		}
		s.selectors[name] = sel
	case eff.Kind.Attachment():
		s.attachments[name] = s.buildAttachment(eff, nil)
	}
	return old
}

// normalizeValue coerces raw renderer input into the canonical shape for the
// field's kind so dirty comparison and payloads behave the same no matter
// where the value came from.
func normalizeValue(d field.Descriptor, value any) any {
	if value == nil {
		return nil
	}
	switch d.Kind {
	case field.KindNumber:
		if n, ok := toFloat(value); ok {
			return n
		}
	case field.KindBoolean:
		if b, ok := toBool(value); ok {
			return b
		}
	case field.KindMultiSelect:
		if slice, ok := toStringSlice(value); ok {
			return slice
		}
	case field.KindSelect, field.KindRadio:
		switch d.EffectiveValueType() {
		case field.ValueNumber:
			if n, ok := toFloat(value); ok {
				return n
			}
		case field.ValueBoolean:
			if b, ok := toBool(value); ok {
				return b
			}
		}
	}
	return value
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func toBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, false
		}
		return b, true
	default:
		return false, false
	}
}

func toStringSlice(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return append([]string(nil), v...), true
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			s, ok := elem.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// valuesEqual is the dirty comparison: scalar identity for comparable types,
// element-wise for string slices, deep equality for anything custom.
func valuesEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case []string:
		bv, ok := b.([]string)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a, b)
	}
}

// attachmentMessage converts controller sentinels into display-ready field
// errors; unknown errors pass through as-is.
func attachmentMessage(d field.Descriptor, err error) string {
	label := d.DisplayLabel()
	switch {
	case errors.Is(err, attachment.ErrTooLarge):
		limit := d.Constraints.MaxSize
		if limit <= 0 {
			limit = attachment.DefaultMaxSize
		}
		return fmt.Sprintf("%s is too large (limit %s)", label, attachment.FormatSize(limit))
	case errors.Is(err, attachment.ErrUnsupportedType):
		if len(d.Constraints.Accept) > 0 {
			return fmt.Sprintf("%s must be one of: %s", label, strings.Join(d.Constraints.Accept, ", "))
		}
		return fmt.Sprintf("%s has an unsupported file type", label)
	case errors.Is(err, attachment.ErrEmptyFile):
		return fmt.Sprintf("%s is empty", label)
	default:
		return err.Error()
	}
}

// storedFromRecord interprets the shapes records use for stored attachments:
// a metadata object or a bare URL string.
func storedFromRecord(value any) *attachment.Stored {
	switch v := value.(type) {
	case map[string]any:
		stored := attachment.Stored{}
		if name, ok := v["name"].(string); ok {
			stored.Name = name
		}
		if url, ok := v["url"].(string); ok {
			stored.URL = url
		}
		if mime, ok := v["mime"].(string); ok {
			stored.MIME = mime
		}
		if size, ok := toFloat(v["size"]); ok {
			stored.Size = int64(size)
		}
		if stored.Name == "" && stored.URL != "" {
			stored.Name = path.Base(stored.URL)
		}
		if stored.Name == "" && stored.URL == "" {
			return nil
		}
		return &stored
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return &attachment.Stored{Name: path.Base(v), URL: v}
	default:
		return nil
	}
}
