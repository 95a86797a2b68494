package session

import (
	"context"
	"fmt"

	"github.com/goliatone/go-formflow/pkg/selector"
)

// Load fetches the record an edit session edits and seeds values, originals,
// and attachment baselines from it. Create sessions ignore Load. A failed
// load parks the session in the load-failed state where only Retry helps;
// the error also comes back to the caller.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.mode != ModeEdit {
		s.mu.Unlock()
		return nil
	}
	if s.status != StatusLoading && s.status != StatusLoadFailed {
		s.mu.Unlock()
		return nil
	}
	loader, id := s.loader, s.recordID
	s.mu.Unlock()

	record, err := loader(ctx, id)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		s.status = StatusLoadFailed
		s.loadErr = err.Error()
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.observe(snap)
		return fmt.Errorf("session: load record %q: %w", id, err)
	}

	stale := s.applyRecordLocked(record)
	s.status = StatusReady
	s.loadErr = ""

	type labelJob struct {
		sel   *selector.Selector
		value string
	}
	var jobs []labelJob
	for name, sel := range s.selectors {
		if v, ok := s.values[name].(string); ok && v != "" {
			jobs = append(jobs, labelJob{sel, v})
		}
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	for _, old := range stale {
		old.Close()
	}
	// Resolve display labels for stored reference ids so edit screens never
	// show a bare id while the dropdown is closed.
	for _, job := range jobs {
		label := job.sel.EnsureLabel(ctx, job.value)
		job.sel.Select(job.value, label)
	}
	s.observe(snap)
	return nil
}

// Retry re-runs a failed load.
func (s *Session) Retry(ctx context.Context) error {
	return s.Load(ctx)
}

// applyRecordLocked seeds the value map and attachment originals from a
// loaded record, then resolves dependency variants against the loaded values
// without discarding any of them.
func (s *Session) applyRecordLocked(record map[string]any) []*selector.Selector {
	for _, name := range s.order {
		f := s.base[name]
		if f.Kind.Attachment() {
			s.attachments[name] = s.buildAttachment(f, storedFromRecord(record[name]))
			continue
		}
		if raw, ok := record[name]; ok && raw != nil {
			s.values[name] = normalizeValue(f, raw)
		} else {
			s.values[name] = f.DefaultValue()
		}
	}

	stale := s.resolveInitialVariants()

	// Variants may retype a field; run the loaded raw value through the
	// effective descriptor so normalisation matches what Set would produce.
	for _, name := range s.order {
		eff, ok := s.schema.Descriptor(name)
		if !ok {
			continue
		}
		if eff.Kind.Attachment() {
			delete(s.values, name)
			continue
		}
		if raw, exists := record[name]; exists && raw != nil {
			s.values[name] = normalizeValue(eff, raw)
		}
	}

	s.originals = copyValues(s.values)
	s.errors = make(map[string]string)
	s.formError = ""
	return stale
}

// Reset throws away local edits and returns to the loaded baseline: values,
// errors, attachments, dependent variants, and reference selections.
func (s *Session) Reset() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if !s.editableLocked() {
		s.mu.Unlock()
		return ErrNotEditable
	}

	s.values = copyValues(s.originals)
	s.errors = make(map[string]string)
	s.formError = ""
	s.status = StatusReady

	var stale []*selector.Selector
	for _, name := range s.order {
		base := s.base[name]
		if base.DependsOn == nil {
			continue
		}
		variant, key, ok := base.DependsOn.Resolve(s.values[base.DependsOn.Field])
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
		if old := s.rebuildControlsLocked(eff); old != nil {
			stale = append(stale, old)
		}
	}

	for _, ctrl := range s.attachments {
		ctrl.Reset()
	}

	type selJob struct {
		sel   *selector.Selector
		value string
	}
	var jobs []selJob
	for name, sel := range s.selectors {
		value, _ := s.values[name].(string)
		jobs = append(jobs, selJob{sel, value})
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	for _, old := range stale {
		old.Close()
	}
	for _, job := range jobs {
		if job.value == "" {
			job.sel.Clear()
			continue
		}
		label, ok := job.sel.CachedLabel(job.value)
		if !ok {
			label = job.value
		}
		job.sel.Select(job.value, label)
	}
	s.observe(snap)
	return nil
}
