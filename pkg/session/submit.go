package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/goliatone/go-formflow/pkg/field"
)

// Submit validates everything, composes the payload, and runs the configured
// create or update handler. The whole form is re-validated even though each
// edit already validated its field, because required fields the user never
// touched have to fail here.
//
// On failure the session flips to the error status with the failure banner
// set, keeps every entered value, and becomes editable again. On success the
// entered values become the new baseline and the session shows the success
// status for the configured interval before returning to ready.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.status == StatusSubmitting {
		s.mu.Unlock()
		return ErrSubmitInFlight
	}
	if !s.editableLocked() {
		s.mu.Unlock()
		return ErrNotEditable
	}

	if n := s.validateAllLocked(); n > 0 {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.observe(snap)
		return fmt.Errorf("%w: %d field(s)", ErrValidation, n)
	}

	payload, err := s.composePayloadLocked()
	if err != nil {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.observe(snap)
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var handler func(context.Context, map[string]any) (map[string]any, error)
	switch s.mode {
	case ModeEdit:
		if s.updater == nil {
			s.mu.Unlock()
			return ErrNoSubmitter
		}
		updater, id := s.updater, s.recordID
		handler = func(ctx context.Context, p map[string]any) (map[string]any, error) {
			return updater(ctx, id, p)
		}
	default:
		if s.creator == nil {
			s.mu.Unlock()
			return ErrNoSubmitter
		}
		handler = s.creator
	}

	s.status = StatusSubmitting
	s.formError = ""
	before := s.beforeSubmit
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.observe(snap)

	if before != nil {
		mutated, err := before(ctx, payload)
		if err != nil {
			return s.failSubmit(err)
		}
		if mutated != nil {
			payload = mutated
		}
	}

	result, err := handler(ctx, payload)
	if err != nil {
		return s.failSubmit(err)
	}
	s.completeSubmit(result)
	return nil
}

// validateAllLocked runs the full schema with attachment presence markers
// merged in and rebuilds the error map from the issues. It returns the issue
// count.
func (s *Session) validateAllLocked() int {
	candidate := copyValues(s.values)
	for name, ctrl := range s.attachments {
		if ctrl.Filled() {
			candidate[name] = ctrl.Status()
		} else {
			candidate[name] = nil
		}
	}
	issues := s.schema.Validate(candidate)
	s.errors = make(map[string]string, len(issues))
	for _, issue := range issues {
		s.errors[issue.Field] = issue.Message
	}
	return len(issues)
}

// composePayloadLocked builds the submit body: current values minus
// read-only fields, custom values serialised through their behaviour, and
// attachments contributing their three-state payload. Edit sessions with
// merge patching enabled send only what changed.
func (s *Session) composePayloadLocked() (map[string]any, error) {
	current, err := s.scalarPayloadLocked(s.values)
	if err != nil {
		return nil, err
	}

	payload := current
	if s.mode == ModeEdit && s.mergePatch {
		baseline, err := s.scalarPayloadLocked(s.originals)
		if err != nil {
			return nil, err
		}
		payload, err = diffPayload(baseline, current)
		if err != nil {
			return nil, err
		}
	}

	for name, ctrl := range s.attachments {
		if file, include := ctrl.Payload(); include {
			if file != nil {
				payload[name] = file
			} else {
				payload[name] = nil
			}
		}
	}
	return payload, nil
}

// scalarPayloadLocked renders one value map into payload form, skipping
// read-only and attachment fields. Custom serialisation failures surface as
// field errors.
func (s *Session) scalarPayloadLocked(values map[string]any) (map[string]any, error) {
	payload := make(map[string]any, len(values))
	for _, name := range s.order {
		eff, ok := s.schema.Descriptor(name)
		if !ok || eff.ReadOnly || eff.Kind.Attachment() {
			continue
		}
		value := values[name]
		if eff.Kind == field.KindCustom && eff.Custom != nil {
			serialized, err := eff.Custom.Serialize(value)
			if err != nil {
				s.errors[name] = err.Error()
				return nil, fmt.Errorf("field %q: %v", name, err)
			}
			value = serialized
		}
		if value == nil {
			continue
		}
		payload[name] = value
	}
	return payload, nil
}

// diffPayload reduces an edit payload to an RFC 7386 merge patch: changed
// keys keep their new value, cleared keys become explicit nulls, untouched
// keys drop out.
func diffPayload(baseline, current map[string]any) (map[string]any, error) {
	before, err := sonic.Marshal(baseline)
	if err != nil {
		return nil, fmt.Errorf("session: encode baseline: %w", err)
	}
	after, err := sonic.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("session: encode payload: %w", err)
	}
	patch, err := jsonpatch.CreateMergePatch(before, after)
	if err != nil {
		return nil, fmt.Errorf("session: merge patch: %w", err)
	}
	out := make(map[string]any)
	if err := sonic.Unmarshal(patch, &out); err != nil {
		return nil, fmt.Errorf("session: decode merge patch: %w", err)
	}
	return out, nil
}

// failSubmit records a submit failure. Values stay exactly as entered; a
// ServerError's field entries land on the matching fields.
func (s *Session) failSubmit(err error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return err
	}
	s.status = StatusError
	message := err.Error()

	var srvErr *ServerError
	if errors.As(err, &srvErr) {
		message = srvErr.Error()
		var orphaned []string
		for rawPath, raw := range srvErr.Fields {
			msgs := normalizeMessages(raw)
			if len(msgs) == 0 {
				continue
			}
			name := fieldErrorKey(rawPath)
			if _, known := s.schema.Descriptor(name); known && name != "" {
				s.errors[name] = strings.Join(msgs, "; ")
			} else {
				orphaned = append(orphaned, msgs...)
			}
		}
		if len(orphaned) > 0 {
			message = strings.Join(append([]string{message}, orphaned...), "; ")
		}
	}

	s.formError = message
	s.armDisplayRevertLocked(StatusError)
	notifier := s.notifier
	after := s.afterError
	snap := s.snapshotLocked()
	s.mu.Unlock()

	notifier.Error(message)
	if after != nil {
		after(err)
	}
	s.observe(snap)
	return err
}

// completeSubmit adopts the stored record as the new baseline and shows the
// success state for the configured interval.
func (s *Session) completeSubmit(result map[string]any) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if result != nil {
		for _, name := range s.order {
			eff, ok := s.schema.Descriptor(name)
			if !ok || eff.Kind.Attachment() {
				continue
			}
			if raw, exists := result[name]; exists && raw != nil {
				s.values[name] = normalizeValue(eff, raw)
			}
		}
		if id, ok := result["id"]; ok && s.recordID == "" {
			s.recordID = field.Stringify(id)
		}
	}
	for name, ctrl := range s.attachments {
		if result != nil {
			ctrl.Commit(storedFromRecord(result[name]))
			continue
		}
		ctrl.Commit(nil)
	}

	s.originals = copyValues(s.values)
	s.errors = make(map[string]string)
	s.formError = ""
	s.status = StatusSuccess
	s.armDisplayRevertLocked(StatusSuccess)

	notifier := s.notifier
	message := s.successMessage
	after := s.afterSuccess
	snap := s.snapshotLocked()
	s.mu.Unlock()

	notifier.Success(message)
	if after != nil {
		after(result)
	}
	s.observe(snap)
}

// armDisplayRevertLocked schedules the return to ready once the success or
// error display interval elapses. Edits arriving first win: they pull the
// status back to ready themselves, so the stale timer does nothing.
func (s *Session) armDisplayRevertLocked(from Status) {
	s.displayEpoch++
	epoch := s.displayEpoch

	if s.displayTimer != nil {
		s.displayTimer.Stop()
	}
	s.displayTimer = time.AfterFunc(s.successInterval, func() {
		s.mu.Lock()
		if s.closed || s.status != from || s.displayEpoch != epoch {
			s.mu.Unlock()
			return
		}
		s.status = StatusReady
		s.formError = ""
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.observe(snap)
	})
}
