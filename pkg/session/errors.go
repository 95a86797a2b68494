package session

import (
	"errors"
	"strings"
)

var (
	ErrNotEditable    = errors.New("session: form is not editable")
	ErrSubmitInFlight = errors.New("session: submit already in flight")
	ErrValidation     = errors.New("session: validation failed")
	ErrNoLoader       = errors.New("session: edit mode requires a loader")
	// ErrRequiredAttachment rejects required file/image fields outside edit
	// mode; only a stored record can already satisfy the requirement.
	ErrRequiredAttachment = errors.New("session: required attachment needs edit mode")
	ErrNoSubmitter    = errors.New("session: no submit handler configured")
	ErrUnknownField   = errors.New("session: unknown field")
	ErrClosed         = errors.New("session: closed")
)

// ServerError carries a failed submit response that includes per-field
// messages. Submit maps its field entries onto the session's error map and
// keeps unmatched messages at the form level so nothing is lost.
type ServerError struct {
	Message string
	Fields  map[string][]string
}

func (e *ServerError) Error() string {
	if e == nil || strings.TrimSpace(e.Message) == "" {
		return "submit rejected"
	}
	return e.Message
}

// payload wrappers servers commonly nest field errors under.
var errorPathWrappers = map[string]struct{}{
	"body":       {},
	"request":    {},
	"payload":    {},
	"data":       {},
	"attributes": {},
}

// fieldErrorKey normalises a server error path ("/data/attributes/title",
// "body.title") to a bare field name.
func fieldErrorKey(raw string) string {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "#/")
	clean = strings.TrimPrefix(clean, "$.")
	clean = strings.Trim(clean, "#/$.")
	if clean == "" {
		return ""
	}
	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := parts[:0]
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, wrapper := errorPathWrappers[strings.ToLower(part)]; wrapper {
			continue
		}
		out = append(out, part)
	}
	if len(out) == 0 {
		return ""
	}
	return out[len(out)-1]
}

// normalizeMessages trims, deduplicates, and drops blank messages while
// preserving order.
func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(messages))
	out := make([]string, 0, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
