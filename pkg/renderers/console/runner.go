// Package console runs form sessions in a terminal: one survey prompt per
// field, paginated reference picking with server-side search, attachment
// paths resolved from disk, and a submit loop that replays failing fields
// until the save lands or the user gives up.
package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-formflow/pkg/field"
	"github.com/goliatone/go-formflow/pkg/selector"
	"github.com/goliatone/go-formflow/pkg/session"
)

const (
	rowLoadMore = "... load more"
	rowSearch   = "/ search"
	rowSkip     = "(skip)"
	rowKeep     = "(keep current)"

	// pollInterval paces snapshot checks while a selector fetch is in
	// flight. Terminal pacing, not a correctness knob.
	pollInterval = 20 * time.Millisecond
)

// Runner walks a session's fields through a prompt driver and drives the
// submit lifecycle.
type Runner struct {
	driver         PromptDriver
	selectPageSize int
	openFile       FileOpener
}

// New constructs a runner with the survey driver and default settings.
func New(options ...Option) *Runner {
	r := &Runner{
		driver:         newSurveyDriver(),
		selectPageSize: 10,
		openFile:       defaultFileOpener,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r
}

// Run prompts for every field and then submits. Edit sessions load their
// record first; a load failure ends the run since there is nothing to edit.
// The user declining the submit confirmation returns ErrCancelled.
func (r *Runner) Run(ctx context.Context, sess *session.Session) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if sess == nil {
		return errors.New("console: session is required")
	}

	if sess.Status() == session.StatusLoading {
		if err := sess.Load(ctx); err != nil {
			r.info(ctx, fmt.Sprintf("Failed to load record: %v", err))
			return fmt.Errorf("console: load record: %w", err)
		}
	}

	// Names are fixed at mount; descriptors are re-read per prompt because
	// an earlier answer can swap a dependent field's variant.
	names := make([]string, 0, len(sess.Fields()))
	for _, d := range sess.Fields() {
		names = append(names, d.Name)
	}

	for _, name := range names {
		d, ok := sess.Descriptor(name)
		if !ok {
			continue
		}
		if err := r.promptField(ctx, sess, d); err != nil {
			return err
		}
	}

	return r.submitLoop(ctx, sess, names)
}

func (r *Runner) promptField(ctx context.Context, sess *session.Session, d field.Descriptor) error {
	if d.Kind == field.KindHidden {
		return nil
	}
	if d.ReadOnly {
		r.info(ctx, fmt.Sprintf("%s: %s", d.DisplayLabel(), field.Stringify(sess.Value(d.Name))))
		return nil
	}

	switch d.Kind {
	case field.KindBoolean:
		return r.promptBoolean(ctx, sess, d)
	case field.KindSelect, field.KindRadio:
		return r.promptChoice(ctx, sess, d)
	case field.KindMultiSelect:
		return r.promptMultiChoice(ctx, sess, d)
	case field.KindPaginatedSelect:
		return r.promptReference(ctx, sess, d)
	case field.KindFile, field.KindImage:
		return r.promptAttachment(ctx, sess, d)
	case field.KindTextarea:
		return r.promptTextArea(ctx, sess, d)
	case field.KindPassword:
		return r.promptText(ctx, sess, d, true)
	default:
		return r.promptText(ctx, sess, d, false)
	}
}

func (r *Runner) promptText(ctx context.Context, sess *session.Session, d field.Descriptor, secret bool) error {
	cfg := InputConfig{
		Message:     d.DisplayLabel(),
		Default:     field.Stringify(sess.Value(d.Name)),
		Help:        d.Help,
		Placeholder: d.Placeholder,
	}
	for {
		var response string
		var err error
		if secret {
			response, err = r.driver.Password(ctx, cfg)
		} else {
			response, err = r.driver.Input(ctx, cfg)
		}
		if err != nil {
			return err
		}
		if err := sess.Set(d.Name, response); err != nil {
			return err
		}
		if msg := sess.FieldError(d.Name); msg != "" {
			r.info(ctx, fmt.Sprintf("Invalid %s: %s", d.DisplayLabel(), msg))
			continue
		}
		return nil
	}
}

func (r *Runner) promptTextArea(ctx context.Context, sess *session.Session, d field.Descriptor) error {
	for {
		response, err := r.driver.TextArea(ctx, TextAreaConfig{
			Message: d.DisplayLabel(),
			Default: field.Stringify(sess.Value(d.Name)),
			Help:    d.Help,
		})
		if err != nil {
			return err
		}
		if err := sess.Set(d.Name, response); err != nil {
			return err
		}
		if msg := sess.FieldError(d.Name); msg != "" {
			r.info(ctx, fmt.Sprintf("Invalid %s: %s", d.DisplayLabel(), msg))
			continue
		}
		return nil
	}
}

func (r *Runner) promptBoolean(ctx context.Context, sess *session.Session, d field.Descriptor) error {
	current, _ := sess.Value(d.Name).(bool)
	for {
		response, err := r.driver.Confirm(ctx, ConfirmConfig{
			Message: d.DisplayLabel(),
			Default: current,
			Help:    d.Help,
		})
		if err != nil {
			return err
		}
		if err := sess.Set(d.Name, response); err != nil {
			return err
		}
		if msg := sess.FieldError(d.Name); msg != "" {
			r.info(ctx, fmt.Sprintf("Invalid %s: %s", d.DisplayLabel(), msg))
			continue
		}
		return nil
	}
}

func (r *Runner) promptChoice(ctx context.Context, sess *session.Session, d field.Descriptor) error {
	labels := make([]string, 0, len(d.Options)+1)
	for _, opt := range d.Options {
		labels = append(labels, opt.Label)
	}
	if !d.Required {
		labels = append(labels, rowSkip)
	}

	current := field.Stringify(sess.Value(d.Name))
	defaultIndex := 0
	for i, opt := range d.Options {
		if opt.Value == current && current != "" {
			defaultIndex = i
			break
		}
	}

	for {
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      d.DisplayLabel(),
			Options:      labels,
			DefaultIndex: defaultIndex,
			Help:         d.Help,
			PageSize:     r.selectPageSize,
		})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(d.Options) {
			return nil // skip row
		}
		if err := sess.Set(d.Name, d.Options[idx].Value); err != nil {
			return err
		}
		if msg := sess.FieldError(d.Name); msg != "" {
			r.info(ctx, fmt.Sprintf("Invalid %s: %s", d.DisplayLabel(), msg))
			continue
		}
		return nil
	}
}

func (r *Runner) promptMultiChoice(ctx context.Context, sess *session.Session, d field.Descriptor) error {
	labels := make([]string, 0, len(d.Options))
	valueIndex := make(map[string]int, len(d.Options))
	for i, opt := range d.Options {
		labels = append(labels, opt.Label)
		valueIndex[opt.Value] = i
	}

	var defaults []int
	if current, ok := sess.Value(d.Name).([]string); ok {
		for _, value := range current {
			if idx, found := valueIndex[value]; found {
				defaults = append(defaults, idx)
			}
		}
	}

	for {
		indices, err := r.driver.MultiSelect(ctx, SelectConfig{
			Message:  d.DisplayLabel(),
			Options:  labels,
			Defaults: defaults,
			Help:     d.Help,
			PageSize: r.selectPageSize,
		})
		if err != nil {
			return err
		}
		values := make([]string, 0, len(indices))
		for _, idx := range indices {
			if idx >= 0 && idx < len(d.Options) {
				values = append(values, d.Options[idx].Value)
			}
		}
		if err := sess.Set(d.Name, values); err != nil {
			return err
		}
		if msg := sess.FieldError(d.Name); msg != "" {
			r.info(ctx, fmt.Sprintf("Invalid %s: %s", d.DisplayLabel(), msg))
			continue
		}
		return nil
	}
}

func (r *Runner) promptReference(ctx context.Context, sess *session.Session, d field.Descriptor) error {
	sel, ok := sess.Selector(d.Name)
	if !ok {
		return r.promptText(ctx, sess, d, false)
	}

	current := field.Stringify(sess.Value(d.Name))
	currentLabel := ""
	if current != "" {
		currentLabel = sel.EnsureLabel(ctx, current)
	}

	state, err := r.openSelector(ctx, sel)
	if err != nil {
		return err
	}

	for {
		if state.Err != nil {
			r.info(ctx, fmt.Sprintf("Lookup failed: %v. Showing what loaded.", state.Err))
		}

		rows := make([]string, 0, len(state.Options)+3)
		for _, opt := range state.Options {
			rows = append(rows, opt.Label)
		}
		if !state.Exhausted && state.Err == nil {
			rows = append(rows, rowLoadMore)
		}
		rows = append(rows, rowSearch)
		if current != "" {
			rows = append(rows, rowKeep+" "+currentLabel)
		} else if !d.Required {
			rows = append(rows, rowSkip)
		}

		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:  d.DisplayLabel(),
			Options:  rows,
			Help:     d.Help,
			PageSize: r.selectPageSize,
		})
		if err != nil {
			return err
		}

		switch {
		case idx >= 0 && idx < len(state.Options):
			if err := sess.SelectOption(d.Name, state.Options[idx]); err != nil {
				return err
			}
			if msg := sess.FieldError(d.Name); msg != "" {
				r.info(ctx, fmt.Sprintf("Invalid %s: %s", d.DisplayLabel(), msg))
				continue
			}
			return nil
		case idx >= 0 && idx < len(rows) && rows[idx] == rowLoadMore:
			sel.LoadMore()
			state, err = r.awaitIdle(ctx, sel, state.Version)
			if err != nil {
				return err
			}
		case idx >= 0 && idx < len(rows) && rows[idx] == rowSearch:
			term, err := r.driver.Input(ctx, InputConfig{Message: "Search " + d.DisplayLabel()})
			if err != nil {
				return err
			}
			state, err = r.searchSelector(ctx, sel, term)
			if err != nil {
				return err
			}
		default:
			// keep current or skip
			return nil
		}
	}
}

func (r *Runner) promptAttachment(ctx context.Context, sess *session.Session, d field.Descriptor) error {
	ctrl, ok := sess.Attachment(d.Name)
	if !ok {
		return nil
	}

	snap := ctrl.Snapshot()
	currentHint := "none"
	switch {
	case snap.File != nil:
		currentHint = snap.File.Name
	case snap.Original != nil:
		currentHint = snap.Original.Name
	}

	cfg := InputConfig{
		Message: fmt.Sprintf("%s [current: %s] (path, empty to keep, '-' to remove)", d.DisplayLabel(), currentHint),
		Help:    d.Help,
	}
	for {
		response, err := r.driver.Input(ctx, cfg)
		if err != nil {
			return err
		}
		response = strings.TrimSpace(response)

		switch response {
		case "":
			return nil
		case "-":
			if err := sess.RemoveAttachment(d.Name); err != nil {
				r.info(ctx, fmt.Sprintf("Cannot remove %s: %v", d.DisplayLabel(), err))
				continue
			}
			if msg := sess.FieldError(d.Name); msg != "" {
				r.info(ctx, fmt.Sprintf("Invalid %s: %s", d.DisplayLabel(), msg))
				continue
			}
			return nil
		default:
			file, err := r.openFile(response)
			if err != nil {
				r.info(ctx, fmt.Sprintf("Cannot read file: %v", err))
				continue
			}
			if err := sess.Attach(d.Name, file); err != nil {
				if msg := sess.FieldError(d.Name); msg != "" {
					r.info(ctx, fmt.Sprintf("Rejected %s: %s", d.DisplayLabel(), msg))
				} else {
					r.info(ctx, fmt.Sprintf("Rejected %s: %v", d.DisplayLabel(), err))
				}
				continue
			}
			return nil
		}
	}
}

func (r *Runner) submitLoop(ctx context.Context, sess *session.Session, names []string) error {
	for {
		confirmed, err := r.driver.Confirm(ctx, ConfirmConfig{Message: "Submit?", Default: true})
		if err != nil {
			return err
		}
		if !confirmed {
			return ErrCancelled
		}

		err = sess.Submit(ctx)
		if err == nil {
			r.info(ctx, "Saved.")
			return nil
		}

		if errors.Is(err, session.ErrValidation) {
			failed := sess.Errors()
			for _, name := range names {
				msg, bad := failed[name]
				if !bad {
					continue
				}
				d, ok := sess.Descriptor(name)
				if !ok {
					continue
				}
				r.info(ctx, fmt.Sprintf("Invalid %s: %s", d.DisplayLabel(), msg))
				if err := r.promptField(ctx, sess, d); err != nil {
					return err
				}
			}
			continue
		}

		banner := sess.FormError()
		if banner == "" {
			banner = err.Error()
		}
		r.info(ctx, "Submit failed: "+banner)
		retry, cerr := r.driver.Confirm(ctx, ConfirmConfig{Message: "Try again?", Default: true})
		if cerr != nil {
			return cerr
		}
		if !retry {
			return err
		}
	}
}

// openSelector triggers the first page fetch and waits for it to settle.
func (r *Runner) openSelector(ctx context.Context, sel *selector.Selector) (selector.State, error) {
	before := sel.Snapshot()
	target := before.Version
	if before.Version == 0 || before.Err != nil {
		target++
	}
	sel.Open()
	return r.awaitIdle(ctx, sel, target)
}

// searchSelector commits a search term and waits for its page. The selector
// debounces internally, so the wait covers quiet interval plus fetch.
func (r *Runner) searchSelector(ctx context.Context, sel *selector.Selector, term string) (selector.State, error) {
	before := sel.Snapshot()
	target := before.Version
	if strings.TrimSpace(term) != before.Search || before.Err != nil || before.Version == 0 {
		target++
	}
	sel.SetSearch(term)
	return r.awaitIdle(ctx, sel, target)
}

// awaitIdle polls until the selector reached at least minVersion with no
// fetch in flight. Console flow is synchronous per prompt, so polling a
// snapshot is enough; there is no competing input to coalesce.
func (r *Runner) awaitIdle(ctx context.Context, sel *selector.Selector, minVersion uint64) (selector.State, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		state := sel.Snapshot()
		if state.Version >= minVersion && !state.Loading {
			return state, nil
		}
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Runner) info(ctx context.Context, msg string) {
	_ = r.driver.Info(ctx, msg)
}
