// Package selector drives the option-browsing state behind a paginated
// reference field: debounced server-side search, page-at-a-time loading, and
// last-write-wins staleness handling so slow responses never clobber newer
// input. Renderers stay passive; they feed keystrokes and scroll events in
// and repaint from immutable snapshots.
package selector

import (
	"context"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/goliatone/go-formflow/pkg/options"
)

// State is an immutable snapshot of the selector. Options must not be
// mutated by consumers; the slice is copied per snapshot.
type State struct {
	Search    string
	Options   []options.Option
	Page      int
	PageSize  int
	Total     int
	Loading   bool
	Exhausted bool
	Err       error
	Value     string
	Label     string
	Version   uint64
}

// Selector manages one paginated reference field. All methods are safe for
// concurrent use; OnChange callbacks run outside the internal lock and may
// arrive from fetch goroutines.
type Selector struct {
	source   options.Source
	pageSize int
	debounce time.Duration
	filters  map[string]string
	onChange ChangeFunc
	labels   *lru.Cache[string, string]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	timer     *time.Timer
	pending   string
	search    string
	opts      []options.Option
	loaded    bool
	page      int
	total     int
	loading   bool
	exhausted bool
	err       error
	value     string
	label     string
	version   uint64
	closed    bool
}

// New builds a selector over a source. The selector issues no fetch until
// Open or a committed search.
func New(source options.Source, fns ...OptionFn) (*Selector, error) {
	opts := NewOptions(fns...)
	labels, err := lru.New[string, string](opts.LabelCacheSize)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(opts.Context)
	return &Selector{
		source:   source,
		pageSize: opts.PageSize,
		debounce: opts.Debounce,
		filters:  opts.Filters,
		onChange: opts.OnChange,
		labels:   labels,
		ctx:      ctx,
		cancel:   cancel,
		total:    -1,
	}, nil
}

// Open fetches the first page if nothing is loaded yet. Reopening a selector
// that already holds options is a no-op, so dropdown toggling stays cheap.
func (s *Selector) Open() {
	s.mu.Lock()
	if s.closed || s.loading || (s.loaded && s.err == nil) {
		s.mu.Unlock()
		return
	}
	term := s.search
	s.pending = term
	s.mu.Unlock()
	s.commit(term)
}

// SetSearch records a keystroke and schedules a fetch after the debounce
// interval. Rapid successive calls collapse into a single fetch for the
// final term.
func (s *Selector) SetSearch(term string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending = term
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.debounce == 0 {
		s.mu.Unlock()
		s.commit(term)
		return
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		stale := s.closed || term != s.pending
		s.mu.Unlock()
		if stale {
			return
		}
		s.commit(term)
	})
	s.mu.Unlock()
}

// commit resets paging state for a term and issues the first page fetch.
// Committing the currently loaded term is a no-op unless the last fetch
// failed, which lets retyping act as a retry.
func (s *Selector) commit(term string) {
	term = strings.TrimSpace(term)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if term == s.search && s.loaded && s.err == nil {
		s.mu.Unlock()
		return
	}
	s.version++
	version := s.version
	s.search = term
	s.opts = nil
	s.loaded = false
	s.page = 0
	s.total = -1
	s.exhausted = false
	s.err = nil
	s.loading = true
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
	s.fetch(version, term, 1)
}

// LoadMore requests the next page. It is a no-op while a fetch is in flight
// or once the dataset is exhausted; after a failed fetch it retries the page
// that failed.
func (s *Selector) LoadMore() {
	s.mu.Lock()
	if s.closed || s.loading || s.exhausted || s.version == 0 {
		s.mu.Unlock()
		return
	}
	s.loading = true
	version, term, page := s.version, s.search, s.page+1
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
	s.fetch(version, term, page)
}

func (s *Selector) fetch(version uint64, term string, page int) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		result, err := s.source.FetchPage(s.ctx, options.Query{
			Search:   term,
			Page:     page,
			PageSize: s.pageSize,
			Filters:  s.filters,
		})

		s.mu.Lock()
		if s.closed || version != s.version {
			s.mu.Unlock()
			return
		}
		s.loading = false
		if err != nil {
			s.err = err
		} else {
			s.err = nil
			s.loaded = true
			s.opts = append(s.opts, result.Options...)
			s.page = page
			s.total = result.Total
			s.exhausted = len(result.Options) < s.pageSize ||
				(result.Total >= 0 && len(s.opts) >= result.Total)
			for _, opt := range result.Options {
				s.labels.Add(opt.Value, opt.Label)
			}
		}
		snapshot := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snapshot)
	}()
}

// Select records the chosen option and caches its label for later edit
// sessions.
func (s *Selector) Select(value, label string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.value = value
	s.label = label
	if value != "" && label != "" {
		s.labels.Add(value, label)
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snapshot)
}

// Clear drops the current selection but keeps loaded options.
func (s *Selector) Clear() {
	s.Select("", "")
}

// Value returns the selected option value, empty when nothing is selected.
func (s *Selector) Value() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Label returns the display label for the current selection.
func (s *Selector) Label() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.label
}

// CachedLabel resolves a label from loaded options or the cache without
// fetching.
func (s *Selector) CachedLabel(value string) (string, bool) {
	if value == "" {
		return "", false
	}
	s.mu.Lock()
	for _, opt := range s.opts {
		if opt.Value == value {
			s.mu.Unlock()
			return opt.Label, true
		}
	}
	s.mu.Unlock()
	return s.labels.Get(value)
}

// EnsureLabel resolves the display label for a stored value, used when an
// edit session starts with an id whose label was never loaded. Resolution
// order: loaded options, the label cache, then one first-page fetch. The raw
// value is returned when nothing resolves, so the UI still shows something.
func (s *Selector) EnsureLabel(ctx context.Context, value string) string {
	if value == "" {
		return ""
	}
	if label, ok := s.CachedLabel(value); ok {
		return label
	}
	s.mu.Lock()
	pageSize := s.pageSize
	filters := s.filters
	s.mu.Unlock()

	result, err := s.source.FetchPage(ctx, options.Query{
		Page:     1,
		PageSize: pageSize,
		Filters:  filters,
	})
	if err != nil {
		return value
	}
	label := value
	for _, opt := range result.Options {
		s.labels.Add(opt.Value, opt.Label)
		if opt.Value == value {
			label = opt.Label
		}
	}
	return label
}

// Snapshot returns a copy of the current state.
func (s *Selector) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Close stops the debounce timer, cancels in-flight fetches, and waits for
// fetch goroutines to drain. The selector ignores calls after Close.
func (s *Selector) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}

func (s *Selector) snapshotLocked() State {
	return State{
		Search:    s.search,
		Options:   append([]options.Option(nil), s.opts...),
		Page:      s.page,
		PageSize:  s.pageSize,
		Total:     s.total,
		Loading:   s.loading,
		Exhausted: s.exhausted,
		Err:       s.err,
		Value:     s.value,
		Label:     s.label,
		Version:   s.version,
	}
}

func (s *Selector) notify(snapshot State) {
	if s.onChange != nil {
		s.onChange(snapshot)
	}
}
