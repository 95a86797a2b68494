package selector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formflow/pkg/options"
)

// recordingSource counts fetches and remembers the queries it served.
type recordingSource struct {
	mu      sync.Mutex
	calls   int32
	queries []options.Query
	serve   func(q options.Query) (options.Page, error)
}

func (r *recordingSource) FetchPage(ctx context.Context, q options.Query) (options.Page, error) {
	atomic.AddInt32(&r.calls, 1)
	r.mu.Lock()
	r.queries = append(r.queries, q)
	r.mu.Unlock()
	return r.serve(q)
}

func (r *recordingSource) count() int32 { return atomic.LoadInt32(&r.calls) }

func (r *recordingSource) lastQuery() options.Query {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queries) == 0 {
		return options.Query{}
	}
	return r.queries[len(r.queries)-1]
}

func settled(s *Selector) func() bool {
	return func() bool { return !s.Snapshot().Loading }
}

func TestSearchDebounceCollapsesKeystrokes(t *testing.T) {
	src := &recordingSource{serve: func(q options.Query) (options.Page, error) {
		return options.Page{
			Options: []options.Option{{Value: "1", Label: q.Search}},
			Total:   1,
		}, nil
	}}
	sel, err := New(src, WithDebounce(30*time.Millisecond), WithPageSize(5))
	require.NoError(t, err)
	defer sel.Close()

	sel.SetSearch("a")
	sel.SetSearch("ab")
	sel.SetSearch("abc")

	require.Eventually(t, func() bool {
		return src.count() == 1 && !sel.Snapshot().Loading
	}, time.Second, 5*time.Millisecond)

	st := sel.Snapshot()
	require.Equal(t, "abc", st.Search)
	require.Equal(t, "abc", src.lastQuery().Search)

	// No trailing fetch once the debounce window has long passed.
	time.Sleep(80 * time.Millisecond)
	require.EqualValues(t, 1, src.count())
}

func TestOpenLoadsFirstPageOnce(t *testing.T) {
	src := &recordingSource{serve: func(q options.Query) (options.Page, error) {
		return options.Page{
			Options: []options.Option{{Value: "1", Label: "One"}, {Value: "2", Label: "Two"}},
			Total:   2,
		}, nil
	}}
	sel, err := New(src, WithDebounce(0), WithPageSize(2))
	require.NoError(t, err)
	defer sel.Close()

	sel.Open()
	require.Eventually(t, settled(sel), time.Second, 5*time.Millisecond)
	require.EqualValues(t, 1, src.count())
	require.Len(t, sel.Snapshot().Options, 2)

	// Reopening with options loaded must not refetch.
	sel.Open()
	time.Sleep(20 * time.Millisecond)
	require.EqualValues(t, 1, src.count())
}

func TestLoadMoreStopsWhenExhausted(t *testing.T) {
	dataset := []options.Option{
		{Value: "1", Label: "One"},
		{Value: "2", Label: "Two"},
		{Value: "3", Label: "Three"},
	}
	src := &recordingSource{serve: func(q options.Query) (options.Page, error) {
		start := (q.Page - 1) * q.PageSize
		if start >= len(dataset) {
			return options.Page{Total: len(dataset)}, nil
		}
		end := start + q.PageSize
		if end > len(dataset) {
			end = len(dataset)
		}
		return options.Page{Options: dataset[start:end], Total: len(dataset)}, nil
	}}

	sel, err := New(src, WithDebounce(0), WithPageSize(2))
	require.NoError(t, err)
	defer sel.Close()

	sel.Open()
	require.Eventually(t, settled(sel), time.Second, 5*time.Millisecond)
	st := sel.Snapshot()
	require.Len(t, st.Options, 2)
	require.False(t, st.Exhausted)

	sel.LoadMore()
	require.Eventually(t, func() bool {
		snap := sel.Snapshot()
		return !snap.Loading && len(snap.Options) == 3
	}, time.Second, 5*time.Millisecond)
	st = sel.Snapshot()
	require.True(t, st.Exhausted, "short page must mark the dataset exhausted")
	require.Equal(t, 2, st.Page)

	// Further scrolls are ignored.
	sel.LoadMore()
	time.Sleep(20 * time.Millisecond)
	require.EqualValues(t, 2, src.count())
}

func TestStaleResponsesAreDiscarded(t *testing.T) {
	release := make(chan struct{})
	src := &recordingSource{serve: func(q options.Query) (options.Page, error) {
		if q.Search == "slow" {
			<-release
			return options.Page{Options: []options.Option{{Value: "s", Label: "Slow"}}, Total: 1}, nil
		}
		return options.Page{Options: []options.Option{{Value: "f", Label: "Fast"}}, Total: 1}, nil
	}}

	sel, err := New(src, WithDebounce(0), WithPageSize(5))
	require.NoError(t, err)
	defer sel.Close()

	var once sync.Once
	releaseSlow := func() { once.Do(func() { close(release) }) }
	defer releaseSlow()

	sel.SetSearch("slow")
	require.Eventually(t, func() bool { return src.count() == 1 }, time.Second, time.Millisecond)
	sel.SetSearch("fast")
	require.Eventually(t, func() bool {
		snap := sel.Snapshot()
		return !snap.Loading && len(snap.Options) == 1
	}, time.Second, 5*time.Millisecond)

	releaseSlow()
	time.Sleep(30 * time.Millisecond)

	st := sel.Snapshot()
	require.Equal(t, "fast", st.Search)
	require.Len(t, st.Options, 1)
	require.Equal(t, "f", st.Options[0].Value, "slow response must not replace newer results")
}

func TestFetchErrorIsFailSoft(t *testing.T) {
	fail := errors.New("boom")
	var healthy atomic.Bool
	src := &recordingSource{serve: func(q options.Query) (options.Page, error) {
		if !healthy.Load() {
			return options.Page{}, fail
		}
		return options.Page{Options: []options.Option{{Value: "1", Label: "One"}}, Total: 1}, nil
	}}

	sel, err := New(src, WithDebounce(0), WithPageSize(5))
	require.NoError(t, err)
	defer sel.Close()

	sel.Open()
	require.Eventually(t, func() bool {
		snap := sel.Snapshot()
		return !snap.Loading && snap.Err != nil
	}, time.Second, 5*time.Millisecond)
	require.Empty(t, sel.Snapshot().Options)

	// Retyping the same term retries after a failure.
	healthy.Store(true)
	sel.SetSearch("")
	require.Eventually(t, func() bool {
		snap := sel.Snapshot()
		return !snap.Loading && snap.Err == nil && len(snap.Options) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSelectAndClear(t *testing.T) {
	src := &recordingSource{serve: func(q options.Query) (options.Page, error) {
		return options.Page{}, nil
	}}
	sel, err := New(src)
	require.NoError(t, err)
	defer sel.Close()

	sel.Select("42", "Answer")
	require.Equal(t, "42", sel.Value())
	require.Equal(t, "Answer", sel.Label())

	sel.Clear()
	require.Empty(t, sel.Value())
	require.Empty(t, sel.Label())
}

func TestEnsureLabelResolution(t *testing.T) {
	src := &recordingSource{serve: func(q options.Query) (options.Page, error) {
		return options.Page{Options: []options.Option{
			{Value: "1", Label: "One"},
			{Value: "2", Label: "Two"},
		}, Total: 2}, nil
	}}
	sel, err := New(src, WithDebounce(0))
	require.NoError(t, err)
	defer sel.Close()

	// Nothing loaded: one synchronous fetch resolves and caches labels.
	require.Equal(t, "Two", sel.EnsureLabel(context.Background(), "2"))
	require.EqualValues(t, 1, src.count())

	// Cached labels answer without another fetch.
	require.Equal(t, "One", sel.EnsureLabel(context.Background(), "1"))
	require.EqualValues(t, 1, src.count())

	// Unknown values fall back to the raw id.
	require.Equal(t, "ghost", sel.EnsureLabel(context.Background(), "ghost"))
}

func TestOnChangeObservesTransitions(t *testing.T) {
	src := &recordingSource{serve: func(q options.Query) (options.Page, error) {
		return options.Page{Options: []options.Option{{Value: "1", Label: "One"}}, Total: 1}, nil
	}}

	var mu sync.Mutex
	var seen []string
	record := func(st State) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, fmt.Sprintf("loading=%v options=%d", st.Loading, len(st.Options)))
	}

	sel, err := New(src, WithDebounce(0), WithOnChange(record))
	require.NoError(t, err)
	defer sel.Close()

	sel.Open()
	require.Eventually(t, settled(sel), time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(seen), 2)
	require.Equal(t, "loading=true options=0", seen[0])
	require.Equal(t, "loading=false options=1", seen[len(seen)-1])
}

func TestCloseStopsPendingWork(t *testing.T) {
	src := &recordingSource{serve: func(q options.Query) (options.Page, error) {
		return options.Page{}, nil
	}}
	sel, err := New(src, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)

	sel.SetSearch("abandoned")
	sel.Close()

	time.Sleep(80 * time.Millisecond)
	require.EqualValues(t, 0, src.count(), "debounced fetch must not fire after Close")

	// Calls after Close are ignored rather than panicking.
	sel.SetSearch("more")
	sel.LoadMore()
	sel.Close()
}
