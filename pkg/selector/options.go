package selector

import (
	"context"
	"time"
)

const (
	// DefaultPageSize is the batch size used when a reference declares none.
	DefaultPageSize = 20
	// DefaultDebounce is the quiet period between keystrokes and the fetch.
	DefaultDebounce = 500 * time.Millisecond
	// DefaultLabelCacheSize bounds the resolved-label cache.
	DefaultLabelCacheSize = 256
)

// ChangeFunc observes state snapshots after every selector transition.
type ChangeFunc func(State)

type Options struct {
	PageSize       int
	Debounce       time.Duration
	Filters        map[string]string
	LabelCacheSize int
	OnChange       ChangeFunc
	Context        context.Context
}

type OptionFn func(*Options)

func DefaultOptions() Options {
	return Options{
		PageSize:       DefaultPageSize,
		Debounce:       DefaultDebounce,
		LabelCacheSize: DefaultLabelCacheSize,
		Context:        context.Background(),
	}
}

func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Debounce < 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.LabelCacheSize <= 0 {
		opts.LabelCacheSize = DefaultLabelCacheSize
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Filters != nil {
		copied := make(map[string]string, len(opts.Filters))
		for key, value := range opts.Filters {
			copied[key] = value
		}
		opts.Filters = copied
	}
	return opts
}

func WithPageSize(size int) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.PageSize = size
	}
}

// WithDebounce sets the search quiet period. Zero commits searches
// immediately, which tests rely on for determinism.
func WithDebounce(d time.Duration) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Debounce = d
	}
}

func WithFilters(filters map[string]string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Filters = filters
	}
}

func WithLabelCacheSize(size int) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.LabelCacheSize = size
	}
}

func WithOnChange(fn ChangeFunc) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.OnChange = fn
	}
}

// WithContext sets the base context fetches derive from; Close cancels it.
func WithContext(ctx context.Context) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Context = ctx
	}
}
