package catalog

import "net/http"

// GuardFunc can reject a request before the dataset is consulted. Returning
// an error that implements HTTPError controls the response status.
type GuardFunc func(r *http.Request) error

type Options struct {
	BasePath        string
	SearchParam     string
	PageParam       string
	PageSizeParam   string
	DefaultPageSize int
	MaxPageSize     int
	Guard           GuardFunc
}

type OptionFn func(*Options)

func DefaultOptions() Options {
	return Options{
		BasePath:        "/api/catalog",
		SearchParam:     "search",
		PageParam:       "page",
		PageSizeParam:   "pageSize",
		DefaultPageSize: 20,
		MaxPageSize:     100,
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
	if opts.BasePath == "" {
		opts.BasePath = "/api/catalog"
	}
	if opts.SearchParam == "" {
		opts.SearchParam = "search"
	}
	if opts.PageParam == "" {
		opts.PageParam = "page"
	}
	if opts.PageSizeParam == "" {
		opts.PageSizeParam = "pageSize"
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 20
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = 100
	}
	if opts.DefaultPageSize > opts.MaxPageSize {
		opts.DefaultPageSize = opts.MaxPageSize
	}
	return opts
}

func WithBasePath(path string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.BasePath = path
	}
}

func WithSearchParam(name string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.SearchParam = name
	}
}

func WithPageParams(pageParam, pageSizeParam string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.PageParam = pageParam
		o.PageSizeParam = pageSizeParam
	}
}

func WithDefaultPageSize(size int) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.DefaultPageSize = size
	}
}

func WithMaxPageSize(size int) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.MaxPageSize = size
	}
}

func WithGuard(guard GuardFunc) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Guard = guard
	}
}
