package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/goliatone/go-formflow/pkg/options"
)

// HTTPError lets guard errors carry their own response status.
type HTTPError interface {
	error
	StatusCode() int
}

// StatusError wraps an error with an HTTP status code.
type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

type pageMeta struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

type pageResponse struct {
	Data []options.Option `json:"data"`
	Meta pageMeta         `json:"meta"`
}

// Handler builds a net/http handler serving one dataset with default options
// plus any overrides.
func Handler(ds Dataset, fns ...OptionFn) http.Handler {
	return HandlerWithOptions(ds, NewOptions(fns...))
}

// HandlerWithOptions builds a handler from a pre-constructed Options value.
// Defaults and clamps are re-applied so a hand-built Options cannot disable
// the page-size cap.
func HandlerWithOptions(ds Dataset, opts Options) http.Handler {
	opts = NewOptions(func(o *Options) { *o = opts })
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r == nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", http.MethodGet+", "+http.MethodHead)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		if opts.Guard != nil {
			if err := opts.Guard(r); err != nil {
				writeGuardError(w, err)
				return
			}
		}

		query := r.URL.Query().Get(opts.SearchParam)
		page := parseInt(r.URL.Query().Get(opts.PageParam), 1)
		pageSize := clampPageSize(parseInt(r.URL.Query().Get(opts.PageSizeParam), opts.DefaultPageSize), opts)

		ranked := Search(ds.Items, query)
		results := Paginate(ranked, page, pageSize)

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}

		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(true)
		_ = enc.Encode(pageResponse{
			Data: results,
			Meta: pageMeta{Total: len(ranked), Page: page, PageSize: pageSize},
		})
	})
}

func writeGuardError(w http.ResponseWriter, err error) {
	if w == nil {
		return
	}
	code := http.StatusForbidden
	var httpErr HTTPError
	if errors.As(err, &httpErr) && httpErr != nil {
		if status := httpErr.StatusCode(); status > 0 {
			code = status
		}
	}
	http.Error(w, http.StatusText(code), code)
}

func clampPageSize(size int, opts Options) int {
	if size <= 0 {
		return opts.DefaultPageSize
	}
	if size > opts.MaxPageSize {
		return opts.MaxPageSize
	}
	return size
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
