package session

import (
	"context"
	"time"

	"github.com/goliatone/go-formflow/pkg/attachment"
	"github.com/goliatone/go-formflow/pkg/field"
	"github.com/goliatone/go-formflow/pkg/options"
)

const (
	// DefaultSuccessInterval is how long the success status shows before the
	// session returns to ready.
	DefaultSuccessInterval = 2 * time.Second
	// DefaultSuccessMessage feeds the notifier when a submit lands.
	DefaultSuccessMessage = "Saved successfully"
)

// Mode distinguishes create forms from edit forms.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// LoadFunc fetches the record an edit session starts from.
type LoadFunc func(ctx context.Context, id string) (map[string]any, error)

// SubmitFunc persists a create payload and returns the stored record.
type SubmitFunc func(ctx context.Context, payload map[string]any) (map[string]any, error)

// UpdateFunc persists an edit payload and returns the stored record.
type UpdateFunc func(ctx context.Context, id string, payload map[string]any) (map[string]any, error)

// BeforeSubmitFunc inspects or reshapes the payload before it is sent; a
// returned error aborts the submit.
type BeforeSubmitFunc func(ctx context.Context, payload map[string]any) (map[string]any, error)

// SourceFactory resolves the option source for a reference field. The
// default builds an HTTP source from the reference endpoint.
type SourceFactory func(ref field.ReferenceConfig) (options.Source, error)

// Notifier receives the toast-style outcome of a submit.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// NopNotifier drops notifications.
type NopNotifier struct{}

func (NopNotifier) Success(string) {}
func (NopNotifier) Error(string)   {}

// Observer sees a snapshot after every state transition. Callbacks run
// outside the session lock and may arrive from background goroutines.
type Observer func(Snapshot)

type Options struct {
	Mode            Mode
	RecordID        string
	Loader          LoadFunc
	Creator         SubmitFunc
	Updater         UpdateFunc
	BeforeSubmit    BeforeSubmitFunc
	AfterSuccess    func(result map[string]any)
	AfterError      func(err error)
	Notifier        Notifier
	Sources         SourceFactory
	Previews        *attachment.PreviewStore
	SuccessInterval time.Duration
	SuccessMessage  string
	MergePatch      bool
	Observer        Observer
	Context         context.Context
}

type OptionFn func(*Options)

func DefaultOptions() Options {
	return Options{
		Mode:            ModeCreate,
		Notifier:        NopNotifier{},
		Sources:         defaultSourceFactory,
		SuccessInterval: DefaultSuccessInterval,
		SuccessMessage:  DefaultSuccessMessage,
		Context:         context.Background(),
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
	if opts.Mode == "" {
		opts.Mode = ModeCreate
	}
	if opts.Notifier == nil {
		opts.Notifier = NopNotifier{}
	}
	if opts.Sources == nil {
		opts.Sources = defaultSourceFactory
	}
	if opts.SuccessInterval <= 0 {
		opts.SuccessInterval = DefaultSuccessInterval
	}
	if opts.SuccessMessage == "" {
		opts.SuccessMessage = DefaultSuccessMessage
	}
	if opts.Previews == nil {
		opts.Previews = attachment.NewPreviewStore()
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	return opts
}

func defaultSourceFactory(ref field.ReferenceConfig) (options.Source, error) {
	fns := []options.HTTPOption{}
	if ref.LabelKey != "" {
		fns = append(fns, options.WithLabelKey(ref.LabelKey))
	}
	if ref.ValueKey != "" {
		fns = append(fns, options.WithValueKey(ref.ValueKey))
	}
	if ref.Transform != nil {
		fns = append(fns, options.WithTransform(ref.Transform))
	}
	return options.NewHTTPSource(ref.Endpoint, fns...)
}

// WithEdit switches the session to edit mode for one record.
func WithEdit(id string, loader LoadFunc) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Mode = ModeEdit
		o.RecordID = id
		o.Loader = loader
	}
}

func WithCreator(fn SubmitFunc) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Creator = fn
	}
}

func WithUpdater(fn UpdateFunc) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Updater = fn
	}
}

func WithBeforeSubmit(fn BeforeSubmitFunc) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.BeforeSubmit = fn
	}
}

func WithAfterSuccess(fn func(result map[string]any)) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.AfterSuccess = fn
	}
}

func WithAfterError(fn func(err error)) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.AfterError = fn
	}
}

func WithNotifier(n Notifier) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Notifier = n
	}
}

// WithSources overrides how reference fields resolve their option sources,
// which is how static or in-process datasets get wired in.
func WithSources(factory SourceFactory) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Sources = factory
	}
}

func WithPreviewStore(store *attachment.PreviewStore) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Previews = store
	}
}

func WithSuccessInterval(d time.Duration) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.SuccessInterval = d
	}
}

func WithSuccessMessage(message string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.SuccessMessage = message
	}
}

// WithMergePatch makes edit submits send only changed fields as an RFC 7386
// merge patch instead of the full value map.
func WithMergePatch(enabled bool) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.MergePatch = enabled
	}
}

func WithObserver(fn Observer) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Observer = fn
	}
}

func WithContext(ctx context.Context) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Context = ctx
	}
}
