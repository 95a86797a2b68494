package attachment

// DefaultMaxSize caps attachments when a field declares no limit.
const DefaultMaxSize int64 = 5 << 20

type Options struct {
	MaxSize  int64
	Accept   []string
	ReadOnly bool
	Original *Stored
	Previews *PreviewStore
}

type OptionFn func(*Options)

func DefaultOptions() Options {
	return Options{MaxSize: DefaultMaxSize}
}

func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.Accept != nil {
		opts.Accept = append([]string{}, opts.Accept...)
	}
	return opts
}

func WithMaxSize(limit int64) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.MaxSize = limit
	}
}

// WithAccept restricts attachable content. Entries may be exact MIME types
// ("image/png"), wildcards ("image/*"), or filename extensions (".pdf").
func WithAccept(accept []string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		if accept == nil {
			o.Accept = nil
			return
		}
		o.Accept = append([]string{}, accept...)
	}
}

func WithReadOnly(readOnly bool) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.ReadOnly = readOnly
	}
}

// WithOriginal seeds the controller with the attachment already stored on
// the record, which is what edit sessions start from.
func WithOriginal(stored Stored) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		copied := stored
		o.Original = &copied
	}
}

func WithPreviewStore(store *PreviewStore) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Previews = store
	}
}
