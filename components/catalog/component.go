// Package catalog serves named reference datasets (brands, categories,
// countries) over HTTP in the envelope the form engine's paginated selectors
// consume: substring search with prefix-first ranking, stable pagination, and
// a {data, meta} JSON body.
package catalog

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/goliatone/go-formflow/pkg/options"
)

// Dataset is one named reference collection.
type Dataset struct {
	Name  string
	Items []options.Option
}

// Component groups datasets behind a shared configuration and routing
// helpers.
type Component struct {
	opts     Options
	datasets map[string]Dataset
}

// New constructs a component with default options plus any overrides.
func New(fns ...OptionFn) *Component {
	opts := NewOptions(fns...)
	return &Component{
		opts:     opts,
		datasets: make(map[string]Dataset),
	}
}

// Options returns a copy of the component configuration.
func (c *Component) Options() Options {
	if c == nil {
		return DefaultOptions()
	}
	return NewOptions(func(o *Options) { *o = c.opts })
}

// Add registers a dataset. Items are copied so later caller mutations do not
// leak into served responses. Re-adding a name replaces the dataset.
func (c *Component) Add(ds Dataset) error {
	if c == nil {
		return fmt.Errorf("catalog: nil component")
	}
	if ds.Name == "" {
		return fmt.Errorf("catalog: dataset name is required")
	}
	ds.Items = append([]options.Option{}, ds.Items...)
	c.datasets[ds.Name] = ds
	return nil
}

// Dataset looks up a registered dataset by name.
func (c *Component) Dataset(name string) (Dataset, bool) {
	if c == nil {
		return Dataset{}, false
	}
	ds, ok := c.datasets[name]
	return ds, ok
}

// Names lists registered dataset names in sorted order.
func (c *Component) Names() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.datasets))
	for name := range c.datasets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Handler returns a net/http handler for one dataset.
func (c *Component) Handler(name string) (http.Handler, error) {
	ds, ok := c.Dataset(name)
	if !ok {
		return nil, fmt.Errorf("catalog: unknown dataset %q", name)
	}
	return HandlerWithOptions(ds, c.opts), nil
}

// Source exposes a dataset as an in-process option source, so sessions can
// consume catalog data without the HTTP round trip.
func (c *Component) Source(name string) (options.Source, error) {
	ds, ok := c.Dataset(name)
	if !ok {
		return nil, fmt.Errorf("catalog: unknown dataset %q", name)
	}
	return options.NewStaticSource(ds.Items), nil
}
