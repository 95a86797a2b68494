package catalog

import (
	"fmt"
	"net/http"
	"strings"
)

// Mux is the minimal interface required to register a net/http handler.
// It is satisfied by *http.ServeMux and chi routers.
type Mux interface {
	Handle(pattern string, handler http.Handler)
}

// MountPath returns the full mount path for one dataset under the component
// base path.
func (c *Component) MountPath(dataset string) string {
	return mountPath(c.Options().BasePath, dataset)
}

// RegisterRoutes mounts every registered dataset under the base path, one
// route per dataset, and returns the mounted patterns in sorted order.
func (c *Component) RegisterRoutes(mux Mux) ([]string, error) {
	if c == nil {
		return nil, fmt.Errorf("catalog: nil component")
	}
	if mux == nil {
		return nil, fmt.Errorf("catalog: missing mux")
	}

	patterns := make([]string, 0, len(c.datasets))
	for _, name := range c.Names() {
		handler, err := c.Handler(name)
		if err != nil {
			return nil, err
		}
		pattern := mountPath(c.opts.BasePath, name)
		mux.Handle(pattern, handler)
		patterns = append(patterns, pattern)
	}
	return patterns, nil
}

func mountPath(basePath, dataset string) string {
	basePath = strings.TrimSpace(basePath)
	dataset = strings.Trim(strings.TrimSpace(dataset), "/")

	if basePath == "" || basePath == "/" {
		return "/" + dataset
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	return strings.TrimRight(basePath, "/") + "/" + dataset
}
