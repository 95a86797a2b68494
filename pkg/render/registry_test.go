package render_test

import (
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-formflow/pkg/render"
)

type stubRenderer struct {
	name string
}

func (s stubRenderer) Name() string        { return s.name }
func (s stubRenderer) ContentType() string { return "text/plain" }

func (s stubRenderer) Render(_ context.Context, form render.Form, _ render.RenderOptions) ([]byte, error) {
	return []byte(s.name + ":" + form.Name), nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	registry := render.NewRegistry()

	if err := registry.Register(stubRenderer{name: "html"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register(stubRenderer{name: "html"}); err == nil {
		t.Fatal("expected duplicate registration to fail")
	} else if !strings.Contains(err.Error(), "already registered") {
		t.Fatalf("unexpected duplicate error: %v", err)
	}

	renderer, err := registry.Get("html")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if renderer.Name() != "html" {
		t.Fatalf("unexpected renderer %q", renderer.Name())
	}

	if _, err := registry.Get("missing"); err == nil {
		t.Fatal("expected missing renderer error")
	}
}

func TestRegistryRejectsInvalidRenderers(t *testing.T) {
	registry := render.NewRegistry()

	if err := registry.Register(nil); err == nil {
		t.Fatal("expected nil renderer to be rejected")
	}
	if err := registry.Register(stubRenderer{}); err == nil {
		t.Fatal("expected unnamed renderer to be rejected")
	}
}

func TestRegistryListAndHas(t *testing.T) {
	registry := render.NewRegistry()
	registry.MustRegister(stubRenderer{name: "text"})
	registry.MustRegister(stubRenderer{name: "html"})

	names := registry.List()
	if len(names) != 2 || names[0] != "html" || names[1] != "text" {
		t.Fatalf("expected sorted names, got %v", names)
	}
	if !registry.Has("text") {
		t.Fatal("expected Has to report registered renderer")
	}
	if registry.Has("preact") {
		t.Fatal("expected Has to report missing renderer")
	}
}

func TestRegistryDefaultTracksFirstRegistration(t *testing.T) {
	registry := render.NewRegistry()

	if _, err := registry.Resolve(""); err == nil {
		t.Fatal("expected empty registry to refuse default resolution")
	}

	registry.MustRegister(stubRenderer{name: "html"})
	registry.MustRegister(stubRenderer{name: "text"})

	if got := registry.DefaultName(); got != "html" {
		t.Fatalf("expected first registration as default, got %q", got)
	}
	renderer, err := registry.Resolve("")
	if err != nil {
		t.Fatalf("resolve default: %v", err)
	}
	if renderer.Name() != "html" {
		t.Fatalf("expected default renderer html, got %q", renderer.Name())
	}

	if err := registry.SetDefault("text"); err != nil {
		t.Fatalf("set default: %v", err)
	}
	if renderer = registry.MustGet("text"); renderer.Name() != "text" {
		t.Fatalf("unexpected renderer %q", renderer.Name())
	}
	if renderer, err = registry.Resolve(""); err != nil || renderer.Name() != "text" {
		t.Fatalf("expected repointed default text, got %v %v", renderer, err)
	}

	if err := registry.SetDefault("preact"); err == nil {
		t.Fatal("expected SetDefault to reject unknown renderer")
	}
	if _, err := registry.Get(""); err == nil {
		t.Fatal("expected Get to require an exact name")
	}
}

func TestRegistryMustGetPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected MustGet to panic for missing renderer")
		}
	}()
	render.NewRegistry().MustGet("missing")
}
