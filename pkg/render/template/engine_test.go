package template_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-formflow/pkg/render/template"
)

func newEngine(t *testing.T, options ...template.Option) *template.Engine {
	t.Helper()

	files := fstest.MapFS{
		"hello.tpl":      {Data: []byte("Hello {{ name }}!")},
		"use-global.tpl": {Data: []byte("env={{ settings.env }}")},
		"escaped.tpl":    {Data: []byte("<p>{{ body }}</p>")},
		"safe.tpl":       {Data: []byte("<p>{{ body|safe }}</p>")},
	}

	engine, err := template.New(append([]template.Option{template.WithFS(files)}, options...)...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestEngineRenderTemplate(t *testing.T) {
	engine := newEngine(t)

	var buf bytes.Buffer
	result, err := engine.RenderTemplate("hello", map[string]any{"name": "Ada"}, &buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}
	if result != "Hello Ada!" {
		t.Fatalf("unexpected result %q", result)
	}
	if buf.String() != result {
		t.Fatalf("writer output %q does not match result %q", buf.String(), result)
	}

	// Second render hits the compiled-template cache.
	again, err := engine.RenderTemplate("hello.tpl", map[string]any{"name": "Grace"})
	if err != nil {
		t.Fatalf("render cached template: %v", err)
	}
	if again != "Hello Grace!" {
		t.Fatalf("unexpected cached result %q", again)
	}
}

func TestEngineRenderString(t *testing.T) {
	engine := newEngine(t)

	result, err := engine.RenderString("{{ greeting|trim }}", map[string]any{"greeting": "  hi  "})
	if err != nil {
		t.Fatalf("render string: %v", err)
	}
	if result != "hi" {
		t.Fatalf("unexpected result %q", result)
	}
}

func TestEngineRenderDispatch(t *testing.T) {
	engine := newEngine(t)

	inline, err := engine.Render("{{ name|lowerfirst }}", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("render inline: %v", err)
	}
	if inline != "ada" {
		t.Fatalf("unexpected inline result %q", inline)
	}

	named, err := engine.Render("hello", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("render named: %v", err)
	}
	if named != "Hello Ada!" {
		t.Fatalf("unexpected named result %q", named)
	}
}

func TestEngineAutoEscapesValues(t *testing.T) {
	engine := newEngine(t)

	escaped, err := engine.RenderTemplate("escaped", map[string]any{"body": "<b>hi</b>"})
	if err != nil {
		t.Fatalf("render escaped: %v", err)
	}
	if !strings.Contains(escaped, "&lt;b&gt;") {
		t.Fatalf("expected escaped markup, got %q", escaped)
	}

	raw, err := engine.RenderTemplate("safe", map[string]any{"body": "<b>hi</b>"})
	if err != nil {
		t.Fatalf("render safe: %v", err)
	}
	if !strings.Contains(raw, "<b>hi</b>") {
		t.Fatalf("expected raw markup through safe filter, got %q", raw)
	}
}

func TestEngineGlobalContext(t *testing.T) {
	engine := newEngine(t)
	if err := engine.GlobalContext(map[string]any{
		"settings": map[string]any{"env": "staging"},
	}); err != nil {
		t.Fatalf("global context: %v", err)
	}

	result, err := engine.RenderTemplate("use-global", nil)
	if err != nil {
		t.Fatalf("render with global: %v", err)
	}
	if result != "env=staging" {
		t.Fatalf("unexpected result %q", result)
	}
}

func TestEngineRegisterFilter(t *testing.T) {
	engine := newEngine(t)
	err := engine.RegisterFilter("shout", func(input any, _ any) (any, error) {
		if input == nil {
			return "", nil
		}
		return fmt.Sprintf("%s!", strings.ToUpper(fmt.Sprint(input))), nil
	})
	if err != nil {
		t.Fatalf("register filter: %v", err)
	}

	result, err := engine.RenderString("{{ name|shout }}", map[string]any{"name": "ada"})
	if err != nil {
		t.Fatalf("render with filter: %v", err)
	}
	if result != "ADA!" {
		t.Fatalf("unexpected result %q", result)
	}

	if err := engine.RegisterFilter("shout", func(input any, _ any) (any, error) {
		return input, nil
	}); err == nil {
		t.Fatal("expected duplicate filter registration to fail")
	}
}

func TestEngineStructDataConverts(t *testing.T) {
	engine := newEngine(t)

	type payload struct {
		Name string `json:"name"`
	}
	result, err := engine.RenderTemplate("hello", payload{Name: "Lin"})
	if err != nil {
		t.Fatalf("render struct data: %v", err)
	}
	if result != "Hello Lin!" {
		t.Fatalf("unexpected result %q", result)
	}
}

func TestEngineRequiresSource(t *testing.T) {
	if _, err := template.New(); err == nil {
		t.Fatal("expected construction without a template source to fail")
	}
}

func TestEngineMissingTemplate(t *testing.T) {
	engine := newEngine(t)
	if _, err := engine.RenderTemplate("absent", nil); err == nil {
		t.Fatal("expected missing template error")
	}
}
