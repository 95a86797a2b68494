package formflow

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-formflow/pkg/field"
	"github.com/goliatone/go-formflow/pkg/formdef"
	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/session"
)

func articleForm() render.Form {
	return render.Form{
		Name:  "articles.create",
		Title: "New Article",
		Fields: []field.Descriptor{
			{Name: "title", Kind: field.KindText, Required: true},
			{Name: "body", Kind: field.KindTextarea},
		},
	}
}

func TestNew_RejectsInvalidFieldSets(t *testing.T) {
	if _, err := New(render.Form{}); err == nil {
		t.Fatalf("expected error for empty form")
	}

	dup := render.Form{Fields: []field.Descriptor{
		{Name: "title", Kind: field.KindText},
		{Name: "title", Kind: field.KindText},
	}}
	if _, err := New(dup); err == nil {
		t.Fatalf("expected error for duplicate names")
	}
}

func TestEngine_RenderDefaultHTML(t *testing.T) {
	e, err := New(articleForm())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	out, err := e.Render(context.Background(), "", render.RenderOptions{
		Values: map[string]any{"title": "Hello"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	markup := string(out)
	if !strings.Contains(markup, "<form") || !strings.Contains(markup, "Hello") {
		t.Fatalf("unexpected markup: %s", markup)
	}

	if _, err := e.Render(context.Background(), "missing", render.RenderOptions{}); err == nil {
		t.Fatalf("expected error for unknown renderer")
	}
}

func TestEngine_SessionLifecycle(t *testing.T) {
	var captured map[string]any
	e, err := New(articleForm(), WithSessionDefaults(
		session.WithCreator(func(_ context.Context, payload map[string]any) (map[string]any, error) {
			captured = payload
			return payload, nil
		}),
		session.WithSuccessInterval(time.Millisecond),
	))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	sess, err := e.NewSession()
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	defer sess.Close()

	if err := sess.Set("title", "Hello"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := sess.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if captured["title"] != "Hello" {
		t.Fatalf("unexpected payload: %#v", captured)
	}
}

func TestFromDefinition_CarriesIdentity(t *testing.T) {
	def := formdef.Definition{
		Name:   "users.invite",
		Title:  "Invite User",
		Entity: "user",
		Fields: []field.Descriptor{{Name: "email", Kind: field.KindEmail, Required: true}},
	}
	e, err := FromDefinition(def)
	if err != nil {
		t.Fatalf("from definition: %v", err)
	}
	form := e.Form()
	if form.Name != "users.invite" || form.Title != "Invite User" || form.Entity != "user" {
		t.Fatalf("unexpected form identity: %#v", form)
	}
}
