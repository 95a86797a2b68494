package formdef_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-formflow/pkg/field"
	"github.com/goliatone/go-formflow/pkg/formdef"
)

func TestLoadFS_YAML(t *testing.T) {
	store := loadStore(t, "basic")
	if store.Empty() {
		t.Fatalf("expected store to contain definitions")
	}

	def, ok := store.Lookup("articles.create")
	if !ok {
		t.Fatalf("definition articles.create not found")
	}
	if def.Title != "New Article" || def.Entity != "article" {
		t.Fatalf("header mismatch: %q %q", def.Title, def.Entity)
	}
	if got := len(def.Fields); got != 8 {
		t.Fatalf("expected 8 fields, got %d", got)
	}

	title := fieldByName(t, def, "title")
	if !title.Required || title.Kind != field.KindText {
		t.Fatalf("title shape mismatch: %+v", title)
	}
	if title.Constraints.MinLength == nil || *title.Constraints.MinLength != 3 {
		t.Fatalf("title minLength not parsed: %+v", title.Constraints)
	}

	published := fieldByName(t, def, "published")
	if published.Default != true {
		t.Fatalf("published default mismatch: %#v", published.Default)
	}

	priority := fieldByName(t, def, "priority")
	if priority.ValueType != field.ValueNumber {
		t.Fatalf("priority value type mismatch: %q", priority.ValueType)
	}
	if len(priority.Options) != 2 || priority.Options[1].Label != "High" {
		t.Fatalf("priority options mismatch: %#v", priority.Options)
	}

	tags := fieldByName(t, def, "tags")
	if len(tags.Options) != 3 || tags.Options[0].Value != "go" || tags.Options[0].Label != "go" {
		t.Fatalf("scalar options mismatch: %#v", tags.Options)
	}

	category := fieldByName(t, def, "category")
	if category.Kind != field.KindPaginatedSelect || category.Reference == nil {
		t.Fatalf("category shape mismatch: %+v", category)
	}
	ref := category.Reference
	if ref.Endpoint != "/api/categories" || ref.LabelKey != "name" || ref.PageSize != 10 {
		t.Fatalf("reference mismatch: %+v", ref)
	}
	if ref.Debounce != 300*time.Millisecond {
		t.Fatalf("debounce mismatch: %v", ref.Debounce)
	}
	if ref.Filters["status"] != "active" {
		t.Fatalf("filters mismatch: %#v", ref.Filters)
	}

	delivery := fieldByName(t, def, "delivery")
	if delivery.DependsOn == nil || delivery.DependsOn.Field != "type" {
		t.Fatalf("dependency mismatch: %+v", delivery.DependsOn)
	}
	digital, ok := delivery.DependsOn.Variants["digital"]
	if !ok || len(digital.Options) != 2 || digital.Options[0].Value != "download" {
		t.Fatalf("digital variant mismatch: %#v", digital)
	}
}

func TestLoadFS_JSON(t *testing.T) {
	store := loadStore(t, "basic")

	def, ok := store.Lookup("users.invite")
	if !ok {
		t.Fatalf("definition users.invite not found")
	}

	role := fieldByName(t, def, "role")
	if len(role.Options) != 2 {
		t.Fatalf("role options mismatch: %#v", role.Options)
	}
	if role.Options[0].Label != "Administrator" {
		t.Fatalf("object option label mismatch: %q", role.Options[0].Label)
	}
	if role.Options[1].Value != "editor" || role.Options[1].Label != "editor" {
		t.Fatalf("scalar option mismatch: %#v", role.Options[1])
	}

	avatar := fieldByName(t, def, "avatar")
	if avatar.Kind != field.KindImage {
		t.Fatalf("avatar kind mismatch: %q", avatar.Kind)
	}
	if len(avatar.Constraints.Accept) != 2 || avatar.Constraints.MaxSize != 2097152 {
		t.Fatalf("avatar constraints mismatch: %+v", avatar.Constraints)
	}
}

func TestLoadFS_DuplicateName(t *testing.T) {
	_, err := formdef.LoadFS(subDirFS(t, "invalid_duplicate"))
	if err == nil || !strings.Contains(err.Error(), "duplicate definition") {
		t.Fatalf("expected duplicate definition error, got %v", err)
	}
}

func TestLoadFS_InvalidDescriptorSet(t *testing.T) {
	_, err := formdef.LoadFS(subDirFS(t, "invalid_schema"))
	if err == nil {
		t.Fatalf("expected descriptor validation error")
	}
}

func TestLoadFS_NilFS(t *testing.T) {
	store, err := formdef.LoadFS(nil)
	if err != nil {
		t.Fatalf("nil fs: %v", err)
	}
	if !store.Empty() {
		t.Fatalf("expected empty store")
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"":                                   "is empty",
		"{{{":                                "invalid JSON or YAML",
		"entity: article\nfields: [{name: a}]": "has no definition name",
		"name: x\nentity: article":             "declares no fields",
		"name: x\nfields: [{name: a, kind: wormhole}]": "unknown kind",
	}
	for input, want := range cases {
		_, err := formdef.Parse([]byte(input), "case.yaml")
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Fatalf("parse %q: want error containing %q, got %v", input, want, err)
		}
	}
}

func TestStoreNames(t *testing.T) {
	store := loadStore(t, "basic")
	names := store.Names()
	if len(names) != 2 || names[0] != "articles.create" || names[1] != "users.invite" {
		t.Fatalf("names mismatch: %#v", names)
	}

	var nilStore *formdef.Store
	if !nilStore.Empty() {
		t.Fatalf("nil store should report empty")
	}
	if _, ok := nilStore.Lookup("anything"); ok {
		t.Fatalf("nil store lookup should miss")
	}
}

func fieldByName(t *testing.T, def formdef.Definition, name string) field.Descriptor {
	t.Helper()
	for _, f := range def.Fields {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("field %q not found in %s", name, def.Name)
	return field.Descriptor{}
}

func loadStore(t *testing.T, subdir string) *formdef.Store {
	t.Helper()
	store, err := formdef.LoadFS(subDirFS(t, subdir))
	if err != nil {
		t.Fatalf("load store: %v", err)
	}
	return store
}

func subDirFS(t *testing.T, subdir string) fs.FS {
	t.Helper()
	base := os.DirFS(testdataRoot())
	fsys, err := fs.Sub(base, subdir)
	if err != nil {
		t.Fatalf("sub fs: %v", err)
	}
	return fsys
}

func testdataRoot() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "testdata"
	}
	return filepath.Join(filepath.Dir(filename), "testdata")
}
