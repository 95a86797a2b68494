package console

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-formflow/pkg/attachment"
	"github.com/goliatone/go-formflow/pkg/field"
	"github.com/goliatone/go-formflow/pkg/options"
	"github.com/goliatone/go-formflow/pkg/session"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	multiIdx     [][]int
	confirm      []bool
	textAreas    []string
	passwords    []string
	infoMessages []string
	selectRows   [][]string
	inputPos     int
	selectPos    int
	multiPos     int
	confirmPos   int
	textPos      int
	passPos      int
}

func (s *stubDriver) Input(_ context.Context, _ InputConfig) (string, error) {
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Password(_ context.Context, _ InputConfig) (string, error) {
	if s.passPos >= len(s.passwords) {
		return "", errors.New("no password scripted")
	}
	val := s.passwords[s.passPos]
	s.passPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, _ ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	s.selectRows = append(s.selectRows, cfg.Options)
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) MultiSelect(_ context.Context, _ SelectConfig) ([]int, error) {
	if s.multiPos >= len(s.multiIdx) {
		return nil, errors.New("no multiselect scripted")
	}
	val := s.multiIdx[s.multiPos]
	s.multiPos++
	return val, nil
}

func (s *stubDriver) TextArea(_ context.Context, _ TextAreaConfig) (string, error) {
	if s.textPos >= len(s.textAreas) {
		return "", errors.New("no textarea scripted")
	}
	val := s.textAreas[s.textPos]
	s.textPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func staticSources(items []options.Option) session.SourceFactory {
	return func(field.ReferenceConfig) (options.Source, error) {
		return options.NewStaticSource(items), nil
	}
}

func TestRun_TextChoiceAndSubmit(t *testing.T) {
	driver := &stubDriver{
		inputs:  []string{"", "Hello"},
		confirm: []bool{true, true}, // published confirm, submit confirm
	}
	runner := New(WithPromptDriver(driver))

	var captured map[string]any
	sess, err := session.New(
		[]field.Descriptor{
			{Name: "title", Kind: field.KindText, Required: true},
			{Name: "published", Kind: field.KindBoolean},
		},
		session.WithCreator(func(_ context.Context, payload map[string]any) (map[string]any, error) {
			captured = payload
			return payload, nil
		}),
		session.WithSuccessInterval(time.Millisecond),
	)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	defer sess.Close()

	if err := runner.Run(context.Background(), sess); err != nil {
		t.Fatalf("run: %v", err)
	}

	if captured["title"] != "Hello" {
		t.Fatalf("unexpected payload: %#v", captured)
	}
	if captured["published"] != true {
		t.Fatalf("expected published true, got %#v", captured["published"])
	}
	// the empty first answer for a required field must have produced feedback
	if len(driver.infoMessages) == 0 || !strings.Contains(driver.infoMessages[0], "Title") {
		t.Fatalf("expected validation feedback, got %#v", driver.infoMessages)
	}
}

func TestRun_ReferenceSearchAndPick(t *testing.T) {
	items := []options.Option{
		{Value: "1", Label: "Acme"},
		{Value: "2", Label: "Borealis"},
		{Value: "3", Label: "Catalyst"},
	}

	driver := &stubDriver{
		// first select: rows are [Acme Borealis Catalyst, "/ search", "(skip)"] → search
		// second select: rows are [Borealis, "/ search", "(skip)"] → pick Borealis
		selectIdx: []int{3, 0},
		inputs:    []string{"bor"},
		confirm:   []bool{true},
	}
	runner := New(WithPromptDriver(driver))

	var captured map[string]any
	sess, err := session.New(
		[]field.Descriptor{
			{
				Name: "brandId",
				Kind: field.KindPaginatedSelect,
				Reference: &field.ReferenceConfig{
					Endpoint: "brands",
					Debounce: time.Millisecond,
				},
			},
		},
		session.WithSources(staticSources(items)),
		session.WithCreator(func(_ context.Context, payload map[string]any) (map[string]any, error) {
			captured = payload
			return payload, nil
		}),
		session.WithSuccessInterval(time.Millisecond),
	)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	defer sess.Close()

	if err := runner.Run(context.Background(), sess); err != nil {
		t.Fatalf("run: %v", err)
	}

	if captured["brandId"] != "2" {
		t.Fatalf("expected brand 2, got %#v", captured["brandId"])
	}
	if len(driver.selectRows) != 2 {
		t.Fatalf("expected two select prompts, got %d", len(driver.selectRows))
	}
	if driver.selectRows[1][0] != "Borealis" {
		t.Fatalf("expected filtered options, got %#v", driver.selectRows[1])
	}
}

func TestRun_AttachmentFromOpener(t *testing.T) {
	driver := &stubDriver{
		inputs:  []string{"logo.png"},
		confirm: []bool{true},
	}
	runner := New(
		WithPromptDriver(driver),
		WithFileOpener(func(path string) (attachment.File, error) {
			return attachment.File{
				Name:    path,
				Size:    64,
				MIME:    "image/png",
				Content: []byte("fake png"),
			}, nil
		}),
	)

	var captured map[string]any
	sess, err := session.New(
		[]field.Descriptor{
			{Name: "logo", Kind: field.KindImage, Constraints: field.Constraints{Accept: []string{"image/*"}}},
		},
		session.WithCreator(func(_ context.Context, payload map[string]any) (map[string]any, error) {
			captured = payload
			return payload, nil
		}),
		session.WithSuccessInterval(time.Millisecond),
	)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	defer sess.Close()

	if err := runner.Run(context.Background(), sess); err != nil {
		t.Fatalf("run: %v", err)
	}

	file, ok := captured["logo"].(*attachment.File)
	if !ok || file.Name != "logo.png" {
		t.Fatalf("expected attached file in payload, got %#v", captured["logo"])
	}
}

func TestRun_DeclinedSubmitCancels(t *testing.T) {
	driver := &stubDriver{
		inputs:  []string{"Hello"},
		confirm: []bool{false},
	}
	runner := New(WithPromptDriver(driver))

	sess, err := session.New(
		[]field.Descriptor{{Name: "title", Kind: field.KindText}},
		session.WithCreator(func(_ context.Context, payload map[string]any) (map[string]any, error) {
			t.Fatal("creator must not run on cancel")
			return nil, nil
		}),
	)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	defer sess.Close()

	if err := runner.Run(context.Background(), sess); !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestRun_SubmitFailureSurfacesBanner(t *testing.T) {
	driver := &stubDriver{
		inputs:  []string{"Hello"},
		confirm: []bool{true, false}, // submit, then decline retry
	}
	runner := New(WithPromptDriver(driver))

	sess, err := session.New(
		[]field.Descriptor{{Name: "title", Kind: field.KindText}},
		session.WithCreator(func(_ context.Context, payload map[string]any) (map[string]any, error) {
			return nil, errors.New("Update failed")
		}),
	)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	defer sess.Close()

	err = runner.Run(context.Background(), sess)
	if err == nil || !strings.Contains(err.Error(), "Update failed") {
		t.Fatalf("expected submit failure, got %v", err)
	}

	found := false
	for _, msg := range driver.infoMessages {
		if strings.Contains(msg, "Update failed") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected banner message, got %#v", driver.infoMessages)
	}
	if got := sess.Value("title"); got != "Hello" {
		t.Fatalf("values must survive a failed submit, got %#v", got)
	}
}
