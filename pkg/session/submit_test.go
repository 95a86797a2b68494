package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formflow/pkg/attachment"
	"github.com/goliatone/go-formflow/pkg/field"
)

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	failures  []string
}

func (n *recordingNotifier) Success(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, message)
}

func (n *recordingNotifier) Error(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, message)
}

func (n *recordingNotifier) lastFailure() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.failures) == 0 {
		return ""
	}
	return n.failures[len(n.failures)-1]
}

func submitFields() []field.Descriptor {
	return []field.Descriptor{
		{Name: "id", Kind: field.KindText, ReadOnly: true},
		{Name: "title", Kind: field.KindText, Required: true},
		{Name: "summary", Kind: field.KindTextarea},
		{Name: "published", Kind: field.KindBoolean},
	}
}

func TestSubmitValidationGate(t *testing.T) {
	called := false
	s, err := New(submitFields(), WithCreator(func(ctx context.Context, payload map[string]any) (map[string]any, error) {
		called = true
		return payload, nil
	}))
	require.NoError(t, err)
	defer s.Close()

	err = s.Submit(context.Background())
	require.ErrorIs(t, err, ErrValidation)
	require.False(t, called, "handler must not run when validation fails")
	require.Equal(t, "Title is required", s.FieldError("title"))
	require.Equal(t, StatusReady, s.Status(), "failed validation keeps the form ready")
}

func TestSubmitSuccessLifecycle(t *testing.T) {
	notifier := &recordingNotifier{}
	var gotPayload map[string]any
	var gotResult map[string]any

	s, err := New(submitFields(),
		WithCreator(func(ctx context.Context, payload map[string]any) (map[string]any, error) {
			gotPayload = payload
			stored := map[string]any{"id": "art_1", "title": payload["title"]}
			return stored, nil
		}),
		WithNotifier(notifier),
		WithSuccessInterval(150*time.Millisecond),
		WithAfterSuccess(func(result map[string]any) { gotResult = result }),
	)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set("title", "Hello"))
	require.NoError(t, s.Set("published", true))
	require.True(t, s.Dirty())

	require.NoError(t, s.Submit(context.Background()))

	require.Equal(t, "Hello", gotPayload["title"])
	require.Equal(t, true, gotPayload["published"])
	_, hasID := gotPayload["id"]
	require.False(t, hasID, "read-only fields stay out of the payload")

	require.Equal(t, StatusSuccess, s.Status())
	require.False(t, s.Dirty(), "submitted values become the new baseline")
	require.Equal(t, []string{DefaultSuccessMessage}, notifier.successes)
	require.Equal(t, "art_1", gotResult["id"])
	require.Equal(t, "art_1", s.RecordID())

	require.Eventually(t, func() bool {
		return s.Status() == StatusReady
	}, time.Second, 5*time.Millisecond, "success status must revert to ready")
}

func TestSubmitFailureKeepsValues(t *testing.T) {
	notifier := &recordingNotifier{}
	healthy := false
	s, err := New(submitFields(),
		WithCreator(func(ctx context.Context, payload map[string]any) (map[string]any, error) {
			if !healthy {
				return nil, errors.New("backend rejected the request")
			}
			return payload, nil
		}),
		WithNotifier(notifier),
		WithSuccessInterval(time.Second),
	)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set("title", "Hello"))
	require.NoError(t, s.Set("summary", "Body"))

	err = s.Submit(context.Background())
	require.Error(t, err)
	require.Equal(t, StatusError, s.Status())
	require.Contains(t, s.FormError(), "backend rejected")
	require.Contains(t, notifier.lastFailure(), "backend rejected")

	// Everything the user typed survives the failure.
	require.Equal(t, "Hello", s.Value("title"))
	require.Equal(t, "Body", s.Value("summary"))
	require.True(t, s.CanSubmit(), "the form stays editable after a failure")

	// Editing clears the banner, fixing and resubmitting succeeds.
	healthy = true
	require.NoError(t, s.Set("summary", "Body v2"))
	require.Empty(t, s.FormError())
	require.NoError(t, s.Submit(context.Background()))
	require.Equal(t, StatusSuccess, s.Status())
}

func TestSubmitFailureRevertsToReadyAfterInterval(t *testing.T) {
	s, err := New(submitFields(),
		WithCreator(func(ctx context.Context, payload map[string]any) (map[string]any, error) {
			return nil, errors.New("backend rejected the request")
		}),
		WithSuccessInterval(30*time.Millisecond),
	)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set("title", "Hello"))
	require.NoError(t, s.Set("summary", "Body"))
	require.Error(t, s.Submit(context.Background()))
	require.Equal(t, StatusError, s.Status())

	require.Eventually(t, func() bool {
		return s.Status() == StatusReady
	}, time.Second, 5*time.Millisecond, "error status must revert to ready")
	require.Empty(t, s.FormError(), "the banner clears with the display interval")
	require.Equal(t, "Hello", s.Value("title"), "entered values survive the revert")
}

func TestSubmitMapsServerFieldErrors(t *testing.T) {
	s, err := New(submitFields(), WithCreator(func(ctx context.Context, payload map[string]any) (map[string]any, error) {
		return nil, &ServerError{
			Message: "validation failed",
			Fields: map[string][]string{
				"/data/attributes/title": {"Title is taken"},
				"body.ghost":             {"No such field"},
			},
		}
	}))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set("title", "Hello"))
	err = s.Submit(context.Background())
	require.Error(t, err)

	require.Equal(t, "Title is taken", s.FieldError("title"))
	require.Contains(t, s.FormError(), "validation failed")
	require.Contains(t, s.FormError(), "No such field", "unmatched messages stay on the form banner")
}

func TestSubmitSingleFlight(t *testing.T) {
	release := make(chan struct{})
	s, err := New(submitFields(), WithCreator(func(ctx context.Context, payload map[string]any) (map[string]any, error) {
		<-release
		return payload, nil
	}), WithSuccessInterval(10*time.Millisecond))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set("title", "Hello"))

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background()) }()

	require.Eventually(t, func() bool {
		return s.Status() == StatusSubmitting
	}, time.Second, time.Millisecond)

	require.ErrorIs(t, s.Submit(context.Background()), ErrSubmitInFlight)
	require.ErrorIs(t, s.Set("title", "blocked"), ErrNotEditable)

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, "Hello", s.Value("title"))
}

func TestBeforeSubmitHook(t *testing.T) {
	var gotPayload map[string]any
	s, err := New(submitFields(),
		WithCreator(func(ctx context.Context, payload map[string]any) (map[string]any, error) {
			gotPayload = payload
			return payload, nil
		}),
		WithBeforeSubmit(func(ctx context.Context, payload map[string]any) (map[string]any, error) {
			payload["slug"] = "hello"
			return payload, nil
		}),
		WithSuccessInterval(10*time.Millisecond),
	)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set("title", "Hello"))
	require.NoError(t, s.Submit(context.Background()))
	require.Equal(t, "hello", gotPayload["slug"])
}

func TestBeforeSubmitVeto(t *testing.T) {
	s, err := New(submitFields(),
		WithCreator(func(ctx context.Context, payload map[string]any) (map[string]any, error) {
			t.Fatal("handler must not run after a veto")
			return nil, nil
		}),
		WithBeforeSubmit(func(ctx context.Context, payload map[string]any) (map[string]any, error) {
			return nil, errors.New("quota exceeded")
		}),
	)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set("title", "Hello"))
	err = s.Submit(context.Background())
	require.Error(t, err)
	require.Equal(t, StatusError, s.Status())
	require.Contains(t, s.FormError(), "quota exceeded")
}

func TestSubmitWithoutHandler(t *testing.T) {
	s, err := New(submitFields())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set("title", "Hello"))
	require.ErrorIs(t, s.Submit(context.Background()), ErrNoSubmitter)
}

func TestMergePatchSendsOnlyChanges(t *testing.T) {
	var gotPayload map[string]any
	s, err := New(submitFields(),
		WithEdit("42", func(ctx context.Context, id string) (map[string]any, error) {
			return map[string]any{
				"id":        "42",
				"title":     "Old title",
				"summary":   "Keep me",
				"published": true,
			}, nil
		}),
		WithUpdater(func(ctx context.Context, id string, payload map[string]any) (map[string]any, error) {
			gotPayload = payload
			return nil, nil
		}),
		WithMergePatch(true),
		WithSuccessInterval(10*time.Millisecond),
	)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	require.NoError(t, s.Set("title", "New title"))
	require.NoError(t, s.Set("summary", nil))
	require.NoError(t, s.Submit(context.Background()))

	require.Equal(t, "New title", gotPayload["title"])

	cleared, exists := gotPayload["summary"]
	require.True(t, exists, "cleared fields must appear as explicit nulls")
	require.Nil(t, cleared)

	_, touched := gotPayload["published"]
	require.False(t, touched, "untouched fields stay out of a merge patch")
}

func TestSubmitAttachmentThreeStates(t *testing.T) {
	fields := []field.Descriptor{
		{Name: "title", Kind: field.KindText},
		{Name: "cover", Kind: field.KindImage},
		{Name: "manual", Kind: field.KindFile},
	}
	var gotPayload map[string]any
	s, err := New(fields,
		WithEdit("42", func(ctx context.Context, id string) (map[string]any, error) {
			return map[string]any{
				"title":  "Post",
				"cover":  map[string]any{"name": "cover.jpg", "url": "/media/cover.jpg"},
				"manual": map[string]any{"name": "manual.pdf", "url": "/media/manual.pdf"},
			}, nil
		}),
		WithUpdater(func(ctx context.Context, id string, payload map[string]any) (map[string]any, error) {
			gotPayload = payload
			return nil, nil
		}),
		WithSources(staticSources()),
		WithSuccessInterval(10*time.Millisecond),
	)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	// cover: replaced with a new upload; manual: explicitly removed;
	// title untouched scalar rides along in a full (non-patch) update.
	require.NoError(t, s.Attach("cover", attachment.File{
		Name: "new.png", MIME: "image/png", Content: []byte{1, 2, 3},
	}))
	require.NoError(t, s.RemoveAttachment("manual"))

	require.NoError(t, s.Submit(context.Background()))

	file, ok := gotPayload["cover"].(*attachment.File)
	require.True(t, ok, "replaced attachment must carry the new file")
	require.Equal(t, "new.png", file.Name)

	removed, exists := gotPayload["manual"]
	require.True(t, exists, "removed attachment must appear as an explicit null")
	require.Nil(t, removed)

	require.Equal(t, "Post", gotPayload["title"])

	// After a successful save the new upload becomes the stored baseline.
	ctrl, _ := s.Attachment("cover")
	require.Equal(t, attachment.StatusStored, ctrl.Status())
	require.False(t, s.Dirty())
	manualCtrl, _ := s.Attachment("manual")
	require.Equal(t, attachment.StatusEmpty, manualCtrl.Status())
}

func TestUntouchedAttachmentOmittedFromPayload(t *testing.T) {
	fields := []field.Descriptor{
		{Name: "title", Kind: field.KindText},
		{Name: "cover", Kind: field.KindImage},
	}
	var gotPayload map[string]any
	s, err := New(fields, WithCreator(func(ctx context.Context, payload map[string]any) (map[string]any, error) {
		gotPayload = payload
		return nil, nil
	}), WithSuccessInterval(10*time.Millisecond))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set("title", "Post"))
	require.NoError(t, s.Submit(context.Background()))

	_, exists := gotPayload["cover"]
	require.False(t, exists, "untouched attachment must be omitted entirely")
}

func TestRequiredAttachmentNeedsEditMode(t *testing.T) {
	fields := []field.Descriptor{
		{Name: "title", Kind: field.KindText},
		{Name: "cover", Kind: field.KindImage, Required: true},
	}

	// A create session has no stored file that could satisfy the
	// requirement, so construction itself is rejected.
	_, err := New(fields, WithCreator(func(ctx context.Context, payload map[string]any) (map[string]any, error) {
		return nil, nil
	}))
	require.ErrorIs(t, err, ErrRequiredAttachment)
	require.Contains(t, err.Error(), "cover")

	s, err := New(fields,
		WithEdit("42", func(ctx context.Context, id string) (map[string]any, error) {
			return map[string]any{
				"title": "Post",
				"cover": map[string]any{"name": "cover.jpg", "url": "/media/cover.jpg"},
			}, nil
		}),
		WithUpdater(func(ctx context.Context, id string, payload map[string]any) (map[string]any, error) {
			return nil, nil
		}),
	)
	require.NoError(t, err, "edit mode accepts required attachments")
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	require.NoError(t, s.RemoveAttachment("cover"))
	err = s.Submit(context.Background())
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, "Cover is required", s.FieldError("cover"))

	require.NoError(t, s.Attach("cover", attachment.File{
		Name: "ok.png", MIME: "image/png", Content: []byte{1},
	}))
	require.NoError(t, s.Submit(context.Background()))
}
