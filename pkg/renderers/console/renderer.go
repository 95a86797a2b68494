package console

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/session"
)

// Renderer adapts the runner to the render.Renderer seam: rendering a form
// means running an interactive create session and returning the payload the
// user assembled, serialized as JSON.
type Renderer struct {
	runner     *Runner
	sessionFns []session.OptionFn
}

var _ render.Renderer = (*Renderer)(nil)

// NewRenderer wraps a runner. A nil runner gets the survey defaults. Extra
// session options configure sources, hooks, or notifiers for the sessions
// each Render call creates.
func NewRenderer(runner *Runner, fns ...session.OptionFn) *Renderer {
	if runner == nil {
		runner = New()
	}
	return &Renderer{runner: runner, sessionFns: fns}
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "console"
}

// ContentType reports the serialization format used by Render.
func (r *Renderer) ContentType() string {
	return "application/json"
}

// Render runs an interactive session over the form's fields and returns the
// submitted payload. The capture handler is appended last so a caller-
// supplied creator cannot swallow the payload this method must return.
func (r *Renderer) Render(ctx context.Context, form render.Form, opts render.RenderOptions) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var captured map[string]any
	fns := append([]session.OptionFn{}, r.sessionFns...)
	fns = append(fns, session.WithCreator(func(_ context.Context, payload map[string]any) (map[string]any, error) {
		captured = payload
		return payload, nil
	}))

	sess, err := session.New(form.Fields, fns...)
	if err != nil {
		return nil, fmt.Errorf("console: build session: %w", err)
	}
	defer sess.Close()

	for name, value := range opts.Values {
		if _, ok := sess.Descriptor(name); !ok {
			continue
		}
		_ = sess.Set(name, value)
	}

	if err := r.runner.Run(ctx, sess); err != nil {
		return nil, err
	}

	out, err := sonic.Marshal(captured)
	if err != nil {
		return nil, fmt.Errorf("console: serialize payload: %w", err)
	}
	return out, nil
}
