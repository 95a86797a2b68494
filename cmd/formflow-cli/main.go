package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/bytedance/sonic"

	formflow "github.com/goliatone/go-formflow"
	"github.com/goliatone/go-formflow/pkg/formdef"
	"github.com/goliatone/go-formflow/pkg/renderers/console"
	"github.com/goliatone/go-formflow/pkg/session"
)

func main() {
	definition := flag.String("definition", "", "form definition file (YAML or JSON)")
	openapiPath := flag.String("openapi", "", "OpenAPI document path")
	operation := flag.String("operation", "", "operation ID (with -openapi)")
	target := flag.String("target", "", "URL to POST the payload to (prints JSON when empty)")
	flag.Parse()

	ctx := context.Background()

	engine, err := buildEngine(ctx, *definition, *openapiPath, *operation)
	if err != nil {
		log.Fatalf("Failed to load form: %v", err)
	}

	sess, err := engine.NewSession(session.WithCreator(submitter(*target)))
	if err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}
	defer sess.Close()

	runner := console.New()
	if err := runner.Run(ctx, sess); err != nil {
		if errors.Is(err, console.ErrCancelled) || errors.Is(err, console.ErrAborted) {
			os.Exit(1)
		}
		log.Fatalf("Session failed: %v", err)
	}
}

func buildEngine(ctx context.Context, definition, openapiPath, operation string) (*formflow.Engine, error) {
	switch {
	case definition != "":
		data, err := os.ReadFile(definition)
		if err != nil {
			return nil, err
		}
		def, err := formdef.Parse(data, definition)
		if err != nil {
			return nil, err
		}
		return formflow.FromDefinition(def)
	case openapiPath != "":
		if operation == "" {
			return nil, errors.New("-operation is required with -openapi")
		}
		data, err := os.ReadFile(openapiPath)
		if err != nil {
			return nil, err
		}
		return formflow.FromOpenAPI(ctx, data, operation)
	default:
		return nil, errors.New("one of -definition or -openapi is required")
	}
}

// submitter posts the payload to the target URL, or prints it to stdout when
// no target is configured.
func submitter(target string) session.SubmitFunc {
	return func(ctx context.Context, payload map[string]any) (map[string]any, error) {
		body, err := sonic.Marshal(payload)
		if err != nil {
			return nil, err
		}
		if target == "" {
			fmt.Println(string(body))
			return payload, nil
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%s: %s", resp.Status, bytes.TrimSpace(raw))
		}

		result := map[string]any{}
		if len(raw) > 0 {
			if err := sonic.Unmarshal(raw, &result); err != nil {
				// non-JSON success bodies are fine; keep the payload
				return payload, nil
			}
		}
		return result, nil
	}
}
