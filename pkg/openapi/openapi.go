// Package openapi derives form field descriptors from OpenAPI 3 documents.
// The entity screens a form engine serves usually already have a POST or
// PATCH operation describing the payload; Parse turns each operation's
// request body into the descriptor list a schema is generated from.
//
// Vendor extensions under the x-formflow key refine what a JSON schema
// alone cannot express: an explicit field kind, attachment accept lists and
// size limits, and reference endpoints for paginated selects.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formflow/pkg/field"
)

// Operation is one request-body-bearing operation extracted from a document.
type Operation struct {
	ID          string
	Method      string
	Path        string
	Summary     string
	Description string
	// Fields holds the descriptors derived from the request body schema,
	// flattened and sorted by property name.
	Fields []field.Descriptor
}

// Document holds the operations extracted from one OpenAPI document.
type Document struct {
	operations map[string]Operation
}

// Parse loads an OpenAPI 3 document and derives descriptors for every
// operation that declares a request body. Operations without one are not
// form material and are skipped.
func Parse(ctx context.Context, data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	spec, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if spec.Paths == nil || spec.Paths.Len() == 0 {
		return nil, errors.New("openapi: document does not contain any paths")
	}

	doc := &Document{operations: make(map[string]Operation)}
	for path, item := range spec.Paths.Map() {
		if item == nil {
			continue
		}
		for method, op := range map[string]*openapi3.Operation{
			"POST":   item.Post,
			"PUT":    item.Put,
			"PATCH":  item.Patch,
			"DELETE": item.Delete,
		} {
			if err := doc.collect(ctx, method, path, op); err != nil {
				return nil, err
			}
		}
	}
	if len(doc.operations) == 0 {
		return nil, errors.New("openapi: no operations with a request body")
	}
	return doc, nil
}

// Descriptors parses the document and returns the descriptor list for a
// single operation.
func Descriptors(ctx context.Context, data []byte, operationID string) ([]field.Descriptor, error) {
	doc, err := Parse(ctx, data)
	if err != nil {
		return nil, err
	}
	op, ok := doc.Operation(operationID)
	if !ok {
		return nil, fmt.Errorf("openapi: operation %q not found (have %s)", operationID, strings.Join(doc.IDs(), ", "))
	}
	return op.Fields, nil
}

// Operation returns the extracted operation with the given id.
func (d *Document) Operation(id string) (Operation, bool) {
	if d == nil {
		return Operation{}, false
	}
	op, ok := d.operations[id]
	return op, ok
}

// IDs returns every extracted operation id in sorted order.
func (d *Document) IDs() []string {
	if d == nil || len(d.operations) == 0 {
		return nil
	}
	ids := make([]string, 0, len(d.operations))
	for id := range d.operations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (d *Document) collect(ctx context.Context, method, path string, op *openapi3.Operation) error {
	if op == nil || ctx.Err() != nil {
		return nil
	}
	schema := requestSchema(op.RequestBody)
	if schema == nil {
		return nil
	}

	id := op.OperationID
	if id == "" {
		id = strings.ToLower(method) + ":" + path
	}

	fields, err := descriptorsFromSchema(schema)
	if err != nil {
		return fmt.Errorf("openapi: operation %q: %w", id, err)
	}
	if len(fields) == 0 {
		return nil
	}

	d.operations[id] = Operation{
		ID:          id,
		Method:      method,
		Path:        path,
		Summary:     op.Summary,
		Description: op.Description,
		Fields:      fields,
	}
	return nil
}

// requestSchema picks the form-relevant media type from a request body.
func requestSchema(ref *openapi3.RequestBodyRef) *openapi3.Schema {
	if ref == nil || ref.Value == nil {
		return nil
	}
	content := ref.Value.Content
	for _, mediaType := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if mt, ok := content[mediaType]; ok && mt.Schema != nil && mt.Schema.Value != nil {
			return mt.Schema.Value
		}
	}
	for _, mt := range content {
		if mt.Schema != nil && mt.Schema.Value != nil {
			return mt.Schema.Value
		}
	}
	return nil
}
