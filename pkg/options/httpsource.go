package options

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

const (
	defaultSearchParam   = "search"
	defaultPageParam     = "page"
	defaultPageSizeParam = "pageSize"
	defaultResultsPath   = "data"
	defaultLabelKey      = "name"
	defaultValueKey      = "id"
)

// HTTPSource fetches option pages from a JSON endpoint. The expected envelope
// is {"data": [...], "meta": {"total": n}}; both the results path and the
// label/value extraction keys are configurable, so flat arrays and nested
// payloads work too.
type HTTPSource struct {
	client        *http.Client
	endpoint      *url.URL
	method        string
	labelKey      string
	valueKey      string
	searchParam   string
	pageParam     string
	pageSizeParam string
	resultsPath   string
	headers       map[string]string
	transform     TransformFunc
}

// HTTPOption customises an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient overrides the http.Client used for fetches.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		if client != nil {
			s.client = client
		}
	}
}

// WithMethod overrides the request method (default GET).
func WithMethod(method string) HTTPOption {
	return func(s *HTTPSource) {
		if trimmed := strings.ToUpper(strings.TrimSpace(method)); trimmed != "" {
			s.method = trimmed
		}
	}
}

// WithLabelKey sets the dotted path used to extract option labels.
func WithLabelKey(key string) HTTPOption {
	return func(s *HTTPSource) {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			s.labelKey = trimmed
		}
	}
}

// WithValueKey sets the dotted path used to extract option values.
func WithValueKey(key string) HTTPOption {
	return func(s *HTTPSource) {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			s.valueKey = trimmed
		}
	}
}

// WithSearchParam renames the query parameter carrying the search text.
func WithSearchParam(name string) HTTPOption {
	return func(s *HTTPSource) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			s.searchParam = trimmed
		}
	}
}

// WithPageParams renames the pagination query parameters.
func WithPageParams(pageParam, pageSizeParam string) HTTPOption {
	return func(s *HTTPSource) {
		if trimmed := strings.TrimSpace(pageParam); trimmed != "" {
			s.pageParam = trimmed
		}
		if trimmed := strings.TrimSpace(pageSizeParam); trimmed != "" {
			s.pageSizeParam = trimmed
		}
	}
}

// WithResultsPath sets the dotted path to the item array inside the response
// envelope. An empty path treats the whole payload as the array.
func WithResultsPath(path string) HTTPOption {
	return func(s *HTTPSource) {
		s.resultsPath = strings.TrimSpace(path)
	}
}

// WithHeader adds a header to every request (authorization, tenant, etc.).
func WithHeader(name, value string) HTTPOption {
	return func(s *HTTPSource) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		if s.headers == nil {
			s.headers = make(map[string]string)
		}
		s.headers[name] = value
	}
}

// WithTransform installs a per-item transform that replaces label/value key
// extraction.
func WithTransform(fn TransformFunc) HTTPOption {
	return func(s *HTTPSource) {
		s.transform = fn
	}
}

// NewHTTPSource builds a source for the given endpoint URL. Query parameters
// already present on the endpoint are preserved on every request.
func NewHTTPSource(endpoint string, opts ...HTTPOption) (*HTTPSource, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, errors.New("options: endpoint is required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("options: parse endpoint: %w", err)
	}

	source := &HTTPSource{
		client:        http.DefaultClient,
		endpoint:      parsed,
		method:        http.MethodGet,
		labelKey:      defaultLabelKey,
		valueKey:      defaultValueKey,
		searchParam:   defaultSearchParam,
		pageParam:     defaultPageParam,
		pageSizeParam: defaultPageSizeParam,
		resultsPath:   defaultResultsPath,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(source)
	}
	return source, nil
}

// FetchPage implements Source.
func (s *HTTPSource) FetchPage(ctx context.Context, query Query) (Page, error) {
	if s == nil || s.endpoint == nil {
		return Page{}, errors.New("options: http source is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	reqURL := *s.endpoint
	params := reqURL.Query()
	page := query.Page
	if page < 1 {
		page = 1
	}
	params.Set(s.pageParam, strconv.Itoa(page))
	if query.PageSize > 0 {
		params.Set(s.pageSizeParam, strconv.Itoa(query.PageSize))
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		params.Set(s.searchParam, search)
	} else {
		params.Del(s.searchParam)
	}
	for key, value := range query.Filters {
		if strings.TrimSpace(key) == "" {
			continue
		}
		params.Set(key, value)
	}
	reqURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, s.method, reqURL.String(), nil)
	if err != nil {
		return Page{}, fmt.Errorf("options: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for name, value := range s.headers {
		req.Header.Set(name, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("options: fetch page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Page{}, fmt.Errorf("options: fetch page %d: unexpected status %d", page, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("options: read response: %w", err)
	}

	var payload any
	if err := sonic.Unmarshal(raw, &payload); err != nil {
		return Page{}, fmt.Errorf("options: decode response: %w", err)
	}

	items := extractItems(payload, s.resultsPath)
	result := Page{Total: extractTotal(payload)}
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		option, ok := s.optionFromItem(obj)
		if !ok {
			continue
		}
		result.Options = append(result.Options, option)
	}
	return result, nil
}

func (s *HTTPSource) optionFromItem(item map[string]any) (Option, bool) {
	if s.transform != nil {
		option, ok := s.transform(item)
		if !ok {
			return Option{}, false
		}
		option.Label = SanitizeLabel(option.Label)
		if option.Value == "" {
			return Option{}, false
		}
		if option.Label == "" {
			option.Label = option.Value
		}
		return option, true
	}

	value := pickString(item, s.valueKey)
	if value == "" {
		return Option{}, false
	}
	label := SanitizeLabel(pickString(item, s.labelKey))
	if label == "" {
		label = value
	}
	return Option{Value: value, Label: label}, true
}

func extractItems(payload any, path string) []any {
	current := payload
	if path != "" {
		for _, segment := range strings.Split(path, ".") {
			node, ok := current.(map[string]any)
			if !ok {
				return nil
			}
			current = node[segment]
		}
	}
	items, ok := current.([]any)
	if !ok {
		return nil
	}
	return items
}

func extractTotal(payload any) int {
	node, ok := payload.(map[string]any)
	if !ok {
		return -1
	}
	meta, ok := node["meta"].(map[string]any)
	if !ok {
		return -1
	}
	switch total := meta["total"].(type) {
	case float64:
		return int(total)
	case int:
		return total
	case int64:
		return int(total)
	case string:
		if parsed, err := strconv.Atoi(total); err == nil {
			return parsed
		}
	}
	return -1
}

func pickString(item map[string]any, path string) string {
	if path == "" {
		return ""
	}
	current := any(item)
	for _, segment := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return ""
		}
		current = node[segment]
	}
	switch value := current.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(value)
	case float64:
		if value == float64(int64(value)) {
			return strconv.FormatInt(int64(value), 10)
		}
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		return strings.TrimSpace(fmt.Sprint(value))
	}
}
