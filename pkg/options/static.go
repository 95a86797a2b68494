package options

import (
	"context"
	"sort"
	"strings"
)

// StaticSource serves a fixed option list with the same search-and-page
// contract remote sources honour. Useful for small enumerations and tests.
type StaticSource struct {
	options []Option
}

// NewStaticSource copies the provided options into a new source.
func NewStaticSource(opts []Option) *StaticSource {
	return &StaticSource{options: append([]Option(nil), opts...)}
}

// FetchPage implements Source. Matching is case-insensitive substring over
// labels with prefix matches ranked first; ordering is stable.
func (s *StaticSource) FetchPage(ctx context.Context, query Query) (Page, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return Page{}, err
		}
	}

	matched := Filter(s.options, query.Search)
	page := Page{Total: len(matched)}

	size := query.PageSize
	if size <= 0 {
		size = len(matched)
	}
	start := (max(query.Page, 1) - 1) * size
	if start >= len(matched) {
		return page, nil
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	page.Options = append([]Option(nil), matched[start:end]...)
	return page, nil
}

// Filter returns the options whose label contains the query, prefix matches
// first. An empty query returns a copy of the full list.
func Filter(opts []Option, query string) []Option {
	query = strings.TrimSpace(query)
	if query == "" {
		return append([]Option(nil), opts...)
	}

	lowered := strings.ToLower(query)
	type ranked struct {
		option   Option
		isPrefix bool
	}
	matches := make([]ranked, 0, len(opts))
	for _, opt := range opts {
		label := strings.ToLower(opt.Label)
		if !strings.Contains(label, lowered) {
			continue
		}
		matches = append(matches, ranked{option: opt, isPrefix: strings.HasPrefix(label, lowered)})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].isPrefix != matches[j].isPrefix {
			return matches[i].isPrefix
		}
		return matches[i].option.Label < matches[j].option.Label
	})

	out := make([]Option, 0, len(matches))
	for _, match := range matches {
		out = append(out, match.option)
	}
	return out
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
