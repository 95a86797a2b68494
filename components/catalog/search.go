package catalog

import (
	"sort"
	"strings"

	"github.com/goliatone/go-formflow/pkg/options"
)

// Search filters items by a case-insensitive substring match on label or
// value. Prefix matches on the label rank first, then alphabetical order;
// ranking is stable so pagination over the same query never shuffles rows.
func Search(items []options.Option, query string) []options.Option {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		out := append([]options.Option{}, items...)
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Label < out[j].Label
		})
		return out
	}

	matches := make([]rankedOption, 0, len(items))
	for _, item := range items {
		label := strings.ToLower(item.Label)
		value := strings.ToLower(item.Value)
		if !strings.Contains(label, query) && !strings.Contains(value, query) {
			continue
		}
		matches = append(matches, rankedOption{
			option:   item,
			isPrefix: strings.HasPrefix(label, query),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].isPrefix != matches[j].isPrefix {
			return matches[i].isPrefix
		}
		return matches[i].option.Label < matches[j].option.Label
	})

	out := make([]options.Option, 0, len(matches))
	for _, match := range matches {
		out = append(out, match.option)
	}
	return out
}

// Paginate slices one page out of a ranked result set. Page numbers are
// 1-based; a page past the end yields an empty slice, not an error.
func Paginate(items []options.Option, page, pageSize int) []options.Option {
	if pageSize <= 0 {
		return nil
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []options.Option{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return append([]options.Option{}, items[start:end]...)
}

type rankedOption struct {
	option   options.Option
	isPrefix bool
}
