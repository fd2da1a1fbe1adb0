package domain

import (
	"fmt"
	"strings"
)

// FilterMode combines tag filters
type FilterMode string

const (
	FilterAll FilterMode = "all" // every listed tag must be true
	FilterAny FilterMode = "any" // at least one listed tag must be true
)

// SortKey selects the ordering field
type SortKey string

const (
	SortByName    SortKey = "name"
	SortByCreated SortKey = "date"
)

// SortDir is the ordering direction
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// Query is a plain filter/sort specification for the catalog.
// The zero value lists every finalized record by name, ascending.
type Query struct {
	NameFilter    string
	Tags          []string // identifiers or names
	Mode          FilterMode
	SortKey       SortKey
	SortDir       SortDir
	CaseSensitive bool
}

// HasNameFilter reports whether the name filter constrains results.
// An empty or whitespace-only filter is the same as none.
func (q Query) HasNameFilter() bool {
	return strings.TrimSpace(q.NameFilter) != ""
}

// Normalized fills defaults and resolves tag references to identifiers
func (q Query) Normalized() (Query, error) {
	out := q
	if out.Mode == "" {
		out.Mode = FilterAll
	}
	if out.SortKey == "" {
		out.SortKey = SortByName
	}
	if out.SortDir == "" {
		out.SortDir = SortAsc
	}

	switch out.Mode {
	case FilterAll, FilterAny:
	default:
		return q, fmt.Errorf("unknown filter mode %q", out.Mode)
	}
	switch out.SortKey {
	case SortByName, SortByCreated:
	default:
		return q, fmt.Errorf("unknown sort key %q", out.SortKey)
	}
	switch out.SortDir {
	case SortAsc, SortDesc:
	default:
		return q, fmt.Errorf("unknown sort direction %q", out.SortDir)
	}

	out.Tags = nil
	seen := make(map[string]bool, len(q.Tags))
	for _, ref := range q.Tags {
		id, err := ResolveTagRef(ref)
		if err != nil {
			return q, err
		}
		if !seen[id] {
			seen[id] = true
			out.Tags = append(out.Tags, id)
		}
	}
	return out, nil
}

// ParseSortKey accepts the CLI / config spellings of a sort key
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "name", "title":
		return SortByName, nil
	case "date", "created", "created_at", "upload_date":
		return SortByCreated, nil
	default:
		return "", fmt.Errorf("unknown sort key %q (want name or date)", s)
	}
}

// ParseFilterMode accepts "all" or "any"
func ParseFilterMode(s string) (FilterMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "and":
		return FilterAll, nil
	case "any", "or":
		return FilterAny, nil
	default:
		return "", fmt.Errorf("unknown filter mode %q (want all or any)", s)
	}
}
