package services

import (
	"context"
	"fmt"

	"github.com/kamal-hamza/hx-cli/internal/core/domain"
	"github.com/kamal-hamza/hx-cli/internal/core/ports"
)

// ListDefaults are the configured search settings a request can override
type ListDefaults struct {
	CaseSensitive bool
	SortBy        string
	Reverse       bool
	FilterMode    string
}

// ListService handles searching, filtering and sorting assets
type ListService struct {
	catalog  ports.CatalogRepository
	tags     ports.TagRepository
	defaults ListDefaults
}

// NewListService creates a new list service
func NewListService(catalog ports.CatalogRepository, tags ports.TagRepository, defaults ListDefaults) *ListService {
	return &ListService{
		catalog:  catalog,
		tags:     tags,
		defaults: defaults,
	}
}

// ListRequest represents a request to list assets
type ListRequest struct {
	Search        string   // Substring of the display name (optional)
	Tags          []string // Tag names or identifiers (optional)
	Mode          string   // "all" or "any"; empty uses the default
	SortBy        string   // "name" or "date"; empty uses the default
	Reverse       bool     // Flips the default direction
	CaseSensitive *bool    // nil uses the default
}

// ListResponse represents the response from listing assets
type ListResponse struct {
	Assets []domain.Asset
	Tags   []domain.Tag // every defined tag, in creation order
	Query  domain.Query
	Total  int
}

// Execute builds a query from the request and the defaults and runs it
func (s *ListService) Execute(ctx context.Context, req ListRequest) (*ListResponse, error) {
	q, err := s.BuildQuery(req)
	if err != nil {
		return nil, err
	}

	assets, err := s.catalog.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	tags, err := s.tags.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	return &ListResponse{
		Assets: assets,
		Tags:   tags,
		Query:  q,
		Total:  len(assets),
	}, nil
}

// BuildQuery resolves a request against the defaults
func (s *ListService) BuildQuery(req ListRequest) (domain.Query, error) {
	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = s.defaults.SortBy
	}
	key, err := domain.ParseSortKey(sortBy)
	if err != nil {
		return domain.Query{}, err
	}

	modeName := req.Mode
	if modeName == "" {
		modeName = s.defaults.FilterMode
	}
	mode, err := domain.ParseFilterMode(modeName)
	if err != nil {
		return domain.Query{}, err
	}

	dir := domain.SortAsc
	if s.defaults.Reverse != req.Reverse {
		dir = domain.SortDesc
	}

	caseSensitive := s.defaults.CaseSensitive
	if req.CaseSensitive != nil {
		caseSensitive = *req.CaseSensitive
	}

	return domain.Query{
		NameFilter:    req.Search,
		Tags:          req.Tags,
		Mode:          mode,
		SortKey:       key,
		SortDir:       dir,
		CaseSensitive: caseSensitive,
	}, nil
}
