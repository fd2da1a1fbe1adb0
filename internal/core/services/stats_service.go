package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kamal-hamza/hx-cli/internal/core/domain"
	"github.com/kamal-hamza/hx-cli/internal/core/ports"
)

// StatsService summarizes the catalog
type StatsService struct {
	catalog ports.CatalogRepository
	tags    ports.TagRepository
}

// NewStatsService creates a new stats service
func NewStatsService(catalog ports.CatalogRepository, tags ports.TagRepository) *StatsService {
	return &StatsService{
		catalog: catalog,
		tags:    tags,
	}
}

// Stats is a snapshot of catalog size and tag usage
type Stats struct {
	Assets      int
	Pending     int
	Untagged    int
	Tags        []TagInfo // creation order
	SourceBytes int64
	Oldest      time.Time
	Newest      time.Time
	ByMonth     []MonthCount // oldest first, months without imports omitted
}

// MonthCount is the number of assets imported in one calendar month
type MonthCount struct {
	Month string // "2006-01"
	Count int
}

// Execute collects the snapshot
func (s *StatsService) Execute(ctx context.Context) (*Stats, error) {
	assets, err := s.catalog.Query(ctx, domain.Query{SortKey: domain.SortByCreated})
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	pending, err := s.catalog.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending assets: %w", err)
	}
	infos, err := NewTagService(s.catalog, s.tags).List(ctx)
	if err != nil {
		return nil, err
	}

	st := &Stats{
		Assets:  len(assets),
		Pending: len(pending),
		Tags:    infos,
	}
	if len(assets) > 0 {
		st.Oldest = assets[0].CreatedAt
		st.Newest = assets[len(assets)-1].CreatedAt
	}

	for _, a := range assets {
		tagged := false
		for _, v := range a.Tags {
			if v {
				tagged = true
				break
			}
		}
		if !tagged {
			st.Untagged++
		}
		if info, err := os.Stat(a.SourcePath); err == nil {
			st.SourceBytes += info.Size()
		}

		// Assets arrive sorted by creation time
		month := a.CreatedAt.UTC().Format("2006-01")
		if n := len(st.ByMonth); n > 0 && st.ByMonth[n-1].Month == month {
			st.ByMonth[n-1].Count++
		} else {
			st.ByMonth = append(st.ByMonth, MonthCount{Month: month, Count: 1})
		}
	}
	return st, nil
}
