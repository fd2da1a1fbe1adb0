package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/kamal-hamza/hx-cli/internal/core/domain"
	"github.com/kamal-hamza/hx-cli/internal/core/ports"
)

// TagService manages the tag schema and per-asset tag values
type TagService struct {
	catalog ports.CatalogRepository
	tags    ports.TagRepository
}

// NewTagService creates a new tag service
func NewTagService(catalog ports.CatalogRepository, tags ports.TagRepository) *TagService {
	return &TagService{
		catalog: catalog,
		tags:    tags,
	}
}

// TagInfo is a tag with the number of finalized assets that have it
type TagInfo struct {
	Tag   domain.Tag
	Count int
}

// List returns every tag in creation order with its usage
func (s *TagService) List(ctx context.Context) ([]TagInfo, error) {
	tags, err := s.tags.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	usage, err := s.tags.TagUsage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count tag usage: %w", err)
	}

	infos := make([]TagInfo, len(tags))
	for i, t := range tags {
		infos[i] = TagInfo{Tag: t, Count: usage[t.Identifier]}
	}
	return infos, nil
}

// Add defines a tag. A non-zero assetID also marks that asset with it.
func (s *TagService) Add(ctx context.Context, name string, assetID int64) (domain.Tag, error) {
	tag, err := s.tags.AddTag(ctx, name, assetID)
	if err != nil {
		return domain.Tag{}, err
	}
	log.Info().Str("tag", tag.Identifier).Int64("asset_id", assetID).Msg("tag added")
	return tag, nil
}

// Remove drops a tag and all of its values
func (s *TagService) Remove(ctx context.Context, ref string) (domain.Tag, error) {
	tag, err := s.Find(ctx, ref)
	if err != nil {
		return domain.Tag{}, fmt.Errorf("remove tag: %w", err)
	}
	if err := s.tags.RemoveTag(ctx, tag.Identifier); err != nil {
		return domain.Tag{}, err
	}
	log.Info().Str("tag", tag.Identifier).Msg("tag removed")
	return tag, nil
}

// Set writes one value on each of the given assets. An undefined tag is an error.
func (s *TagService) Set(ctx context.Context, ref string, value bool, assetIDs ...int64) error {
	for _, id := range assetIDs {
		if err := s.tags.SetTagValue(ctx, ref, id, value); err != nil {
			return err
		}
		log.Debug().Str("tag", ref).Int64("asset_id", id).Bool("value", value).Msg("tag value set")
	}
	return nil
}

// Get reads one value
func (s *TagService) Get(ctx context.Context, ref string, assetID int64) (bool, error) {
	return s.tags.GetTagValue(ctx, ref, assetID)
}

// Find resolves a name or identifier to a defined tag
func (s *TagService) Find(ctx context.Context, ref string) (domain.Tag, error) {
	id, err := domain.ResolveTagRef(ref)
	if err != nil {
		return domain.Tag{}, err
	}
	tags, err := s.tags.ListTags(ctx)
	if err != nil {
		return domain.Tag{}, fmt.Errorf("failed to list tags: %w", err)
	}
	for _, t := range tags {
		if t.Identifier == id {
			return t, nil
		}
	}
	return domain.Tag{}, domain.TagNotFound("find", id)
}

// AssetTags returns the tags set on one asset, in creation order
func (s *TagService) AssetTags(ctx context.Context, assetID int64) ([]domain.Tag, error) {
	asset, err := s.catalog.Get(ctx, assetID)
	if err != nil {
		return nil, err
	}
	tags, err := s.tags.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return asset.TrueTags(tags), nil
}

// SortByUsage orders tag infos by count descending, then name
func SortByUsage(infos []TagInfo) {
	sort.SliceStable(infos, func(i, j int) bool {
		if infos[i].Count != infos[j].Count {
			return infos[i].Count > infos[j].Count
		}
		return infos[i].Tag.Name < infos[j].Tag.Name
	})
}
