package services

import (
	"context"
	"errors"
	"testing"

	"github.com/kamal-hamza/hx-cli/internal/core/domain"
)

func TestTagService_ListWithUsage(t *testing.T) {
	catalog := seedCatalog(t, []string{"A", "B", "C"}, map[string][]string{
		"Outdoor": {"A", "B"},
		"Indoor":  {"C"},
		"Night":   nil,
	})
	svc := NewTagService(catalog, catalog)

	infos, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("expected 3 tags, got %d", len(infos))
	}

	counts := map[string]int{}
	for _, info := range infos {
		counts[info.Tag.Name] = info.Count
	}
	if counts["Outdoor"] != 2 || counts["Indoor"] != 1 || counts["Night"] != 0 {
		t.Errorf("counts = %v", counts)
	}

	SortByUsage(infos)
	if infos[0].Tag.Name != "Outdoor" || infos[2].Tag.Name != "Night" {
		t.Errorf("SortByUsage order = %v", infos)
	}
}

func TestTagService_AddMarksAsset(t *testing.T) {
	catalog := seedCatalog(t, []string{"A", "B"}, nil)
	svc := NewTagService(catalog, catalog)
	ctx := context.Background()

	tag, err := svc.Add(ctx, "Golden Hour", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tag.Identifier != "tag_golden_hour" {
		t.Errorf("Identifier = %q", tag.Identifier)
	}

	if v, _ := svc.Get(ctx, "golden hour", 1); !v {
		t.Error("invoking asset should have the new tag")
	}
	if v, _ := svc.Get(ctx, "tag_golden_hour", 2); v {
		t.Error("other assets start false")
	}

	// Adding the same name again is a no-op that still marks the asset
	if _, err := svc.Add(ctx, "  golden   HOUR ", 2); err != nil {
		t.Fatalf("re-adding same name: %v", err)
	}
	if v, _ := svc.Get(ctx, "golden hour", 2); !v {
		t.Error("re-add should mark the invoking asset")
	}
	infos, _ := svc.List(ctx)
	if len(infos) != 1 {
		t.Errorf("expected one tag, got %d", len(infos))
	}

	if _, err := svc.Add(ctx, "Golden Hour!", 0); !errors.Is(err, domain.ErrTagCollision) {
		t.Errorf("expected ErrTagCollision, got %v", err)
	}
	if _, err := svc.Add(ctx, "  ", 0); !errors.Is(err, domain.ErrInvalidTag) {
		t.Errorf("expected ErrInvalidTag, got %v", err)
	}
}

func TestTagService_Remove(t *testing.T) {
	catalog := seedCatalog(t, []string{"A"}, map[string][]string{"Outdoor": {"A"}, "Night": nil})
	svc := NewTagService(catalog, catalog)
	ctx := context.Background()

	removed, err := svc.Remove(ctx, "Outdoor")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed.Name != "Outdoor" {
		t.Errorf("removed = %+v", removed)
	}

	tags, _ := svc.AssetTags(ctx, 1)
	if len(tags) != 0 {
		t.Errorf("asset still has %v", tags)
	}

	before, _ := svc.List(ctx)
	if _, err := svc.Remove(ctx, "tag_snow"); !errors.Is(err, domain.ErrUnknownTag) {
		t.Errorf("expected ErrUnknownTag, got %v", err)
	}
	after, _ := svc.List(ctx)
	if len(before) != len(after) {
		t.Error("failed removal changed the tag list")
	}
}

func TestTagService_SetMany(t *testing.T) {
	catalog := seedCatalog(t, []string{"A", "B", "C"}, map[string][]string{"Outdoor": nil})
	svc := NewTagService(catalog, catalog)
	ctx := context.Background()

	if err := svc.Set(ctx, "outdoor", true, 1, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	infos, _ := svc.List(ctx)
	if infos[0].Count != 2 {
		t.Errorf("count = %d, want 2", infos[0].Count)
	}

	if err := svc.Set(ctx, "outdoor", false, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := svc.Get(ctx, "outdoor", 3); v {
		t.Error("value not cleared")
	}

	if err := svc.Set(ctx, "snow", true, 1); !errors.Is(err, domain.ErrUnknownTag) {
		t.Errorf("expected ErrUnknownTag, got %v", err)
	}
	if err := svc.Set(ctx, "outdoor", true, 42); !errors.Is(err, domain.ErrUnknownAsset) {
		t.Errorf("expected ErrUnknownAsset, got %v", err)
	}
}

func TestTagService_FindAndAssetTags(t *testing.T) {
	catalog := seedCatalog(t, []string{"A"}, nil)
	ctx := context.Background()
	catalog.AddTag(ctx, "Outdoor", 1)
	catalog.AddTag(ctx, "Night", 0)
	catalog.AddTag(ctx, "Golden Hour", 1)
	svc := NewTagService(catalog, catalog)

	tag, err := svc.Find(ctx, "OUTDOOR")
	if err != nil || tag.Identifier != "tag_outdoor" {
		t.Errorf("Find() = %+v, %v", tag, err)
	}

	tags, err := svc.AssetTags(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tags) != 2 || tags[0].Name != "Outdoor" || tags[1].Name != "Golden Hour" {
		t.Errorf("AssetTags() = %v, want creation order", tags)
	}

	if _, err := svc.AssetTags(ctx, 9); !errors.Is(err, domain.ErrUnknownAsset) {
		t.Errorf("expected ErrUnknownAsset, got %v", err)
	}
}
