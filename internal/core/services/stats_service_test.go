package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/kamal-hamza/hx-cli/internal/core/ports/mocks"
	"github.com/kamal-hamza/hx-cli/pkg/vault"
)

func TestStatsService_Execute(t *testing.T) {
	v := &vault.Vault{RootPath: t.TempDir()}
	catalog := mocks.NewMockCatalog()
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	catalog.SetNow(func() time.Time {
		n++
		return base.AddDate(0, 0, n)
	})

	a := addStoredAsset(t, catalog, v, "A")
	b := addStoredAsset(t, catalog, v, "B")
	addStoredAsset(t, catalog, v, "C")
	catalog.Create(ctx, "Pending")
	catalog.AddTag(ctx, "Outdoor", a.ID)
	catalog.SetTagValue(ctx, "outdoor", b.ID, true)
	catalog.AddTag(ctx, "Night", 0)

	st, err := NewStatsService(catalog, catalog).Execute(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if st.Assets != 3 || st.Pending != 1 || st.Untagged != 1 {
		t.Errorf("stats = %+v", st)
	}
	if len(st.Tags) != 2 || st.Tags[0].Count != 2 || st.Tags[1].Count != 0 {
		t.Errorf("tags = %+v", st.Tags)
	}
	if !st.Oldest.Equal(base.AddDate(0, 0, 1)) || !st.Newest.Equal(base.AddDate(0, 0, 3)) {
		t.Errorf("range = %v .. %v", st.Oldest, st.Newest)
	}

	if len(st.ByMonth) != 1 || st.ByMonth[0] != (MonthCount{Month: "2024-01", Count: 3}) {
		t.Errorf("ByMonth = %+v", st.ByMonth)
	}

	info, _ := os.Stat(a.SourcePath)
	if st.SourceBytes != 3*info.Size() {
		t.Errorf("SourceBytes = %d", st.SourceBytes)
	}
}

func TestStatsService_Execute_Empty(t *testing.T) {
	catalog := mocks.NewMockCatalog()
	st, err := NewStatsService(catalog, catalog).Execute(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Assets != 0 || !st.Oldest.IsZero() || len(st.Tags) != 0 {
		t.Errorf("stats = %+v", st)
	}
}
