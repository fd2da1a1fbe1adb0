package mocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kamal-hamza/hx-cli/internal/core/domain"
)

// MockCatalog is an in-memory implementation of both CatalogRepository and
// TagRepository for testing
type MockCatalog struct {
	mu       sync.RWMutex
	assets   map[int64]*domain.Asset
	tags     []domain.Tag
	nextID   int64
	now      func() time.Time
	failures map[string]error
	calls    []string

	restoreCheck func(domain.Asset) error
}

// NewMockCatalog creates a new empty mock catalog
func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		assets:   make(map[int64]*domain.Asset),
		nextID:   1,
		now:      time.Now,
		failures: make(map[string]error),
	}
}

// SetFailure makes the named operation ("Create", "Delete", ...) return err.
// A nil err clears it.
func (m *MockCatalog) SetFailure(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// SetRestoreCheck makes RestoreBatch reject any batch holding a record for
// which check returns an error
func (m *MockCatalog) SetRestoreCheck(check func(domain.Asset) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restoreCheck = check
}

// SetNow replaces the creation clock
func (m *MockCatalog) SetNow(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// GetCalls returns the names of the operations invoked so far
func (m *MockCatalog) GetCalls() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calls := make([]string, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// Len returns the number of stored records, finalized or not
func (m *MockCatalog) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.assets)
}

func (m *MockCatalog) enter(op string) error {
	m.calls = append(m.calls, op)
	return m.failures[op]
}

func (m *MockCatalog) snapshot(a *domain.Asset) domain.Asset {
	out := *a
	out.Tags = make(map[string]bool, len(m.tags))
	for _, t := range m.tags {
		out.Tags[t.Identifier] = a.Tags[t.Identifier]
	}
	return out
}

func (m *MockCatalog) hasTag(id string) bool {
	for _, t := range m.tags {
		if t.Identifier == id {
			return true
		}
	}
	return false
}

// Create allocates a record
func (m *MockCatalog) Create(ctx context.Context, displayName string) (*domain.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("Create"); err != nil {
		return nil, err
	}

	name, err := domain.ValidateDisplayName(displayName)
	if err != nil {
		return nil, fmt.Errorf("create asset: %w", err)
	}

	a := &domain.Asset{
		ID:          m.nextID,
		DisplayName: name,
		CreatedAt:   m.now().UTC(),
		Tags:        make(map[string]bool),
	}
	m.assets[a.ID] = a
	m.nextID++

	out := m.snapshot(a)
	return &out, nil
}

// Get retrieves a record by id
func (m *MockCatalog) Get(ctx context.Context, id int64) (*domain.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("Get"); err != nil {
		return nil, err
	}

	a, ok := m.assets[id]
	if !ok {
		return nil, domain.AssetNotFound("get", id)
	}
	out := m.snapshot(a)
	return &out, nil
}

// FinalizePaths sets both stored paths
func (m *MockCatalog) FinalizePaths(ctx context.Context, id int64, sourcePath, previewPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("FinalizePaths"); err != nil {
		return err
	}

	a, ok := m.assets[id]
	if !ok {
		return domain.AssetNotFound("finalize", id)
	}
	a.SourcePath = sourcePath
	a.PreviewPath = previewPath
	return nil
}

// UpdateName changes the display name
func (m *MockCatalog) UpdateName(ctx context.Context, id int64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateName"); err != nil {
		return err
	}

	trimmed, err := domain.ValidateDisplayName(name)
	if err != nil {
		return fmt.Errorf("rename asset %d: %w", id, err)
	}
	a, ok := m.assets[id]
	if !ok {
		return domain.AssetNotFound("rename", id)
	}
	a.DisplayName = trimmed
	return nil
}

// SetTag sets one tag value
func (m *MockCatalog) SetTag(ctx context.Context, id int64, tagRef string, value bool) error {
	return m.SetTagValue(ctx, tagRef, id, value)
}

// Delete removes a record
func (m *MockCatalog) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("Delete"); err != nil {
		return err
	}
	if _, ok := m.assets[id]; !ok {
		return domain.AssetNotFound("delete", id)
	}
	delete(m.assets, id)
	return nil
}

// Query filters and sorts finalized records in memory
func (m *MockCatalog) Query(ctx context.Context, q domain.Query) ([]domain.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("Query"); err != nil {
		return nil, err
	}

	nq, err := q.Normalized()
	if err != nil {
		return nil, err
	}
	for _, id := range nq.Tags {
		if !m.hasTag(id) {
			return nil, domain.TagNotFound("query", id)
		}
	}

	needle := strings.TrimSpace(nq.NameFilter)
	var results []domain.Asset
	for _, a := range m.assets {
		if !a.IsFinalized() {
			continue
		}
		if needle != "" {
			hay, n := a.DisplayName, needle
			if !nq.CaseSensitive {
				hay, n = strings.ToLower(hay), strings.ToLower(n)
			}
			if !strings.Contains(hay, n) {
				continue
			}
		}
		if len(nq.Tags) > 0 && !matchTags(a, nq.Tags, nq.Mode) {
			continue
		}
		results = append(results, m.snapshot(a))
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		var c int
		if nq.SortKey == domain.SortByCreated {
			c = a.CreatedAt.Compare(b.CreatedAt)
		} else {
			c = strings.Compare(strings.ToLower(a.DisplayName), strings.ToLower(b.DisplayName))
		}
		if nq.SortDir == domain.SortDesc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
	return results, nil
}

func matchTags(a *domain.Asset, ids []string, mode domain.FilterMode) bool {
	for _, id := range ids {
		if a.Tags[id] && mode == domain.FilterAny {
			return true
		}
		if !a.Tags[id] && mode == domain.FilterAll {
			return false
		}
	}
	return mode == domain.FilterAll
}

// ListPending returns unfinalized records by id
func (m *MockCatalog) ListPending(ctx context.Context) ([]domain.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListPending"); err != nil {
		return nil, err
	}

	var pending []domain.Asset
	for _, a := range m.assets {
		if !a.IsFinalized() {
			pending = append(pending, m.snapshot(a))
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })
	return pending, nil
}

// RestoreBatch inserts complete records. A rejected record rejects the batch.
func (m *MockCatalog) RestoreBatch(ctx context.Context, assets []domain.Asset) ([]domain.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("RestoreBatch"); err != nil {
		return nil, err
	}

	staged := make([]*domain.Asset, 0, len(assets))
	for i, asset := range assets {
		if m.restoreCheck != nil {
			if err := m.restoreCheck(asset); err != nil {
				return nil, err
			}
		}
		name, err := domain.ValidateDisplayName(asset.DisplayName)
		if err != nil {
			return nil, fmt.Errorf("restore asset: %w", err)
		}
		a := &domain.Asset{
			ID:          m.nextID + int64(i),
			SourcePath:  asset.SourcePath,
			PreviewPath: asset.PreviewPath,
			DisplayName: name,
			CreatedAt:   asset.CreatedAt.UTC(),
			Tags:        make(map[string]bool),
		}
		for id, v := range asset.Tags {
			if !m.hasTag(id) {
				return nil, domain.TagNotFound("restore", id)
			}
			a.Tags[id] = v
		}
		staged = append(staged, a)
	}

	out := make([]domain.Asset, 0, len(staged))
	for _, a := range staged {
		m.assets[a.ID] = a
		out = append(out, m.snapshot(a))
	}
	m.nextID += int64(len(staged))
	return out, nil
}

// --- Tag schema ---

// ListTags returns tags in creation order
func (m *MockCatalog) ListTags(ctx context.Context) ([]domain.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListTags"); err != nil {
		return nil, err
	}
	tags := make([]domain.Tag, len(m.tags))
	copy(tags, m.tags)
	return tags, nil
}

// AddTag defines a tag, reusing an existing one with the same normalized name
func (m *MockCatalog) AddTag(ctx context.Context, name string, fromAsset int64) (domain.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("AddTag"); err != nil {
		return domain.Tag{}, err
	}

	tag, err := domain.NewTag(name)
	if err != nil {
		return domain.Tag{}, err
	}

	var from *domain.Asset
	if fromAsset != 0 {
		a, ok := m.assets[fromAsset]
		if !ok {
			return domain.Tag{}, domain.AssetNotFound("add tag", fromAsset)
		}
		from = a
	}

	found := false
	for _, t := range m.tags {
		if t.Identifier != tag.Identifier {
			continue
		}
		if domain.NormalizeTagName(t.Name) != domain.NormalizeTagName(tag.Name) {
			return domain.Tag{}, fmt.Errorf("add tag %q collides with %q: %w", tag.Name, t.Name, domain.ErrTagCollision)
		}
		tag, found = t, true
		break
	}
	if !found {
		m.tags = append(m.tags, tag)
	}
	if from != nil {
		from.Tags[tag.Identifier] = true
	}
	return tag, nil
}

// RemoveTag drops a tag and all of its values
func (m *MockCatalog) RemoveTag(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("RemoveTag"); err != nil {
		return err
	}

	id, err := domain.ResolveTagRef(ref)
	if err != nil {
		return err
	}
	for i, t := range m.tags {
		if t.Identifier == id {
			m.tags = append(m.tags[:i], m.tags[i+1:]...)
			for _, a := range m.assets {
				delete(a.Tags, id)
			}
			return nil
		}
	}
	return domain.TagNotFound("remove", id)
}

// GetTagValue reads one value
func (m *MockCatalog) GetTagValue(ctx context.Context, ref string, assetID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetTagValue"); err != nil {
		return false, err
	}

	id, err := domain.ResolveTagRef(ref)
	if err != nil {
		return false, err
	}
	if !m.hasTag(id) {
		return false, domain.TagNotFound("get", id)
	}
	a, ok := m.assets[assetID]
	if !ok {
		return false, domain.AssetNotFound("get tag", assetID)
	}
	return a.Tags[id], nil
}

// SetTagValue writes one value
func (m *MockCatalog) SetTagValue(ctx context.Context, ref string, assetID int64, value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("SetTagValue"); err != nil {
		return err
	}

	id, err := domain.ResolveTagRef(ref)
	if err != nil {
		return err
	}
	if !m.hasTag(id) {
		return domain.TagNotFound("set", id)
	}
	a, ok := m.assets[assetID]
	if !ok {
		return domain.AssetNotFound("set tag", assetID)
	}
	if value {
		a.Tags[id] = true
	} else {
		delete(a.Tags, id)
	}
	return nil
}

// TagUsage counts finalized records per tag
func (m *MockCatalog) TagUsage(ctx context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("TagUsage"); err != nil {
		return nil, err
	}

	usage := make(map[string]int, len(m.tags))
	for _, t := range m.tags {
		usage[t.Identifier] = 0
	}
	for _, a := range m.assets {
		if !a.IsFinalized() {
			continue
		}
		for id, v := range a.Tags {
			if v {
				usage[id]++
			}
		}
	}
	return usage, nil
}
