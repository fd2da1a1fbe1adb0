package ports

import (
	"context"
	"time"

	"github.com/kamal-hamza/hx-cli/internal/core/domain"
)

// CatalogRepository defines the port for asset record persistence
type CatalogRepository interface {
	// Create allocates a record with empty paths and every tag false
	Create(ctx context.Context, displayName string) (*domain.Asset, error)

	// Get retrieves a record by id, finalized or not
	Get(ctx context.Context, id int64) (*domain.Asset, error)

	// FinalizePaths sets both stored paths, making the record visible to queries
	FinalizePaths(ctx context.Context, id int64, sourcePath, previewPath string) error

	// UpdateName changes the display name
	UpdateName(ctx context.Context, id int64, name string) error

	// SetTag sets one tag value on a record
	SetTag(ctx context.Context, id int64, tagRef string, value bool) error

	// Delete removes the record. It never touches the filesystem.
	Delete(ctx context.Context, id int64) error

	// Query returns finalized records matching q, fully materialized
	Query(ctx context.Context, q domain.Query) ([]domain.Asset, error)

	// ListPending returns records that were allocated but never finalized
	ListPending(ctx context.Context) ([]domain.Asset, error)

	// RestoreBatch inserts complete records keeping their creation times and
	// paths, all in one transaction. Tag values referring to undefined tags
	// reject the whole batch.
	RestoreBatch(ctx context.Context, assets []domain.Asset) ([]domain.Asset, error)
}

// TagRepository defines the port for the tag schema
type TagRepository interface {
	// ListTags returns all tags in creation order
	ListTags(ctx context.Context) ([]domain.Tag, error)

	// AddTag defines a tag. fromAsset, when non-zero, gets the value true.
	AddTag(ctx context.Context, name string, fromAsset int64) (domain.Tag, error)

	// RemoveTag drops the tag and every value of it
	RemoveTag(ctx context.Context, ref string) error

	// GetTagValue reads one value
	GetTagValue(ctx context.Context, ref string, assetID int64) (bool, error)

	// SetTagValue writes one value
	SetTagValue(ctx context.Context, ref string, assetID int64, value bool) error

	// TagUsage counts finalized records per tag identifier
	TagUsage(ctx context.Context) (map[string]int, error)
}

// PreviewGenerator defines the port for thumbnail production
type PreviewGenerator interface {
	// Generate decodes inputPath and writes a bounded JPEG thumbnail to outputPath.
	// Failures are returned as *domain.PreviewError.
	Generate(ctx context.Context, inputPath, outputPath string) (string, error)

	// Placeholder writes a flat grey thumbnail to outputPath
	Placeholder(outputPath string) error
}

// LegacySource reads catalogs written by the old single-table layout
type LegacySource interface {
	// TagColumns lists the per-tag boolean columns in table order
	TagColumns(ctx context.Context) ([]string, error)

	// Records returns every legacy row, tag values keyed by column name
	Records(ctx context.Context) ([]domain.LegacyRecord, error)
}

// Clock abstracts the creation timestamp source
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
