package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/kamal-hamza/hx-cli/internal/core/domain"
	"github.com/kamal-hamza/hx-cli/internal/core/ports"
)

// MigrateService copies a legacy single-table catalog into the current one
type MigrateService struct {
	catalog ports.CatalogRepository
	tags    ports.TagRepository
	clock   ports.Clock
}

// NewMigrateService creates a new migrate service
func NewMigrateService(catalog ports.CatalogRepository, tags ports.TagRepository, clock ports.Clock) *MigrateService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &MigrateService{
		catalog: catalog,
		tags:    tags,
		clock:   clock,
	}
}

// MigrateRequest represents a legacy import
type MigrateRequest struct {
	Source ports.LegacySource
	DryRun bool
}

// MigrateResponse summarizes a legacy import
type MigrateResponse struct {
	TagsCreated []domain.Tag
	TagsReused  []domain.Tag
	Imported    []int64  // new ids; legacy ids on a dry run
	Skipped     []string // one reason per skipped row or column
}

// Execute maps every tag_* column to a tag, then restores each row with
// its paths, name, upload date and tag values
func (s *MigrateService) Execute(ctx context.Context, req MigrateRequest) (*MigrateResponse, error) {
	if req.Source == nil {
		return nil, errors.New("migrate: no legacy source")
	}

	columns, err := req.Source.TagColumns(ctx)
	if err != nil {
		return nil, &domain.SchemaError{Op: "migrate", Inner: err}
	}
	rows, err := req.Source.Records(ctx)
	if err != nil {
		return nil, &domain.SchemaError{Op: "migrate", Inner: err}
	}

	existing, err := s.tags.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defined := make(map[string]domain.Tag, len(existing))
	for _, t := range existing {
		defined[t.Identifier] = t
	}

	resp := &MigrateResponse{}
	mapping := make(map[string]string, len(columns)) // legacy column -> identifier
	for _, col := range columns {
		tag, err := domain.NewTag(domain.NameFromLegacyColumn(col))
		if err != nil {
			resp.Skipped = append(resp.Skipped, fmt.Sprintf("column %s: %v", col, err))
			continue
		}
		if prev, ok := defined[tag.Identifier]; ok {
			mapping[col] = prev.Identifier
			resp.TagsReused = append(resp.TagsReused, prev)
			continue
		}
		if !req.DryRun {
			tag, err = s.tags.AddTag(ctx, tag.Name, 0)
			if err != nil {
				resp.Skipped = append(resp.Skipped, fmt.Sprintf("column %s: %v", col, err))
				continue
			}
		}
		defined[tag.Identifier] = tag
		mapping[col] = tag.Identifier
		resp.TagsCreated = append(resp.TagsCreated, tag)
	}

	var batch []pendingRestore
	for _, row := range rows {
		asset, reason := s.convert(row, mapping)
		if reason != "" {
			resp.Skipped = append(resp.Skipped, fmt.Sprintf("legacy row %d: %s", row.ID, reason))
			continue
		}
		if req.DryRun {
			resp.Imported = append(resp.Imported, row.ID)
			continue
		}
		batch = append(batch, pendingRestore{legacyID: row.ID, asset: asset})
		if len(batch) == migrateBatchSize {
			if err := s.restore(ctx, batch, resp); err != nil {
				return resp, err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := s.restore(ctx, batch, resp); err != nil {
			return resp, err
		}
	}

	log.Info().
		Int("tags_created", len(resp.TagsCreated)).
		Int("tags_reused", len(resp.TagsReused)).
		Int("imported", len(resp.Imported)).
		Int("skipped", len(resp.Skipped)).
		Bool("dry_run", req.DryRun).
		Msg("legacy migration finished")
	return resp, nil
}

// migrateBatchSize is the number of legacy rows restored per transaction
const migrateBatchSize = 100

type pendingRestore struct {
	legacyID int64
	asset    domain.Asset
}

// restore writes one batch in a single transaction. When the batch is
// rejected each row is retried alone so one bad row only skips itself.
func (s *MigrateService) restore(ctx context.Context, batch []pendingRestore, resp *MigrateResponse) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	assets := make([]domain.Asset, len(batch))
	for i, p := range batch {
		assets[i] = p.asset
	}
	restored, err := s.catalog.RestoreBatch(ctx, assets)
	if err == nil {
		for i, a := range restored {
			resp.Imported = append(resp.Imported, a.ID)
			log.Debug().Int64("legacy_id", batch[i].legacyID).Int64("asset_id", a.ID).Msg("legacy record restored")
		}
		return nil
	}
	if len(batch) == 1 {
		resp.Skipped = append(resp.Skipped, fmt.Sprintf("legacy row %d: %v", batch[0].legacyID, err))
		return nil
	}

	log.Warn().Err(err).Int("rows", len(batch)).Msg("legacy batch rejected, retrying row by row")
	for i := range batch {
		if err := s.restore(ctx, batch[i:i+1], resp); err != nil {
			return err
		}
	}
	return nil
}

// convert builds the record for one legacy row, or returns why it is skipped
func (s *MigrateService) convert(row domain.LegacyRecord, mapping map[string]string) (domain.Asset, string) {
	if row.FilePath == "" || row.PreviewPath == "" {
		return domain.Asset{}, "import never completed"
	}

	name := strings.TrimSpace(row.Name)
	if name == "" {
		name = DisplayNameFromPath(row.FilePath)
	}
	if name == "" {
		return domain.Asset{}, "no display name"
	}

	created := row.UploadDate
	if created.IsZero() {
		created = s.clock.Now()
	}

	tags := make(map[string]bool)
	for col, v := range row.Tags {
		if id, ok := mapping[col]; ok && v {
			tags[id] = true
		}
	}

	return domain.Asset{
		SourcePath:  row.FilePath,
		PreviewPath: row.PreviewPath,
		DisplayName: name,
		CreatedAt:   created,
		Tags:        tags,
	}, ""
}
