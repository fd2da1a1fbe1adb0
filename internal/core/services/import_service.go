package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kamal-hamza/hx-cli/internal/core/domain"
	"github.com/kamal-hamza/hx-cli/internal/core/ports"
	"github.com/kamal-hamza/hx-cli/pkg/vault"
)

// ImportOptions controls preview naming and the preview failure policy
type ImportOptions struct {
	PreviewFileName    string
	PlaceholderOnError bool
}

// DefaultImportOptions writes preview.jpg and falls back to a placeholder
func DefaultImportOptions() ImportOptions {
	return ImportOptions{
		PreviewFileName:    "preview.jpg",
		PlaceholderOnError: true,
	}
}

// ImportService copies a file into the store, previews it and records it
type ImportService struct {
	vault    *vault.Vault
	catalog  ports.CatalogRepository
	tags     ports.TagRepository
	previews ports.PreviewGenerator
	opts     ImportOptions
}

// NewImportService creates a new import service
func NewImportService(v *vault.Vault, catalog ports.CatalogRepository, tags ports.TagRepository, previews ports.PreviewGenerator, opts ImportOptions) *ImportService {
	if opts.PreviewFileName == "" {
		opts.PreviewFileName = DefaultImportOptions().PreviewFileName
	}
	return &ImportService{
		vault:    v,
		catalog:  catalog,
		tags:     tags,
		previews: previews,
		opts:     opts,
	}
}

// ImportRequest represents one file to import
type ImportRequest struct {
	SourcePath  string
	DisplayName string   // defaults to the file name without extension
	Tags        []string // applied after the record is finalized
}

// ImportResponse represents a completed import
type ImportResponse struct {
	Asset           *domain.Asset
	OpID            string
	PlaceholderUsed bool
	Warnings        []string
}

// importRun holds the progress of one import so a failure can be unwound
type importRun struct {
	opID          string
	stage         domain.ImportStage
	asset         *domain.Asset
	folder        string
	createdFolder bool
}

// Execute runs the import through ALLOCATED, FOLDER_CREATED, FILE_COPIED,
// PREVIEW_READY and FINALIZED. A fatal failure removes what was created.
func (s *ImportService) Execute(ctx context.Context, req ImportRequest) (*ImportResponse, error) {
	src, err := filepath.Abs(req.SourcePath)
	if err != nil {
		return nil, &domain.StorageError{Path: req.SourcePath, Op: "open", Inner: err}
	}
	info, err := os.Stat(src)
	if err != nil {
		return nil, &domain.StorageError{Path: src, Op: "open", Inner: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &domain.StorageError{Path: src, Op: "open", Inner: errors.New("not a regular file")}
	}

	name := req.DisplayName
	if strings.TrimSpace(name) == "" {
		name = DisplayNameFromPath(src)
	}
	if _, err := domain.ValidateDisplayName(name); err != nil {
		return nil, fmt.Errorf("import %s: %w", src, err)
	}

	run := &importRun{opID: uuid.NewString()}
	logger := log.With().Str("op_id", run.opID).Str("path", src).Logger()

	// ALLOCATED
	asset, err := s.catalog.Create(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", src, err)
	}
	run.asset = asset
	run.stage = domain.StageAllocated
	logger.Debug().Int64("asset_id", asset.ID).Stringer("stage", run.stage).Msg("record allocated")

	resp := &ImportResponse{OpID: run.opID}
	fail := func(err error) (*ImportResponse, error) {
		s.rollback(run)
		return nil, fmt.Errorf("import asset %d at stage %s: %w", run.asset.ID, run.stage, err)
	}

	// FOLDER_CREATED
	run.folder = s.vault.GetAssetFolder(asset.ID, asset.DisplayName)
	if err := os.MkdirAll(s.vault.RootPath, 0755); err != nil {
		return fail(&domain.StorageError{Path: s.vault.RootPath, Op: "create", Inner: err})
	}
	if err := os.Mkdir(run.folder, 0755); err != nil {
		return fail(&domain.StorageError{Path: run.folder, Op: "create", Inner: err})
	}
	run.createdFolder = true
	run.stage = domain.StageFolderCreated
	logger.Debug().Int64("asset_id", asset.ID).Stringer("stage", run.stage).Str("folder", run.folder).Msg("folder created")

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	// FILE_COPIED
	copied := filepath.Join(run.folder, filepath.Base(src))
	if err := copyFile(src, copied); err != nil {
		return fail(err)
	}
	run.stage = domain.StageFileCopied
	logger.Debug().Int64("asset_id", asset.ID).Stringer("stage", run.stage).Msg("source copied")

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	// PREVIEW_READY
	previewPath := filepath.Join(run.folder, PreviewFileNameFor(filepath.Base(src), s.opts.PreviewFileName))
	if _, err := s.previews.Generate(ctx, copied, previewPath); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || !s.opts.PlaceholderOnError {
			return fail(err)
		}
		logger.Warn().Err(err).Int64("asset_id", asset.ID).Msg("preview failed, using placeholder")
		if perr := s.previews.Placeholder(previewPath); perr != nil {
			return fail(&domain.StorageError{Path: previewPath, Op: "placeholder", Inner: perr})
		}
		resp.PlaceholderUsed = true
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("asset %d: preview not generated (%v); placeholder used", asset.ID, err))
	}
	run.stage = domain.StagePreviewReady

	// FINALIZED
	if err := s.catalog.FinalizePaths(ctx, asset.ID, copied, previewPath); err != nil {
		return fail(err)
	}
	run.stage = domain.StageFinalized
	logger.Info().Int64("asset_id", asset.ID).Str("name", asset.DisplayName).Msg("asset imported")

	for _, t := range req.Tags {
		if _, err := s.tags.AddTag(ctx, t, asset.ID); err != nil {
			logger.Warn().Err(err).Str("tag", t).Msg("tag not applied")
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("asset %d: tag %q not applied: %v", asset.ID, t, err))
		}
	}

	final, err := s.catalog.Get(ctx, asset.ID)
	if err != nil {
		return nil, fmt.Errorf("import asset %d: %w", asset.ID, err)
	}
	resp.Asset = final
	return resp, nil
}

// rollback makes a best-effort attempt to undo a failed import.
// A record that cannot be deleted stays unfinalized and is reported by doctor.
func (s *ImportService) rollback(run *importRun) {
	logger := log.With().Str("op_id", run.opID).Int64("asset_id", run.asset.ID).Stringer("stage", run.stage).Logger()

	if run.createdFolder {
		if err := os.RemoveAll(run.folder); err != nil {
			logger.Error().Err(err).Str("folder", run.folder).Msg("rollback: folder not removed")
		}
	}

	// A fresh context so a canceled import still unwinds
	if err := s.catalog.Delete(context.Background(), run.asset.ID); err != nil {
		logger.Error().Err(err).Msg("rollback: record left unfinalized")
		return
	}
	logger.Debug().Msg("import rolled back")
}

// DisplayNameFromPath derives a default display name from a file name.
// "sunset_beach_4k.hdr" -> "sunset beach 4k"
func DisplayNameFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return strings.Join(strings.Fields(base), " ")
}

// PreviewFileNameFor returns the preview name inside an asset folder,
// stepping aside when the source itself carries that name
func PreviewFileNameFor(sourceBase, previewName string) string {
	if !strings.EqualFold(sourceBase, previewName) {
		return previewName
	}
	ext := filepath.Ext(previewName)
	return strings.TrimSuffix(previewName, ext) + ".thumb" + ext
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return &domain.StorageError{Path: src, Op: "copy", Inner: err}
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return &domain.StorageError{Path: dst, Op: "copy", Inner: err}
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return &domain.StorageError{Path: dst, Op: "copy", Inner: err}
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return &domain.StorageError{Path: dst, Op: "copy", Inner: err}
	}
	if err := out.Close(); err != nil {
		return &domain.StorageError{Path: dst, Op: "copy", Inner: err}
	}
	return nil
}
