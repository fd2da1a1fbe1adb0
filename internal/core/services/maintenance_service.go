package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/kamal-hamza/hx-cli/internal/core/domain"
	"github.com/kamal-hamza/hx-cli/internal/core/ports"
	"github.com/kamal-hamza/hx-cli/pkg/vault"
)

// MaintenanceService finds and repairs inconsistencies between the
// catalog and the storage root
type MaintenanceService struct {
	vault    *vault.Vault
	catalog  ports.CatalogRepository
	previews ports.PreviewGenerator
	remover  *RemoveService
}

// NewMaintenanceService creates a new maintenance service
func NewMaintenanceService(v *vault.Vault, catalog ports.CatalogRepository, previews ports.PreviewGenerator) *MaintenanceService {
	return &MaintenanceService{
		vault:    v,
		catalog:  catalog,
		previews: previews,
		remover:  NewRemoveService(v, catalog),
	}
}

// MissingFiles is a finalized asset whose files are not on disk
type MissingFiles struct {
	Asset          domain.Asset
	SourceMissing  bool
	PreviewMissing bool
}

// Report is the result of a health check
type Report struct {
	Pending      []domain.Asset // allocated but never finalized
	Missing      []MissingFiles
	StrayFolders []string // asset-shaped folders with no record
	Checked      int
}

// Healthy reports whether nothing needs attention
func (r *Report) Healthy() bool {
	return len(r.Pending) == 0 && len(r.Missing) == 0 && len(r.StrayFolders) == 0
}

// Diagnose inspects every record and the top level of the storage root
func (s *MaintenanceService) Diagnose(ctx context.Context) (*Report, error) {
	pending, err := s.catalog.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending assets: %w", err)
	}
	assets, err := s.catalog.Query(ctx, domain.Query{SortKey: domain.SortByName})
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	report := &Report{Pending: pending, Checked: len(pending) + len(assets)}
	known := make(map[int64]bool, report.Checked)
	for _, a := range pending {
		known[a.ID] = true
	}
	for _, a := range assets {
		known[a.ID] = true
		m := MissingFiles{
			Asset:          a,
			SourceMissing:  !fileExists(a.SourcePath),
			PreviewMissing: !fileExists(a.PreviewPath),
		}
		if m.SourceMissing || m.PreviewMissing {
			report.Missing = append(report.Missing, m)
		}
	}
	sort.Slice(report.Missing, func(i, j int) bool { return report.Missing[i].Asset.ID < report.Missing[j].Asset.ID })

	strays, err := s.strayFolders(known, referencedFolders(s.vault, pending, assets))
	if err != nil {
		return nil, err
	}
	report.StrayFolders = strays
	return report, nil
}

// strayFolders lists "NNNNN_name" folders under the root that no record keeps
// files in and whose id has no record. Migrated records keep their old
// folders under new ids, so the paths are checked before the prefix.
func (s *MaintenanceService) strayFolders(known map[int64]bool, refs map[string][]int64) ([]string, error) {
	entries, err := os.ReadDir(s.vault.RootPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &domain.StorageError{Path: s.vault.RootPath, Op: "scan", Inner: err}
	}

	var strays []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id, ok := ParseAssetFolderID(e.Name())
		if !ok {
			continue
		}
		dir := filepath.Join(s.vault.RootPath, e.Name())
		if len(refs[filepath.Clean(dir)]) > 0 || known[id] {
			continue
		}
		strays = append(strays, dir)
	}
	return strays, nil
}

// CleanRequest selects what Clean repairs
type CleanRequest struct {
	DryRun             bool
	RemoveMissing      bool // delete records whose source file is gone
	RemoveStrays       bool // delete asset-shaped folders with no record
	RegeneratePreviews bool // rebuild missing previews of present sources
}

// CleanResponse lists what was, or would be, changed
type CleanResponse struct {
	RemovedPending []int64
	RemovedMissing []int64
	RemovedStrays  []string
	Regenerated    []int64
	Errors         []error
}

// Clean repairs what Diagnose reports. Pending records are always removed.
func (s *MaintenanceService) Clean(ctx context.Context, req CleanRequest) (*CleanResponse, error) {
	report, err := s.Diagnose(ctx)
	if err != nil {
		return nil, err
	}

	resp := &CleanResponse{}
	for _, a := range report.Pending {
		if !req.DryRun {
			if _, err := s.remover.Execute(ctx, RemoveRequest{ID: a.ID}); err != nil {
				resp.Errors = append(resp.Errors, err)
				continue
			}
		}
		resp.RemovedPending = append(resp.RemovedPending, a.ID)
	}

	for _, m := range report.Missing {
		switch {
		case m.SourceMissing && req.RemoveMissing:
			if !req.DryRun {
				if _, err := s.remover.Execute(ctx, RemoveRequest{ID: m.Asset.ID}); err != nil {
					resp.Errors = append(resp.Errors, err)
					continue
				}
			}
			resp.RemovedMissing = append(resp.RemovedMissing, m.Asset.ID)
		case !m.SourceMissing && m.PreviewMissing && req.RegeneratePreviews:
			if !req.DryRun {
				if _, err := s.RegeneratePreview(ctx, m.Asset.ID); err != nil {
					resp.Errors = append(resp.Errors, err)
					continue
				}
			}
			resp.Regenerated = append(resp.Regenerated, m.Asset.ID)
		}
	}

	if req.RemoveStrays {
		for _, dir := range report.StrayFolders {
			if !req.DryRun {
				if _, err := removeFolder(dir); err != nil {
					resp.Errors = append(resp.Errors, err)
					continue
				}
			}
			resp.RemovedStrays = append(resp.RemovedStrays, dir)
		}
	}

	log.Info().
		Bool("dry_run", req.DryRun).
		Int("pending", len(resp.RemovedPending)).
		Int("missing", len(resp.RemovedMissing)).
		Int("strays", len(resp.RemovedStrays)).
		Int("regenerated", len(resp.Regenerated)).
		Int("errors", len(resp.Errors)).
		Msg("clean finished")
	return resp, nil
}

// RegeneratePreview rewrites the preview of a finalized asset from its source
func (s *MaintenanceService) RegeneratePreview(ctx context.Context, id int64) (string, error) {
	asset, err := s.catalog.Get(ctx, id)
	if err != nil {
		return "", fmt.Errorf("regenerate preview: %w", err)
	}
	if !asset.IsFinalized() {
		return "", fmt.Errorf("regenerate preview for asset %d: import never completed", id)
	}

	out, err := s.previews.Generate(ctx, asset.SourcePath, asset.PreviewPath)
	if err != nil {
		return "", fmt.Errorf("regenerate preview for asset %d: %w", id, err)
	}
	log.Info().Int64("asset_id", id).Str("preview", out).Msg("preview regenerated")
	return out, nil
}

// ParseAssetFolderID extracts N from a "NNNNN_name" folder name
func ParseAssetFolderID(name string) (int64, bool) {
	digits, rest, ok := strings.Cut(name, "_")
	if !ok || rest == "" || len(digits) < 5 {
		return 0, false
	}
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
