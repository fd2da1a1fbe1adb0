package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/kamal-hamza/hx-cli/internal/core/domain"
	"github.com/kamal-hamza/hx-cli/internal/core/ports"
	"github.com/kamal-hamza/hx-cli/pkg/vault"
)

// RemoveService deletes an asset folder and then its record
type RemoveService struct {
	vault   *vault.Vault
	catalog ports.CatalogRepository
}

// NewRemoveService creates a new remove service
func NewRemoveService(v *vault.Vault, catalog ports.CatalogRepository) *RemoveService {
	return &RemoveService{
		vault:   v,
		catalog: catalog,
	}
}

// RemoveRequest represents a request to remove one asset
type RemoveRequest struct {
	ID int64
}

// RemoveResponse reports what was removed
type RemoveResponse struct {
	Asset         *domain.Asset
	Folder        string
	FolderRemoved bool
	FilesRemoved  []string // set when the folder is shared and only this asset's files went
	Warnings      []string
}

// Execute removes the folder first so a failed folder deletion leaves the
// record in place, pointing at what is still on disk
func (s *RemoveService) Execute(ctx context.Context, req RemoveRequest) (*RemoveResponse, error) {
	asset, err := s.catalog.Get(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("remove asset %d: %w", req.ID, err)
	}

	resp := &RemoveResponse{Asset: asset, Folder: s.AssetFolder(asset)}
	logger := log.With().Int64("asset_id", asset.ID).Str("folder", resp.Folder).Logger()

	if !s.vault.Contains(resp.Folder) {
		logger.Warn().Msg("folder outside storage root, leaving it on disk")
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("asset %d: folder %s is outside the storage root and was kept", asset.ID, resp.Folder))
	} else {
		owned, err := s.ownsFolder(ctx, asset, resp.Folder)
		if err != nil {
			return nil, fmt.Errorf("remove asset %d: %w", asset.ID, err)
		}
		if owned {
			removed, err := removeFolder(resp.Folder)
			if err != nil {
				return nil, fmt.Errorf("remove asset %d: %w", asset.ID, err)
			}
			resp.FolderRemoved = removed
			if !removed {
				logger.Warn().Msg("folder already missing")
				resp.Warnings = append(resp.Warnings, fmt.Sprintf("asset %d: folder %s was already missing", asset.ID, resp.Folder))
			}
		} else {
			logger.Info().Msg("folder is shared, removing only the asset's files")
			for _, path := range []string{asset.SourcePath, asset.PreviewPath} {
				if path == "" || !s.vault.Contains(path) {
					continue
				}
				removed, err := removeFile(path)
				if err != nil {
					return nil, fmt.Errorf("remove asset %d: %w", asset.ID, err)
				}
				if removed {
					resp.FilesRemoved = append(resp.FilesRemoved, path)
				}
			}
			if len(resp.FilesRemoved) == 0 {
				resp.Warnings = append(resp.Warnings, fmt.Sprintf("asset %d: files in %s were already missing", asset.ID, resp.Folder))
			}
		}
	}

	if err := s.catalog.Delete(ctx, asset.ID); err != nil {
		return nil, fmt.Errorf("remove asset %d: %w", asset.ID, err)
	}

	logger.Info().Bool("folder_removed", resp.FolderRemoved).Msg("asset removed")
	return resp, nil
}

// AssetFolder returns the folder holding an asset's files. Finalized records
// use the folder of their source; unfinalized ones use the derived name.
func (s *RemoveService) AssetFolder(a *domain.Asset) string {
	if a.SourcePath != "" {
		return filepath.Dir(a.SourcePath)
	}
	return s.vault.GetAssetFolder(a.ID, a.DisplayName)
}

// ownsFolder reports whether dir is an asset folder that no other record
// keeps files in. Only such folders are deleted as a whole.
func (s *RemoveService) ownsFolder(ctx context.Context, asset *domain.Asset, dir string) (bool, error) {
	if _, ok := ParseAssetFolderID(filepath.Base(dir)); !ok {
		return false, nil
	}
	refs, err := folderReferences(ctx, s.vault, s.catalog)
	if err != nil {
		return false, err
	}
	for _, id := range refs[filepath.Clean(dir)] {
		if id != asset.ID {
			return false, nil
		}
	}
	return true, nil
}

// folderReferences maps every folder holding a file of some record, or the
// derived folder of an unfinalized one, to the ids of those records
func folderReferences(ctx context.Context, v *vault.Vault, catalog ports.CatalogRepository) (map[string][]int64, error) {
	pending, err := catalog.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending assets: %w", err)
	}
	assets, err := catalog.Query(ctx, domain.Query{SortKey: domain.SortByName})
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	return referencedFolders(v, pending, assets), nil
}

func referencedFolders(v *vault.Vault, pending, assets []domain.Asset) map[string][]int64 {
	refs := make(map[string][]int64)
	add := func(dir string, id int64) {
		dir = filepath.Clean(dir)
		for _, seen := range refs[dir] {
			if seen == id {
				return
			}
		}
		refs[dir] = append(refs[dir], id)
	}
	for _, list := range [][]domain.Asset{pending, assets} {
		for _, a := range list {
			if a.SourcePath == "" && a.PreviewPath == "" {
				add(v.GetAssetFolder(a.ID, a.DisplayName), a.ID)
			}
			for _, path := range []string{a.SourcePath, a.PreviewPath} {
				if path != "" {
					add(filepath.Dir(path), a.ID)
				}
			}
		}
	}
	return refs
}

// removeFile deletes one file. It reports false when path was absent.
func removeFile(path string) (bool, error) {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &domain.StorageError{Path: path, Op: "delete", Inner: err}
	}
	return true, nil
}

// removeFolder deletes dir recursively. It reports false when dir was absent.
func removeFolder(dir string) (bool, error) {
	if _, err := os.Lstat(dir); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &domain.StorageError{Path: dir, Op: "delete", Inner: err}
	}
	if err := os.RemoveAll(dir); err != nil {
		return false, &domain.StorageError{Path: dir, Op: "delete", Inner: err}
	}
	return true, nil
}
