package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/kamal-hamza/hx-cli/internal/core/domain"
	"github.com/kamal-hamza/hx-cli/internal/core/ports"
)

// RenameService changes display names. Folders keep the name they were
// created with, so stored paths stay valid.
type RenameService struct {
	catalog ports.CatalogRepository
}

// NewRenameService creates a new rename service
func NewRenameService(catalog ports.CatalogRepository) *RenameService {
	return &RenameService{catalog: catalog}
}

// RenameRequest represents a request to rename an asset
type RenameRequest struct {
	ID      int64
	NewName string
}

// RenameResponse carries the record before and after
type RenameResponse struct {
	OldName string
	Asset   *domain.Asset
}

// Execute validates and stores the new name
func (s *RenameService) Execute(ctx context.Context, req RenameRequest) (*RenameResponse, error) {
	name, err := domain.ValidateDisplayName(req.NewName)
	if err != nil {
		return nil, fmt.Errorf("rename asset %d: %w", req.ID, err)
	}

	before, err := s.catalog.Get(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("rename asset %d: %w", req.ID, err)
	}

	if err := s.catalog.UpdateName(ctx, req.ID, name); err != nil {
		return nil, err
	}

	after, err := s.catalog.Get(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("rename asset %d: %w", req.ID, err)
	}

	log.Info().Int64("asset_id", req.ID).Str("from", before.DisplayName).Str("to", name).Msg("asset renamed")
	return &RenameResponse{OldName: before.DisplayName, Asset: after}, nil
}
