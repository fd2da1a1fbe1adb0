package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kamal-hamza/hx-cli/internal/core/domain"
	"github.com/kamal-hamza/hx-cli/internal/core/ports/mocks"
	"github.com/kamal-hamza/hx-cli/pkg/vault"
)

// addStoredAsset creates a finalized record with real files under root
func addStoredAsset(t *testing.T, catalog *mocks.MockCatalog, v *vault.Vault, name string) *domain.Asset {
	t.Helper()
	ctx := context.Background()

	a, err := catalog.Create(ctx, name)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	folder := v.GetAssetFolder(a.ID, a.DisplayName)
	if err := os.MkdirAll(folder, 0755); err != nil {
		t.Fatalf("failed to create folder: %v", err)
	}
	src := filepath.Join(folder, "env.hdr")
	prev := filepath.Join(folder, "preview.jpg")
	os.WriteFile(src, []byte("hdr"), 0644)
	os.WriteFile(prev, []byte("jpg"), 0644)
	if err := catalog.FinalizePaths(ctx, a.ID, src, prev); err != nil {
		t.Fatalf("FinalizePaths() error = %v", err)
	}

	a, _ = catalog.Get(ctx, a.ID)
	return a
}

func TestRemoveService_Execute_Success(t *testing.T) {
	v := &vault.Vault{RootPath: t.TempDir()}
	catalog := mocks.NewMockCatalog()
	a := addStoredAsset(t, catalog, v, "Sunset Beach")
	svc := NewRemoveService(v, catalog)

	resp, err := svc.Execute(context.Background(), RemoveRequest{ID: a.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !resp.FolderRemoved {
		t.Error("expected FolderRemoved")
	}
	if _, err := os.Stat(resp.Folder); !os.IsNotExist(err) {
		t.Error("folder still exists")
	}
	if catalog.Len() != 0 {
		t.Error("record still exists")
	}

	// Folder deletion happens before record deletion
	calls := catalog.GetCalls()
	if calls[len(calls)-1] != "Delete" {
		t.Errorf("last call = %s, want Delete", calls[len(calls)-1])
	}
}

func TestRemoveService_Execute_MissingFolder(t *testing.T) {
	v := &vault.Vault{RootPath: t.TempDir()}
	catalog := mocks.NewMockCatalog()
	a := addStoredAsset(t, catalog, v, "Gone")
	os.RemoveAll(filepath.Dir(a.SourcePath))

	resp, err := NewRemoveService(v, catalog).Execute(context.Background(), RemoveRequest{ID: a.ID})
	if err != nil {
		t.Fatalf("missing folder must not fail removal: %v", err)
	}
	if resp.FolderRemoved {
		t.Error("FolderRemoved should be false")
	}
	if len(resp.Warnings) != 1 {
		t.Errorf("expected one warning, got %v", resp.Warnings)
	}
	if catalog.Len() != 0 {
		t.Error("record still exists")
	}
}

func TestRemoveService_Execute_OutsideRootKeepsFolder(t *testing.T) {
	v := &vault.Vault{RootPath: t.TempDir()}
	catalog := mocks.NewMockCatalog()
	ctx := context.Background()

	outside := t.TempDir()
	src := filepath.Join(outside, "env.hdr")
	os.WriteFile(src, []byte("hdr"), 0644)
	a, _ := catalog.Create(ctx, "Legacy")
	catalog.FinalizePaths(ctx, a.ID, src, filepath.Join(outside, "preview.jpg"))

	resp, err := NewRemoveService(v, catalog).Execute(ctx, RemoveRequest{ID: a.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.FolderRemoved {
		t.Error("folder outside the root must not be removed")
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("file outside the root was touched: %v", err)
	}
	if catalog.Len() != 0 {
		t.Error("record still exists")
	}
}

func TestRemoveService_Execute_PendingRecord(t *testing.T) {
	v := &vault.Vault{RootPath: t.TempDir()}
	catalog := mocks.NewMockCatalog()
	a, _ := catalog.Create(context.Background(), "Half Done")
	folder := v.GetAssetFolder(a.ID, a.DisplayName)
	os.MkdirAll(folder, 0755)

	resp, err := NewRemoveService(v, catalog).Execute(context.Background(), RemoveRequest{ID: a.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Folder != folder || !resp.FolderRemoved {
		t.Errorf("expected derived folder %s removed, got %+v", folder, resp)
	}
}

func TestRemoveService_Execute_UnknownAsset(t *testing.T) {
	v := &vault.Vault{RootPath: t.TempDir()}
	_, err := NewRemoveService(v, mocks.NewMockCatalog()).Execute(context.Background(), RemoveRequest{ID: 99})
	if !errors.Is(err, domain.ErrUnknownAsset) {
		t.Fatalf("expected ErrUnknownAsset, got %v", err)
	}
}

func TestRemoveService_Execute_FolderDeleteFailureKeepsRecord(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	v := &vault.Vault{RootPath: t.TempDir()}
	catalog := mocks.NewMockCatalog()
	a := addStoredAsset(t, catalog, v, "Locked")
	folder := filepath.Dir(a.SourcePath)

	if err := os.Chmod(folder, 0555); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	defer os.Chmod(folder, 0755)

	_, err := NewRemoveService(v, catalog).Execute(context.Background(), RemoveRequest{ID: a.ID})

	var se *domain.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if catalog.Len() != 1 {
		t.Error("record must be kept when its folder cannot be deleted")
	}
}

func TestRemoveService_Execute_DeleteFailure(t *testing.T) {
	v := &vault.Vault{RootPath: t.TempDir()}
	catalog := mocks.NewMockCatalog()
	a := addStoredAsset(t, catalog, v, "Beach")
	catalog.SetFailure("Delete", errors.New("database is locked"))

	if _, err := NewRemoveService(v, catalog).Execute(context.Background(), RemoveRequest{ID: a.ID}); err == nil {
		t.Fatal("expected error")
	}

	// The record is still discoverable and doctor will find its missing files
	if _, err := catalog.Get(context.Background(), a.ID); err != nil {
		t.Errorf("record lost: %v", err)
	}
}

// restoreAt restores a record whose files live at the given paths
func restoreAt(t *testing.T, catalog *mocks.MockCatalog, name, src, prev string) *domain.Asset {
	t.Helper()
	for _, path := range []string{src, prev} {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create folder: %v", err)
		}
		if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
	restored, err := catalog.RestoreBatch(context.Background(), []domain.Asset{{SourcePath: src, PreviewPath: prev, DisplayName: name}})
	if err != nil {
		t.Fatalf("RestoreBatch() error = %v", err)
	}
	return &restored[0]
}

func TestRemoveService_Execute_SharedLegacyFolder(t *testing.T) {
	v := &vault.Vault{RootPath: t.TempDir()}
	catalog := mocks.NewMockCatalog()
	dir := filepath.Join(v.RootPath, "hdris")
	a := restoreAt(t, catalog, "A", filepath.Join(dir, "a.hdr"), filepath.Join(dir, "a_preview.jpg"))
	b := restoreAt(t, catalog, "B", filepath.Join(dir, "b.hdr"), filepath.Join(dir, "b_preview.jpg"))

	resp, err := NewRemoveService(v, catalog).Execute(context.Background(), RemoveRequest{ID: a.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.FolderRemoved {
		t.Error("a folder that is not an asset folder must not be removed")
	}
	if len(resp.FilesRemoved) != 2 {
		t.Errorf("FilesRemoved = %v", resp.FilesRemoved)
	}
	for _, path := range []string{a.SourcePath, a.PreviewPath} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("%s still exists", path)
		}
	}
	for _, path := range []string{b.SourcePath, b.PreviewPath} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("other asset's file removed: %v", err)
		}
	}
	if catalog.Len() != 1 {
		t.Error("record not deleted")
	}
}

func TestRemoveService_Execute_AssetFolderSharedByTwoRecords(t *testing.T) {
	v := &vault.Vault{RootPath: t.TempDir()}
	catalog := mocks.NewMockCatalog()
	dir := filepath.Join(v.RootPath, "00004_Pair")
	a := restoreAt(t, catalog, "Left", filepath.Join(dir, "left.hdr"), filepath.Join(dir, "left.jpg"))
	b := restoreAt(t, catalog, "Right", filepath.Join(dir, "right.hdr"), filepath.Join(dir, "right.jpg"))

	if _, err := NewRemoveService(v, catalog).Execute(context.Background(), RemoveRequest{ID: a.ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(b.SourcePath); err != nil {
		t.Errorf("other asset's source removed: %v", err)
	}

	// Once the folder has a single owner it goes as a whole
	resp, err := NewRemoveService(v, catalog).Execute(context.Background(), RemoveRequest{ID: b.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.FolderRemoved {
		t.Error("expected the folder to be removed with its last owner")
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("folder still exists")
	}
}
