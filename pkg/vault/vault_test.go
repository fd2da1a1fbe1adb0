package vault

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAssetFolderName(t *testing.T) {
	tests := []struct {
		name     string
		id       int64
		display  string
		expected string
	}{
		{"simple", 1, "Sunset Beach", "00001_Sunset Beach"},
		{"trimmed", 42, "  Forest  ", "00042_Forest"},
		{"large id", 123456, "Lake", "123456_Lake"},
		{"separators", 7, "Sky/Clouds\\Noon", "00007_Sky_Clouds_Noon"},
		{"windows reserved", 8, `a:b*c?"d"`, "00008_a_b_c__d_"},
		{"trailing dots", 9, "Studio...", "00009_Studio"},
		{"dot only", 10, "..", "00010_asset"},
		{"unicode kept", 11, "Étoile du Nord", "00011_Étoile du Nord"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AssetFolderName(tt.id, tt.display)
			if got != tt.expected {
				t.Errorf("AssetFolderName(%d, %q) = %q, want %q", tt.id, tt.display, got, tt.expected)
			}
		})
	}
}

func TestVault_GetAssetFolder(t *testing.T) {
	v := &Vault{RootPath: "/store"}
	expected := filepath.Join("/store", "00001_Sunset Beach")
	if got := v.GetAssetFolder(1, "Sunset Beach"); got != expected {
		t.Errorf("GetAssetFolder() = %q, want %q", got, expected)
	}
}

func TestVault_Contains(t *testing.T) {
	root := t.TempDir()
	v := &Vault{RootPath: root}

	tests := []struct {
		path     string
		expected bool
	}{
		{filepath.Join(root, "00001_A"), true},
		{filepath.Join(root, "00001_A", "x.hdr"), true},
		{root, false},
		{filepath.Dir(root), false},
		{filepath.Join(root, "..", "elsewhere"), false},
		{filepath.Join(root, "..a"), true},
	}

	for _, tt := range tests {
		if got := v.Contains(tt.path); got != tt.expected {
			t.Errorf("Contains(%q) = %v, want %v", tt.path, got, tt.expected)
		}
	}
}

func TestNew_ExplicitRoot(t *testing.T) {
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))

	v, err := New(root, "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if v.RootPath != root {
		t.Errorf("RootPath = %q, want %q", v.RootPath, root)
	}
	if v.DatabasePath != filepath.Join(root, "catalog.db") {
		t.Errorf("DatabasePath = %q", v.DatabasePath)
	}
	if v.ConfigPath != filepath.Join(root, "config", "hx", "config.yaml") {
		t.Errorf("ConfigPath = %q", v.ConfigPath)
	}

	custom := filepath.Join(root, "db", "other.db")
	v, err = New(root, custom)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if v.DatabasePath != custom {
		t.Errorf("DatabasePath = %q, want %q", v.DatabasePath, custom)
	}
}

func TestNew_XDGDefault(t *testing.T) {
	data := t.TempDir()
	t.Setenv("XDG_DATA_HOME", data)

	v, err := New("", "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if v.RootPath != filepath.Join(data, "hx") {
		t.Errorf("RootPath = %q, want %q", v.RootPath, filepath.Join(data, "hx"))
	}
}

func TestVault_Initialize(t *testing.T) {
	root := filepath.Join(t.TempDir(), "store")
	v := &Vault{
		RootPath:     root,
		DatabasePath: filepath.Join(root, "catalog.db"),
		CachePath:    filepath.Join(root, ".cache"),
		InboxPath:    filepath.Join(root, ".inbox"),
	}

	if v.Exists() {
		t.Fatal("vault should not exist before Initialize")
	}
	if err := v.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	for _, dir := range []string{v.RootPath, v.CachePath, v.InboxPath} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("expected directory %s", dir)
		}
	}
	if !v.Exists() {
		t.Error("vault should exist after Initialize")
	}
}

func TestVault_Initialize_PartialVault(t *testing.T) {
	root := filepath.Join(t.TempDir(), "store")
	v := &Vault{RootPath: root, DatabasePath: filepath.Join(root, "catalog.db")}

	if err := v.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		t.Errorf("expected directory %s", root)
	}
}

func TestVault_CleanCache(t *testing.T) {
	root := t.TempDir()
	v := &Vault{RootPath: root, CachePath: filepath.Join(root, ".cache")}

	// Missing cache dir is fine
	if err := v.CleanCache(); err != nil {
		t.Fatalf("CleanCache() on missing dir error = %v", err)
	}

	os.MkdirAll(v.CachePath, 0755)
	os.WriteFile(v.GetCachePath("tags.html"), []byte("x"), 0644)
	if err := v.CleanCache(); err != nil {
		t.Fatalf("CleanCache() error = %v", err)
	}
	entries, _ := os.ReadDir(v.CachePath)
	if len(entries) != 0 {
		t.Errorf("cache not empty: %d entries", len(entries))
	}
}
