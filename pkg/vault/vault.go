package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Vault represents the managed storage root for hx.
// Each imported asset gets its own folder directly under RootPath.
type Vault struct {
	RootPath     string
	DatabasePath string
	CachePath    string
	InboxPath    string
	ConfigPath   string
}

// New creates a Vault. Empty arguments fall back to XDG-compliant defaults.
func New(storageRoot, databasePath string) (*Vault, error) {
	rootPath := storageRoot
	if rootPath == "" {
		var err error
		rootPath, err = getVaultRoot()
		if err != nil {
			return nil, fmt.Errorf("failed to determine vault root: %w", err)
		}
	}
	rootPath, err := filepath.Abs(expandHome(rootPath))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vault root: %w", err)
	}

	configPath, err := ConfigFilePath()
	if err != nil {
		return nil, fmt.Errorf("failed to determine config path: %w", err)
	}

	dbPath := databasePath
	if dbPath == "" {
		dbPath = filepath.Join(rootPath, "catalog.db")
	}
	dbPath, err = filepath.Abs(expandHome(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}

	return &Vault{
		RootPath:     rootPath,
		DatabasePath: dbPath,
		CachePath:    filepath.Join(rootPath, ".cache"),
		InboxPath:    filepath.Join(rootPath, ".inbox"),
		ConfigPath:   configPath,
	}, nil
}

// getVaultRoot returns the storage root directory path
// Follows XDG Base Directory specification on Unix and uses AppData on Windows
func getVaultRoot() (string, error) {
	if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
		return filepath.Join(xdgDataHome, "hx"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, "hx"), nil
	}

	return filepath.Join(homeDir, ".local", "share", "hx"), nil
}

// ConfigFilePath returns the location of config.yaml
func ConfigFilePath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "hx", "config.yaml"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, "hx-config", "config.yaml"), nil
	}

	return filepath.Join(homeDir, ".config", "hx", "config.yaml"), nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// Initialize creates the vault directory structure if it doesn't exist
func (v *Vault) Initialize() error {
	directories := []string{
		v.RootPath,
		filepath.Dir(v.DatabasePath),
		v.CachePath,
		v.InboxPath,
	}

	for _, dir := range directories {
		// Unset paths are left alone
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// Exists checks if the vault has been initialized
func (v *Vault) Exists() bool {
	info, err := os.Stat(v.RootPath)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// AssetFolderName builds the per-asset folder name: 5-digit id, "_", display name.
// The id makes it unique; the name keeps it browsable.
func AssetFolderName(id int64, displayName string) string {
	return fmt.Sprintf("%05d_%s", id, SanitizeName(displayName))
}

// GetAssetFolder returns the absolute folder for an asset
func (v *Vault) GetAssetFolder(id int64, displayName string) string {
	return filepath.Join(v.RootPath, AssetFolderName(id, displayName))
}

// SanitizeName makes a display name safe as a single path element on every platform
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r < 0x20 || r == 0x7f:
			b.WriteByte('_')
		case strings.ContainsRune(`<>:"/\|?*`, r):
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.TrimRight(b.String(), ". ")
	if out == "" || out == "." || out == ".." {
		return "asset"
	}
	return out
}

// Contains reports whether path lies strictly inside the storage root
func (v *Vault) Contains(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(v.RootPath, abs)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// GetCachePath returns the full path for a cached file
func (v *Vault) GetCachePath(filename string) string {
	return filepath.Join(v.CachePath, filename)
}

// CleanCache removes all files in the cache directory
func (v *Vault) CleanCache() error {
	entries, err := os.ReadDir(v.CachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	for _, entry := range entries {
		path := filepath.Join(v.CachePath, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}

	return nil
}
