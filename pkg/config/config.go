package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Storage
	StorageRoot  string `yaml:"storage_root"`  // empty means the XDG data dir
	DatabasePath string `yaml:"database_path"` // empty means <storage_root>/catalog.db

	// Search Settings
	SearchCaseSensitive bool   `yaml:"search_case_sensitive"`
	DefaultSort         string `yaml:"default_sort"` // name | date
	ReverseSort         bool   `yaml:"reverse_sort"`
	FilterMode          string `yaml:"filter_mode"` // all | any

	// UI Settings
	LogLevel          string `yaml:"log_level"`
	DisplayDateFormat string `yaml:"display_date_format"`
	ColorTheme        string `yaml:"color_theme"`
	TableWidth        int    `yaml:"table_width"`

	// Import
	ImportExtensions []string `yaml:"import_extensions"`
	WatchDebounceMS  int      `yaml:"watch_debounce_ms"`

	Preview PreviewConfig `yaml:"preview"`
}

// PreviewConfig controls thumbnail generation
type PreviewConfig struct {
	Gain               float64 `yaml:"gain"`
	Gamma              float64 `yaml:"gamma"`
	MaxWidth           int     `yaml:"max_width"`
	MaxHeight          int     `yaml:"max_height"`
	JPEGQuality        int     `yaml:"jpeg_quality"`
	FileName           string  `yaml:"file_name"`
	PlaceholderOnError bool    `yaml:"placeholder_on_error"`
}

// DefaultConfig returns a Config struct with default values
func DefaultConfig() *Config {
	return &Config{
		StorageRoot:         "",
		DatabasePath:        "",
		SearchCaseSensitive: false,
		DefaultSort:         "name",
		ReverseSort:         false,
		FilterMode:          "all",
		LogLevel:            "warn",
		DisplayDateFormat:   "2006-01-02",
		ColorTheme:          "auto",
		TableWidth:          0,
		ImportExtensions:    []string{".hdr", ".exr", ".pfm", ".pic", ".png", ".jpg", ".jpeg", ".tif", ".tiff"},
		WatchDebounceMS:     500,
		Preview: PreviewConfig{
			Gain:               2.0,
			Gamma:              0.8,
			MaxWidth:           200,
			MaxHeight:          200,
			JPEGQuality:        90,
			FileName:           "preview.jpg",
			PlaceholderOnError: true,
		},
	}
}

// Load reads configuration from the specified file path
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		// If file doesn't exist, return default config (not an error)
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults back-fills missing or invalid values
func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if !isOneOf(c.DefaultSort, "name", "date") {
		c.DefaultSort = def.DefaultSort
	}
	if !isOneOf(c.FilterMode, "all", "any") {
		c.FilterMode = def.FilterMode
	}
	if !isOneOf(c.LogLevel, "trace", "debug", "info", "warn", "error", "disabled") {
		c.LogLevel = def.LogLevel
	}
	if c.DisplayDateFormat == "" {
		c.DisplayDateFormat = def.DisplayDateFormat
	}
	if c.ColorTheme == "" {
		c.ColorTheme = def.ColorTheme
	}
	if len(c.ImportExtensions) == 0 {
		c.ImportExtensions = def.ImportExtensions
	}
	if c.WatchDebounceMS <= 0 {
		c.WatchDebounceMS = def.WatchDebounceMS
	}

	p := &c.Preview
	if p.Gain <= 0 {
		p.Gain = def.Preview.Gain
	}
	if p.Gamma <= 0 {
		p.Gamma = def.Preview.Gamma
	}
	if p.MaxWidth <= 0 {
		p.MaxWidth = def.Preview.MaxWidth
	}
	if p.MaxHeight <= 0 {
		p.MaxHeight = def.Preview.MaxHeight
	}
	if p.JPEGQuality <= 0 || p.JPEGQuality > 100 {
		p.JPEGQuality = def.Preview.JPEGQuality
	}
	if p.FileName == "" || strings.ContainsAny(p.FileName, `/\`) {
		p.FileName = def.Preview.FileName
	}
}

// Save persists the current configuration to the specified file path
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Keys lists every settable key in dotted form, sorted
func (c *Config) Keys() []string {
	tree, _ := c.tree()
	var keys []string
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			if sub, ok := v.(map[string]any); ok {
				walk(prefix+k+".", sub)
				continue
			}
			keys = append(keys, prefix+k)
		}
	}
	walk("", tree)
	sort.Strings(keys)
	return keys
}

// Get returns the YAML rendering of a dotted key such as "preview.gain"
func (c *Config) Get(key string) (string, error) {
	tree, err := c.tree()
	if err != nil {
		return "", err
	}
	v, ok := lookup(tree, strings.Split(key, "."))
	if !ok {
		return "", fmt.Errorf("unknown config key %q", key)
	}
	out, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Set parses value as YAML and stores it under a dotted key.
// The value must decode into the field's type.
func (c *Config) Set(key, value string) error {
	tree, err := c.tree()
	if err != nil {
		return err
	}
	parts := strings.Split(key, ".")
	if _, ok := lookup(tree, parts); !ok {
		return fmt.Errorf("unknown config key %q", key)
	}

	var parsed any
	if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	m := tree
	for _, p := range parts[:len(parts)-1] {
		m = m[p].(map[string]any)
	}
	m[parts[len(parts)-1]] = parsed

	data, err := yaml.Marshal(tree)
	if err != nil {
		return err
	}
	next := DefaultConfig()
	if err := yaml.Unmarshal(data, next); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	next.applyDefaults()
	*c = *next
	return nil
}

func (c *Config) tree() (map[string]any, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	tree := map[string]any{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func lookup(m map[string]any, parts []string) (any, bool) {
	v, ok := m[parts[0]]
	if !ok {
		return nil, false
	}
	if len(parts) == 1 {
		_, isMap := v.(map[string]any)
		return v, !isMap
	}
	sub, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return lookup(sub, parts[1:])
}

func isOneOf(s string, valid ...string) bool {
	for _, v := range valid {
		if s == v {
			return true
		}
	}
	return false
}
