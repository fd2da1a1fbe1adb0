package domain

import (
	"fmt"
	"strings"
	"time"
)

// Asset is one catalog record: an imported HDRI, its preview and its tag values
type Asset struct {
	ID          int64           `json:"id"`
	SourcePath  string          `json:"source_path"`  // Copied original, empty until import completes
	PreviewPath string          `json:"preview_path"` // Generated thumbnail, empty until import completes
	DisplayName string          `json:"display_name"`
	CreatedAt   time.Time       `json:"created_at"`
	Tags        map[string]bool `json:"tags"` // Keyed by tag identifier
}

// IsFinalized reports whether both stored paths are set.
// Records that are not finalized are never returned by queries.
func (a *Asset) IsFinalized() bool {
	return a.SourcePath != "" && a.PreviewPath != ""
}

// HasTag returns the value of the tag; undefined tags read as false
func (a *Asset) HasTag(identifier string) bool {
	return a.Tags[identifier]
}

// TrueTags returns the identifiers set to true, in the order of defs
func (a *Asset) TrueTags(defs []Tag) []Tag {
	var out []Tag
	for _, t := range defs {
		if a.Tags[t.Identifier] {
			out = append(out, t)
		}
	}
	return out
}

// ValidateDisplayName trims the name and rejects empty input
func ValidateDisplayName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("display name %q: %w", name, ErrInvalidName)
	}
	return trimmed, nil
}

// ImportStage tracks how far an import got
type ImportStage int

const (
	StageAllocated ImportStage = iota
	StageFolderCreated
	StageFileCopied
	StagePreviewReady
	StageFinalized
)

func (s ImportStage) String() string {
	switch s {
	case StageAllocated:
		return "allocated"
	case StageFolderCreated:
		return "folder_created"
	case StageFileCopied:
		return "file_copied"
	case StagePreviewReady:
		return "preview_ready"
	case StageFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// LegacyRecord is one row of an old single-table catalog
type LegacyRecord struct {
	ID          int64
	FilePath    string
	PreviewPath string
	Name        string
	UploadDate  time.Time
	Tags        map[string]bool // Keyed by legacy column, e.g. "tag_Golden_Hour"
}
