package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// TagPrefix namespaces tag identifiers away from core record fields
const TagPrefix = "tag_"

// Tag is a user-defined boolean attribute of catalog records
type Tag struct {
	Name       string `json:"name"`       // "Golden Hour"
	Identifier string `json:"identifier"` // "tag_golden_hour"
}

// DeriveIdentifier maps a tag name to its schema-safe identifier.
// "Golden Hour" -> "tag_golden_hour", "  Sky / Clouds " -> "tag_sky_clouds"
func DeriveIdentifier(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("tag name %q: %w", name, ErrInvalidTag)
	}

	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(trimmed) {
		switch {
		case unicode.IsSpace(r):
			pendingSep = true
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_', r == '-':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		}
	}

	if b.Len() == 0 {
		return "", fmt.Errorf("tag name %q has no usable characters: %w", name, ErrInvalidTag)
	}
	return TagPrefix + b.String(), nil
}

// NormalizeTagName is the comparison key used to decide whether two names
// refer to the same tag
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// ResolveTagRef accepts either an identifier or a tag name and returns the identifier
func ResolveTagRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, TagPrefix) && len(ref) > len(TagPrefix) {
		return ref, nil
	}
	return DeriveIdentifier(ref)
}

// NameFromLegacyColumn recovers a display name from an old per-column tag.
// "tag_Golden_Hour" -> "Golden Hour"
func NameFromLegacyColumn(column string) string {
	name := strings.TrimPrefix(column, TagPrefix)
	return strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
}

// NewTag validates name and builds the tag with its identifier. Names
// starting with the identifier prefix are rejected since a reference to
// them would resolve as an identifier.
func NewTag(name string) (Tag, error) {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(name)), TagPrefix) {
		return Tag{}, fmt.Errorf("tag name %q must not start with %q: %w", name, TagPrefix, ErrInvalidTag)
	}
	id, err := DeriveIdentifier(name)
	if err != nil {
		return Tag{}, err
	}
	return Tag{Name: strings.TrimSpace(name), Identifier: id}, nil
}
