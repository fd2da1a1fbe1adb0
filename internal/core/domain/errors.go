package domain

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Wrapped errors carry the offending asset or tag.
var (
	ErrInvalidName  = errors.New("invalid name")
	ErrInvalidTag   = errors.New("invalid tag")
	ErrUnknownAsset = errors.New("unknown asset")
	ErrUnknownTag   = errors.New("unknown tag")
	ErrTagCollision = errors.New("tag identifier collision")
)

// PreviewError wraps a decode or encode failure of the preview generator
type PreviewError struct {
	Path  string
	Op    string // "open", "decode", "encode"
	Inner error
}

func (e *PreviewError) Error() string {
	return fmt.Sprintf("preview %s %s: %v", e.Op, e.Path, e.Inner)
}

func (e *PreviewError) Unwrap() error {
	return e.Inner
}

// StorageError wraps a filesystem failure (create, copy, delete)
type StorageError struct {
	Path  string
	Op    string
	Inner error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Inner)
}

func (e *StorageError) Unwrap() error {
	return e.Inner
}

// SchemaError wraps a failed tag schema transaction
type SchemaError struct {
	Tag   string
	Op    string // "add", "remove", "migrate"
	Inner error
}

func (e *SchemaError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("schema %s: %v", e.Op, e.Inner)
	}
	return fmt.Sprintf("schema %s tag %q: %v", e.Op, e.Tag, e.Inner)
}

func (e *SchemaError) Unwrap() error {
	return e.Inner
}

// AssetNotFound builds the error returned for a missing asset id
func AssetNotFound(op string, id int64) error {
	return fmt.Errorf("%s asset %d: %w", op, id, ErrUnknownAsset)
}

// TagNotFound builds the error returned for a missing tag identifier
func TagNotFound(op string, identifier string) error {
	return fmt.Errorf("%s tag %q: %w", op, identifier, ErrUnknownTag)
}
