package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/kamal-hamza/hx-cli/internal/core/domain"
)

// ListTags returns the defined tags in creation order
func (s *Store) ListTags(ctx context.Context) ([]domain.Tag, error) {
	return listTags(ctx, s.db)
}

func listTags(ctx context.Context, q queryer) ([]domain.Tag, error) {
	rows, err := q.QueryContext(ctx, `SELECT name, identifier FROM tags ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := []domain.Tag{}
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.Name, &t.Identifier); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// AddTag defines a tag. Adding a name whose normalized form matches an existing
// tag returns that tag unchanged; a different name deriving the same identifier
// fails with ErrTagCollision. fromAsset, when non-zero, is set true in the same
// transaction.
func (s *Store) AddTag(ctx context.Context, name string, fromAsset int64) (domain.Tag, error) {
	tag, err := domain.NewTag(name)
	if err != nil {
		return domain.Tag{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Tag{}, &domain.SchemaError{Tag: tag.Name, Op: "add", Inner: err}
	}
	defer tx.Rollback()

	if fromAsset != 0 {
		if err := requireAsset(ctx, tx, "add tag", fromAsset); err != nil {
			return domain.Tag{}, err
		}
	}

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT name FROM tags WHERE identifier = ?`, tag.Identifier).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tags (identifier, name, created_at) VALUES (?, ?, ?)`,
			tag.Identifier, tag.Name, formatTime(s.clock.Now()),
		); err != nil {
			return domain.Tag{}, &domain.SchemaError{Tag: tag.Name, Op: "add", Inner: err}
		}
	case err != nil:
		return domain.Tag{}, &domain.SchemaError{Tag: tag.Name, Op: "add", Inner: err}
	case domain.NormalizeTagName(existing) != domain.NormalizeTagName(tag.Name):
		return domain.Tag{}, fmt.Errorf("add tag %q: identifier %s already used by %q: %w",
			tag.Name, tag.Identifier, existing, domain.ErrTagCollision)
	default:
		tag.Name = existing
	}

	if fromAsset != 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO asset_tags (asset_id, tag) VALUES (?, ?)`,
			fromAsset, tag.Identifier,
		); err != nil {
			return domain.Tag{}, &domain.SchemaError{Tag: tag.Name, Op: "add", Inner: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Tag{}, &domain.SchemaError{Tag: tag.Name, Op: "add", Inner: err}
	}
	log.Debug().Str("tag", tag.Identifier).Int64("asset_id", fromAsset).Msg("tag added")
	return tag, nil
}

// RemoveTag deletes the tag and every value of it in one transaction
func (s *Store) RemoveTag(ctx context.Context, ref string) error {
	id, err := domain.ResolveTagRef(ref)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.SchemaError{Tag: id, Op: "remove", Inner: err}
	}
	defer tx.Rollback()

	if err := requireTag(ctx, tx, "remove", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM asset_tags WHERE tag = ?`, id); err != nil {
		return &domain.SchemaError{Tag: id, Op: "remove", Inner: err}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE identifier = ?`, id); err != nil {
		return &domain.SchemaError{Tag: id, Op: "remove", Inner: err}
	}

	if err := tx.Commit(); err != nil {
		return &domain.SchemaError{Tag: id, Op: "remove", Inner: err}
	}
	log.Debug().Str("tag", id).Msg("tag removed")
	return nil
}

// GetTagValue reads one tag value of one record
func (s *Store) GetTagValue(ctx context.Context, ref string, assetID int64) (bool, error) {
	id, err := domain.ResolveTagRef(ref)
	if err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := requireTag(ctx, tx, "get", id); err != nil {
		return false, err
	}
	if err := requireAsset(ctx, tx, "get tag", assetID); err != nil {
		return false, err
	}

	var value bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM asset_tags WHERE asset_id = ? AND tag = ?)`,
		assetID, id,
	).Scan(&value); err != nil {
		return false, fmt.Errorf("get tag %q asset %d: %w", id, assetID, err)
	}
	return value, tx.Commit()
}

// SetTagValue writes one tag value of one record
func (s *Store) SetTagValue(ctx context.Context, ref string, assetID int64, value bool) error {
	id, err := domain.ResolveTagRef(ref)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := requireTag(ctx, tx, "set", id); err != nil {
		return err
	}
	if err := requireAsset(ctx, tx, "set tag", assetID); err != nil {
		return err
	}

	if value {
		_, err = tx.ExecContext(ctx, `INSERT OR IGNORE INTO asset_tags (asset_id, tag) VALUES (?, ?)`, assetID, id)
	} else {
		_, err = tx.ExecContext(ctx, `DELETE FROM asset_tags WHERE asset_id = ? AND tag = ?`, assetID, id)
	}
	if err != nil {
		return fmt.Errorf("set tag %q asset %d: %w", id, assetID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// TagUsage counts finalized records carrying each tag
func (s *Store) TagUsage(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.identifier, COUNT(a.id)
		FROM tags t
		LEFT JOIN asset_tags l ON l.tag = t.identifier
		LEFT JOIN assets a ON a.id = l.asset_id AND a.source_path <> '' AND a.preview_path <> ''
		GROUP BY t.identifier`)
	if err != nil {
		return nil, fmt.Errorf("tag usage: %w", err)
	}
	defer rows.Close()

	usage := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan tag usage: %w", err)
		}
		usage[id] = n
	}
	return usage, rows.Err()
}

func requireTag(ctx context.Context, q queryer, op, id string) error {
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM tags WHERE identifier = ?)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("%s tag %q: %w", op, id, err)
	}
	if !exists {
		return domain.TagNotFound(op, id)
	}
	return nil
}
