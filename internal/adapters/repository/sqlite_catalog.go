package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kamal-hamza/hx-cli/internal/core/domain"
)

const assetColumns = `a.id, a.source_path, a.preview_path, a.display_name, a.created_at`

// Create allocates a record with empty paths. Every defined tag reads false.
func (s *Store) Create(ctx context.Context, displayName string) (*domain.Asset, error) {
	name, err := domain.ValidateDisplayName(displayName)
	if err != nil {
		return nil, fmt.Errorf("create asset: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	createdAt := formatTime(s.clock.Now())
	res, err := tx.ExecContext(ctx,
		`INSERT INTO assets (display_name, created_at) VALUES (?, ?)`,
		name, createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert asset %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert asset %q: %w", name, err)
	}

	asset, err := getAsset(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return asset, nil
}

// Get loads a record by id, finalized or not
func (s *Store) Get(ctx context.Context, id int64) (*domain.Asset, error) {
	return getAsset(ctx, s.db, id)
}

func getAsset(ctx context.Context, q queryer, id int64) (*domain.Asset, error) {
	row := q.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets a WHERE a.id = ?`, id)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.AssetNotFound("get", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get asset %d: %w", id, err)
	}

	defs, err := listTags(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := fillTags(ctx, q, defs, []*domain.Asset{asset}); err != nil {
		return nil, err
	}
	return asset, nil
}

// FinalizePaths stores both paths, which makes the record queryable
func (s *Store) FinalizePaths(ctx context.Context, id int64, sourcePath, previewPath string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE assets SET source_path = ?, preview_path = ? WHERE id = ?`,
		sourcePath, previewPath, id,
	)
	if err != nil {
		return fmt.Errorf("finalize asset %d: %w", id, err)
	}
	return expectOne(res, domain.AssetNotFound("finalize", id))
}

// UpdateName renames a record
func (s *Store) UpdateName(ctx context.Context, id int64, name string) error {
	trimmed, err := domain.ValidateDisplayName(name)
	if err != nil {
		return fmt.Errorf("rename asset %d: %w", id, err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE assets SET display_name = ? WHERE id = ?`, trimmed, id)
	if err != nil {
		return fmt.Errorf("rename asset %d: %w", id, err)
	}
	return expectOne(res, domain.AssetNotFound("rename", id))
}

// SetTag sets one tag value on a record
func (s *Store) SetTag(ctx context.Context, id int64, tagRef string, value bool) error {
	return s.SetTagValue(ctx, tagRef, id, value)
}

// Delete removes the record and its tag values. Files are left alone.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM assets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete asset %d: %w", id, err)
	}
	return expectOne(res, domain.AssetNotFound("delete", id))
}

// Query runs the combined search, tag filter and sort over finalized records.
// All statements run in one transaction so a concurrent tag removal is seen
// either entirely or not at all.
func (s *Store) Query(ctx context.Context, q domain.Query) ([]domain.Asset, error) {
	nq, err := q.Normalized()
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	defs, err := listTags(ctx, tx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(defs))
	for _, t := range defs {
		known[t.Identifier] = true
	}
	for _, id := range nq.Tags {
		if !known[id] {
			return nil, domain.TagNotFound("query", id)
		}
	}

	stmt, args := buildQuery(nq)
	rows, err := tx.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	assets, err := scanAssets(rows)
	if err != nil {
		return nil, err
	}

	ptrs := make([]*domain.Asset, len(assets))
	for i := range assets {
		ptrs[i] = &assets[i]
	}
	if err := fillTags(ctx, tx, defs, ptrs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return assets, nil
}

// buildQuery assembles the WHERE and ORDER BY clauses for a normalized query
func buildQuery(q domain.Query) (string, []any) {
	where := []string{"a.source_path <> ''", "a.preview_path <> ''"}
	var args []any

	if q.HasNameFilter() {
		needle := strings.TrimSpace(q.NameFilter)
		if q.CaseSensitive {
			where = append(where, "instr(a.display_name, ?) > 0")
		} else {
			where = append(where, "instr("+foldFunc+"(a.display_name), "+foldFunc+"(?)) > 0")
		}
		args = append(args, needle)
	}

	if len(q.Tags) > 0 {
		if q.Mode == domain.FilterAny {
			placeholders := strings.TrimSuffix(strings.Repeat("?,", len(q.Tags)), ",")
			where = append(where, "EXISTS (SELECT 1 FROM asset_tags t WHERE t.asset_id = a.id AND t.tag IN ("+placeholders+"))")
			for _, id := range q.Tags {
				args = append(args, id)
			}
		} else {
			for _, id := range q.Tags {
				where = append(where, "EXISTS (SELECT 1 FROM asset_tags t WHERE t.asset_id = a.id AND t.tag = ?)")
				args = append(args, id)
			}
		}
	}

	dir := "ASC"
	if q.SortDir == domain.SortDesc {
		dir = "DESC"
	}
	order := "a.display_name COLLATE NOCASE " + dir
	if q.SortKey == domain.SortByCreated {
		order = "a.created_at " + dir
	}

	stmt := `SELECT ` + assetColumns + ` FROM assets a WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY ` + order + `, a.id ASC`
	return stmt, args
}

// ListPending returns allocated records that never got both paths
func (s *Store) ListPending(ctx context.Context) ([]domain.Asset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+assetColumns+` FROM assets a WHERE a.source_path = '' OR a.preview_path = '' ORDER BY a.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending assets: %w", err)
	}
	assets, err := scanAssets(rows)
	if err != nil {
		return nil, err
	}

	defs, err := listTags(ctx, s.db)
	if err != nil {
		return nil, err
	}
	ptrs := make([]*domain.Asset, len(assets))
	for i := range assets {
		ptrs[i] = &assets[i]
	}
	if err := fillTags(ctx, s.db, defs, ptrs); err != nil {
		return nil, err
	}
	return assets, nil
}

// Restore inserts one complete record with its original creation time
func (s *Store) Restore(ctx context.Context, asset domain.Asset) (*domain.Asset, error) {
	restored, err := s.RestoreBatch(ctx, []domain.Asset{asset})
	if err != nil {
		return nil, err
	}
	return &restored[0], nil
}

// RestoreBatch inserts complete records in one transaction. Either every
// record is restored or none is.
func (s *Store) RestoreBatch(ctx context.Context, assets []domain.Asset) ([]domain.Asset, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	restored := make([]domain.Asset, 0, len(assets))
	for _, asset := range assets {
		a, err := s.restoreTx(ctx, tx, asset)
		if err != nil {
			return nil, err
		}
		restored = append(restored, *a)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return restored, nil
}

func (s *Store) restoreTx(ctx context.Context, tx *sql.Tx, asset domain.Asset) (*domain.Asset, error) {
	name, err := domain.ValidateDisplayName(asset.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("restore asset: %w", err)
	}
	createdAt := asset.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.clock.Now()
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO assets (source_path, preview_path, display_name, created_at) VALUES (?, ?, ?, ?)`,
		asset.SourcePath, asset.PreviewPath, name, formatTime(createdAt),
	)
	if err != nil {
		return nil, fmt.Errorf("restore asset %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("restore asset %q: %w", name, err)
	}

	for ref, value := range asset.Tags {
		if !value {
			continue
		}
		tagID, err := domain.ResolveTagRef(ref)
		if err != nil {
			return nil, err
		}
		if err := requireTag(ctx, tx, "restore", tagID); err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO asset_tags (asset_id, tag) VALUES (?, ?)`, id, tagID); err != nil {
			return nil, fmt.Errorf("restore asset %d tag %q: %w", id, tagID, err)
		}
	}

	return getAsset(ctx, tx, id)
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*domain.Asset, error) {
	var a domain.Asset
	var createdAt string
	if err := row.Scan(&a.ID, &a.SourcePath, &a.PreviewPath, &a.DisplayName, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("asset %d created_at %q: %w", a.ID, createdAt, err)
	}
	a.CreatedAt = t
	a.Tags = make(map[string]bool)
	return &a, nil
}

func scanAssets(rows *sql.Rows) ([]domain.Asset, error) {
	defer rows.Close()

	assets := []domain.Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, *a)
	}
	return assets, rows.Err()
}

// fillTags gives every asset an entry for every defined tag
func fillTags(ctx context.Context, q queryer, defs []domain.Tag, assets []*domain.Asset) error {
	if len(assets) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Asset, len(assets))
	ids := make([]any, 0, len(assets))
	for _, a := range assets {
		for _, t := range defs {
			a.Tags[t.Identifier] = false
		}
		byID[a.ID] = a
		ids = append(ids, a.ID)
	}
	if len(defs) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	rows, err := q.QueryContext(ctx, `SELECT asset_id, tag FROM asset_tags WHERE asset_id IN (`+placeholders+`)`, ids...)
	if err != nil {
		return fmt.Errorf("load tag values: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var tag string
		if err := rows.Scan(&id, &tag); err != nil {
			return fmt.Errorf("scan tag value: %w", err)
		}
		if a, ok := byID[id]; ok {
			a.Tags[tag] = true
		}
	}
	return rows.Err()
}

func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func requireAsset(ctx context.Context, q queryer, op string, id int64) error {
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM assets WHERE id = ?)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("%s asset %d: %w", op, id, err)
	}
	if !exists {
		return domain.AssetNotFound(op, id)
	}
	return nil
}
