package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kamal-hamza/hx-cli/internal/core/domain"
)

// legacyTable is the single wide table of the old catalog layout:
// id, file_path, preview_path, name, [upload_date], tag_* BOOLEAN...
const legacyTable = "hdri"

var legacyDateLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// LegacyDB reads an old wide-table catalog without modifying it
type LegacyDB struct {
	db   *sql.DB
	path string
}

// OpenLegacy opens the database read-only
func OpenLegacy(path string) (*LegacyDB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &domain.StorageError{Path: path, Op: "open", Inner: err}
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open legacy db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping legacy db: %w", err)
	}
	return &LegacyDB{db: db, path: path}, nil
}

// Close closes the database connection
func (l *LegacyDB) Close() error {
	return l.db.Close()
}

// columns returns every column of the legacy table in table order
func (l *LegacyDB) columns(ctx context.Context) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, `PRAGMA table_info(`+legacyTable+`)`)
	if err != nil {
		return nil, fmt.Errorf("read legacy columns: %w", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan legacy column: %w", err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%s: no %q table found", l.path, legacyTable)
	}
	return cols, nil
}

// TagColumns lists the tag_* boolean columns in table order
func (l *LegacyDB) TagColumns(ctx context.Context) ([]string, error) {
	cols, err := l.columns(ctx)
	if err != nil {
		return nil, err
	}
	var tags []string
	for _, c := range cols {
		if strings.HasPrefix(c, domain.TagPrefix) {
			tags = append(tags, c)
		}
	}
	return tags, nil
}

// Records reads every legacy row. Missing upload dates come back as zero time.
func (l *LegacyDB) Records(ctx context.Context) ([]domain.LegacyRecord, error) {
	cols, err := l.columns(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := l.db.QueryContext(ctx, `SELECT * FROM `+legacyTable+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("read legacy rows: %w", err)
	}
	defer rows.Close()

	var records []domain.LegacyRecord
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan legacy row: %w", err)
		}

		rec := domain.LegacyRecord{Tags: make(map[string]bool)}
		for i, col := range cols {
			v := values[i]
			switch {
			case col == "id":
				rec.ID = asInt(v)
			case col == "file_path":
				rec.FilePath = asString(v)
			case col == "preview_path":
				rec.PreviewPath = asString(v)
			case col == "name":
				rec.Name = asString(v)
			case col == "upload_date":
				rec.UploadDate = parseLegacyDate(asString(v))
			case strings.HasPrefix(col, domain.TagPrefix):
				rec.Tags[col] = asInt(v) != 0
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}

func asInt(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case float64:
		return int64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		if x == "1" || strings.EqualFold(x, "true") {
			return 1
		}
		return 0
	case []byte:
		return asInt(string(x))
	default:
		return 0
	}
}

// parseLegacyDate reads naive local timestamps as written by the old tool
func parseLegacyDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range legacyDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
