package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ncruces/go-sqlite3"
	"github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/rs/zerolog/log"

	"github.com/kamal-hamza/hx-cli/internal/core/domain"
	"github.com/kamal-hamza/hx-cli/internal/core/ports"
)

// timeLayout is fixed width so that text order equals time order
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store is the SQLite catalog. It implements both ports.CatalogRepository
// and ports.TagRepository over one database.
type Store struct {
	db    *sql.DB
	path  string
	clock ports.Clock
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the source of creation timestamps
func WithClock(c ports.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// Open opens (or creates) the catalog database at dbPath and applies the schema
func Open(ctx context.Context, dbPath string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, &domain.StorageError{Path: filepath.Dir(dbPath), Op: "create", Inner: err}
	}

	db, err := driver.Open("file:"+dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)", registerFunctions)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	// One connection serializes every mutation, tag removal included
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: dbPath, clock: ports.SystemClock{}}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// foldFunc is the SQL name of the Unicode-aware lower-casing used by
// case-insensitive search. SQLite's own lower() folds ASCII only.
const foldFunc = "hx_fold"

// registerFunctions installs the Go-side SQL functions on each new connection
func registerFunctions(c *sqlite3.Conn) error {
	return c.CreateFunction(foldFunc, 1, sqlite3.DETERMINISTIC|sqlite3.INNOCUOUS, func(ctx sqlite3.Context, arg ...sqlite3.Value) {
		if arg[0].Type() == sqlite3.NULL {
			ctx.ResultNull()
			return
		}
		ctx.ResultText(strings.ToLower(arg[0].Text()))
	})
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file location
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.SchemaError{Op: "migrate", Inner: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, CatalogSchema); err != nil {
		return &domain.SchemaError{Op: "migrate", Inner: err}
	}

	var current int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return &domain.SchemaError{Op: "migrate", Inner: err}
	}
	if current > SchemaVersion {
		return &domain.SchemaError{Op: "migrate", Inner: fmt.Errorf("database schema v%d is newer than supported v%d", current, SchemaVersion)}
	}
	if current < SchemaVersion {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`,
			SchemaVersion, formatTime(s.clock.Now()),
		); err != nil {
			return &domain.SchemaError{Op: "migrate", Inner: err}
		}
		log.Debug().Int("from", current).Int("to", SchemaVersion).Str("path", s.path).Msg("catalog schema applied")
	}

	if err := tx.Commit(); err != nil {
		return &domain.SchemaError{Op: "migrate", Inner: err}
	}
	return nil
}

// Version reports the applied schema version
func (s *Store) Version(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&v)
	return v, err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// Rows written by hand or other tools
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
