package repository

// SchemaVersion is the catalog layout written by this build
const SchemaVersion = 1

// CatalogSchema creates the catalog tables. Tag values live in asset_tags:
// a row means true, no row means false.
const CatalogSchema = `
CREATE TABLE IF NOT EXISTS schema_version (
    version     INTEGER PRIMARY KEY,
    applied_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS assets (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    source_path   TEXT NOT NULL DEFAULT '',
    preview_path  TEXT NOT NULL DEFAULT '',
    display_name  TEXT NOT NULL,
    created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tags (
    seq         INTEGER PRIMARY KEY AUTOINCREMENT,
    identifier  TEXT NOT NULL UNIQUE,
    name        TEXT NOT NULL,
    created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS asset_tags (
    asset_id  INTEGER NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
    tag       TEXT NOT NULL REFERENCES tags(identifier) ON DELETE CASCADE,
    PRIMARY KEY (asset_id, tag)
);

CREATE INDEX IF NOT EXISTS idx_assets_name ON assets(display_name COLLATE NOCASE);
CREATE INDEX IF NOT EXISTS idx_assets_created ON assets(created_at);
CREATE INDEX IF NOT EXISTS idx_asset_tags_tag ON asset_tags(tag);
`
