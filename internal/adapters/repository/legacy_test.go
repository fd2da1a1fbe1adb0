package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeLegacyDB builds a catalog in the old wide-table layout
func writeLegacyDB(t *testing.T, withDate bool) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hdri_database.db")
	db, err := sql.Open("sqlite3", "file:"+path)
	require.NoError(t, err)
	defer db.Close()

	create := `CREATE TABLE hdri (id INTEGER PRIMARY KEY AUTOINCREMENT, file_path TEXT, preview_path TEXT, name TEXT`
	if withDate {
		create += `, upload_date TEXT NOT NULL`
	}
	create += `)`
	_, err = db.Exec(create)
	require.NoError(t, err)
	_, err = db.Exec(`ALTER TABLE hdri ADD COLUMN tag_Golden_Hour BOOLEAN DEFAULT 0`)
	require.NoError(t, err)
	_, err = db.Exec(`ALTER TABLE hdri ADD COLUMN tag_Outdoor BOOLEAN DEFAULT 0`)
	require.NoError(t, err)

	if withDate {
		_, err = db.Exec(`INSERT INTO hdri (file_path, preview_path, name, upload_date, tag_Golden_Hour)
			VALUES ('/lib/00001_Lake/lake.hdr', '/lib/00001_Lake/preview.jpg', 'Lake', '2023-05-06T07:08:09.123456', 1)`)
		require.NoError(t, err)
		_, err = db.Exec(`INSERT INTO hdri (file_path, preview_path, name, upload_date, tag_Outdoor)
			VALUES ('/lib/00002_Hill/hill.exr', '/lib/00002_Hill/preview.jpg', 'Hill', '2023-05-07T00:00:00', 1)`)
	} else {
		_, err = db.Exec(`INSERT INTO hdri (file_path, preview_path, name, tag_Outdoor)
			VALUES ('/lib/00001_Lake/lake.hdr', '/lib/00001_Lake/preview.jpg', 'Lake', 1)`)
	}
	require.NoError(t, err)
	return path
}

func TestLegacyDB_TagColumns(t *testing.T) {
	l, err := OpenLegacy(writeLegacyDB(t, true))
	require.NoError(t, err)
	defer l.Close()

	cols, err := l.TagColumns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"tag_Golden_Hour", "tag_Outdoor"}, cols)
}

func TestLegacyDB_Records(t *testing.T) {
	l, err := OpenLegacy(writeLegacyDB(t, true))
	require.NoError(t, err)
	defer l.Close()

	recs, err := l.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "Lake", recs[0].Name)
	assert.Equal(t, "/lib/00001_Lake/lake.hdr", recs[0].FilePath)
	assert.Equal(t, map[string]bool{"tag_Golden_Hour": true, "tag_Outdoor": false}, recs[0].Tags)
	want := time.Date(2023, 5, 6, 7, 8, 9, 123456000, time.Local)
	assert.True(t, recs[0].UploadDate.Equal(want), "got %v", recs[0].UploadDate)

	assert.Equal(t, map[string]bool{"tag_Golden_Hour": false, "tag_Outdoor": true}, recs[1].Tags)
}

func TestLegacyDB_WithoutUploadDate(t *testing.T) {
	l, err := OpenLegacy(writeLegacyDB(t, false))
	require.NoError(t, err)
	defer l.Close()

	recs, err := l.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].UploadDate.IsZero())
	assert.True(t, recs[0].Tags["tag_Outdoor"])
}

func TestOpenLegacy_Missing(t *testing.T) {
	_, err := OpenLegacy(filepath.Join(t.TempDir(), "nope.db"))
	assert.Error(t, err)
}
