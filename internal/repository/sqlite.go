package repository

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens (creating if needed) the service database and runs
// the schema migration.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS media_cache (
		username TEXT NOT NULL,
		kind TEXT NOT NULL,
		posts TEXT NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (username, kind)
	);

	CREATE TABLE IF NOT EXISTS admin_identities (
		admin_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		twitter_user_id TEXT,
		display_name TEXT,
		avatar_url TEXT,
		linked_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bearer_token (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		token BLOB NOT NULL,
		sealed BOOLEAN NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL,
		updated_by TEXT
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		severity TEXT NOT NULL,
		category TEXT NOT NULL,
		message TEXT NOT NULL,
		source TEXT,
		metadata TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_media_cache_updated_at ON media_cache(updated_at);
	CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_events_category ON events(category);
	`

	_, err := db.Exec(schema)
	return err
}
