package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/lica/pkg/lica/internalerr"
	"github.com/cognicore/lica/pkg/lica/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Initialize schema
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS datasets (
	name TEXT PRIMARY KEY,
	body BLOB NOT NULL,
	updated_at TEXT NOT NULL
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// Put inserts or replaces a dataset
func (s *sqliteStore) Put(ctx context.Context, name string, body []byte) error {
	const stmt = `
INSERT INTO datasets (name, body, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	body=excluded.body,
	updated_at=excluded.updated_at;
`
	_, err := s.db.ExecContext(ctx, stmt, name, body, time.Now().UTC().Format(time.RFC3339))
	return err
}

// Load implements dataset.Loader
func (s *sqliteStore) Load(ctx context.Context, name string) ([]byte, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM datasets WHERE name = ?`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dataset %q: %w", name, internalerr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Names lists stored datasets in name order
func (s *sqliteStore) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM datasets ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
