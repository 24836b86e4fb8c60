package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const storeSchema = `
CREATE TABLE IF NOT EXISTS items (
	id       TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	data     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Store persists catalog snapshots in a SQLite database so the library is
// browsable before the first refresh completes
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the snapshot database at path
func OpenStore(path string) (*Store, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create catalog schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the stored snapshot
func (s *Store) Save(ctx context.Context, items []*Item, updated time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO items (id, position, data) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, it := range items {
		data, err := json.Marshal(it)
		if err != nil {
			return fmt.Errorf("failed to marshal item %s: %w", it.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, it.ID, i, string(data)); err != nil {
			return fmt.Errorf("failed to insert item %s: %w", it.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES ('updated', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		updated.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("failed to write update time: %w", err)
	}

	return tx.Commit()
}

// Load reads the stored snapshot in its original order
func (s *Store) Load(ctx context.Context) ([]Item, time.Time, error) {
	var updated time.Time
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'updated'`).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, updated, fmt.Errorf("failed to read update time: %w", err)
	default:
		if updated, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return nil, updated, fmt.Errorf("invalid update time %q: %w", raw, err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT data FROM items ORDER BY position`)
	if err != nil {
		return nil, updated, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, updated, fmt.Errorf("failed to scan item: %w", err)
		}
		var it Item
		if err := json.Unmarshal([]byte(data), &it); err != nil {
			return nil, updated, fmt.Errorf("failed to decode item: %w", err)
		}
		items = append(items, it)
	}

	return items, updated, rows.Err()
}
