package handoff

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const schema = `
CREATE TABLE IF NOT EXISTS staged_images (
	slot       TEXT PRIMARY KEY,
	record     BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStore is a Store persisted in an SQLite database, so staged images
// survive process restarts and can be shared between processes.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the store database at path.
// Use ":memory:" for a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("handoff: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("handoff: open: %w", err)
	}
	if path == ":memory:" {
		// Every connection to ":memory:" is a separate database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("handoff: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("handoff: exec schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("handoff: ping: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get returns the record under key or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, key string) (StagedImage, error) {
	var b []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM staged_images WHERE slot = ?`, key).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return StagedImage{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return StagedImage{}, fmt.Errorf("handoff: get %s: %w", key, err)
	}
	return unmarshalRecord(b)
}

// Put upserts img under key in a single statement.
func (s *SQLiteStore) Put(ctx context.Context, key string, img StagedImage) error {
	b, err := marshalRecord(img)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO staged_images (slot, record, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET record = excluded.record, updated_at = excluded.updated_at`,
		key, b, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("handoff: put %s: %w", key, err)
	}
	return nil
}

// Find returns the lowest key with the given prefix and its record.
func (s *SQLiteStore) Find(ctx context.Context, prefix string) (string, StagedImage, error) {
	var (
		key string
		b   []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT slot, record FROM staged_images
		WHERE substr(slot, 1, length(?1)) = ?1
		ORDER BY slot LIMIT 1`, prefix).Scan(&key, &b)
	if errors.Is(err, sql.ErrNoRows) {
		return "", StagedImage{}, fmt.Errorf("%w: prefix %q", ErrNotFound, prefix)
	}
	if err != nil {
		return "", StagedImage{}, fmt.Errorf("handoff: find %q: %w", prefix, err)
	}
	img, err := unmarshalRecord(b)
	if err != nil {
		return "", StagedImage{}, err
	}
	return key, img, nil
}

// List returns the keys starting with prefix, sorted.
func (s *SQLiteStore) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT slot FROM staged_images
		WHERE substr(slot, 1, length(?1)) = ?1
		ORDER BY slot`, prefix)
	if err != nil {
		return nil, fmt.Errorf("handoff: list %q: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("handoff: list %q: %w", prefix, err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Delete removes the record under key.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM staged_images WHERE slot = ?`, key); err != nil {
		return fmt.Errorf("handoff: delete %s: %w", key, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
