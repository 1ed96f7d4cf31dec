// Package persistence provides durable storage for conversations, plans,
// subtasks and approvals backed by SQLite, with commit-path metrics
// exported for operational visibility.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a path has no stored value.
var ErrNotFound = errors.New("persistence: not found")

// Store is a hierarchical key-value store over a SQLite table. Keys are
// slash-joined path segments, matching the shape the orchestration
// packages build up (e.g. []string{"session", id} or
// []string{"plan", planID, "subtask", subtaskID}).
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite-backed store at dbPath.
// Use ":memory:" for an ephemeral store in tests.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; avoid SQLITE_BUSY churn

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			path TEXT PRIMARY KEY,
			parent TEXT NOT NULL,
			data BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_kv_parent ON kv(parent);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// OpenDB wraps an already-open database handle, e.g. for sharing a
// connection across a UnitOfWork and the Store.
func OpenDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			path TEXT PRIMARY KEY,
			parent TEXT NOT NULL,
			data BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_kv_parent ON kv(parent);
	`); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for packages that need transactions
// (see UnitOfWork).
func (s *Store) DB() *sql.DB {
	return s.db
}

func joinPath(path []string) string {
	return strings.Join(path, "/")
}

func parentOf(path []string) string {
	if len(path) <= 1 {
		return ""
	}
	return joinPath(path[:len(path)-1])
}

// Get retrieves and unmarshals the value stored at path into v.
func (s *Store) Get(ctx context.Context, path []string, v any) error {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM kv WHERE path = ?`, joinPath(path)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", joinPath(path), err)
	}
	return json.Unmarshal(data, v)
}

// Put marshals v and upserts it at path.
func (s *Store) Put(ctx context.Context, path []string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv (path, parent, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, joinPath(path), parentOf(path), data, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("put %s: %w", joinPath(path), err)
	}
	return nil
}

// Delete removes the value at path, if any.
func (s *Store) Delete(ctx context.Context, path []string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE path = ?`, joinPath(path))
	if err != nil {
		return fmt.Errorf("delete %s: %w", joinPath(path), err)
	}
	return nil
}

// List returns the direct children path segments beneath path.
func (s *Store) List(ctx context.Context, path []string) ([]string, error) {
	parent := joinPath(path)
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM kv WHERE parent = ?`, parent)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", parent, err)
	}
	defer rows.Close()

	var items []string
	for rows.Next() {
		var full string
		if err := rows.Scan(&full); err != nil {
			return nil, err
		}
		items = append(items, full[strings.LastIndex(full, "/")+1:])
	}
	return items, rows.Err()
}

// Scan iterates over every direct child beneath path, calling fn with its
// last path segment and raw JSON bytes.
func (s *Store) Scan(ctx context.Context, path []string, fn func(key string, data json.RawMessage) error) error {
	parent := joinPath(path)
	rows, err := s.db.QueryContext(ctx, `SELECT path, data FROM kv WHERE parent = ? ORDER BY updated_at ASC`, parent)
	if err != nil {
		return fmt.Errorf("scan %s: %w", parent, err)
	}
	defer rows.Close()

	for rows.Next() {
		var full string
		var data []byte
		if err := rows.Scan(&full, &data); err != nil {
			return err
		}
		key := full[strings.LastIndex(full, "/")+1:]
		if err := fn(key, json.RawMessage(data)); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Exists reports whether path has a stored value.
func (s *Store) Exists(ctx context.Context, path []string) bool {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM kv WHERE path = ?`, joinPath(path)).Scan(&one)
	return err == nil
}
