package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// schema is executed on every open; IF NOT EXISTS keeps it idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS namespace_store (
    namespace TEXT NOT NULL,
    key       TEXT NOT NULL,
    value     TEXT NOT NULL,
    PRIMARY KEY (namespace, key)
);
`

// DefaultDirPermissions is used when creating the database directory.
const DefaultDirPermissions = 0o750

var (
	// ErrStoreLookup is returned when the database cannot be reached or queried.
	ErrStoreLookup = errors.New("database lookup failed")
	// ErrKeyNotFound is returned when no item is stored under a key.
	ErrKeyNotFound = errors.New("key not found")
	// ErrInvalidKey is returned for empty keys or keys with empty segments.
	ErrInvalidKey = errors.New("invalid key")
	// ErrValueType is returned when a stored value has an unexpected type.
	ErrValueType = errors.New("unexpected value type")
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a namespaced key-value store backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("%w: create database directory: %w", ErrStoreLookup, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", ErrStoreLookup, err)
	}

	// SQLite has a single writer; one connection avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", schema} {
		if _, err = db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("%w: prepare database: %w", ErrStoreLookup, err)
		}
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetItem returns the value stored under key in namespace.
func (s *Store) GetItem(ctx context.Context, namespace, key string) (any, error) {
	parts, err := splitKey(key)
	if err != nil {
		return nil, err
	}

	record, found, err := readRecord(ctx, s.db, namespace, parts[0])
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("%s/%s: %w", namespace, key, ErrKeyNotFound)
	}

	value, ok := walk(record, parts[1:])
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", namespace, key, ErrKeyNotFound)
	}

	return value, nil
}

// GetString returns the string stored under key, or def when nothing
// (or JSON null) is stored there.
func (s *Store) GetString(ctx context.Context, namespace, key, def string) (string, error) {
	value, err := s.GetItem(ctx, namespace, key)
	if errors.Is(err, ErrKeyNotFound) {
		return def, nil
	}

	if err != nil {
		return "", err
	}

	switch typed := value.(type) {
	case nil:
		return def, nil
	case string:
		return typed, nil
	default:
		return "", fmt.Errorf("%s/%s holds %T: %w", namespace, key, value, ErrValueType)
	}
}

// InsertItem stores value under key, creating intermediate objects as needed.
func (s *Store) InsertItem(ctx context.Context, namespace, key string, value any) error {
	parts, err := splitKey(key)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin insert: %w", ErrStoreLookup, err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	record := value

	if len(parts) > 1 {
		current, found, readErr := readRecord(ctx, tx, namespace, parts[0])
		if readErr != nil {
			return readErr
		}

		root := make(map[string]any)

		if found {
			existing, ok := current.(map[string]any)
			if !ok {
				return fmt.Errorf("%s/%s holds %T: %w", namespace, parts[0], current, ErrValueType)
			}

			root = existing
		}

		if err = setNested(root, parts[1:], value); err != nil {
			return fmt.Errorf("%s/%s: %w", namespace, key, err)
		}

		record = root
	}

	if err = writeRecord(ctx, tx, namespace, parts[0], record); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit insert: %w", ErrStoreLookup, err)
	}

	return nil
}

// DeleteItem removes the item stored under key and returns it.
func (s *Store) DeleteItem(ctx context.Context, namespace, key string) (any, error) {
	parts, err := splitKey(key)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin delete: %w", ErrStoreLookup, err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	record, found, err := readRecord(ctx, tx, namespace, parts[0])
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("%s/%s: %w", namespace, key, ErrKeyNotFound)
	}

	var removed any

	if len(parts) == 1 {
		removed = record

		const q = `DELETE FROM namespace_store WHERE namespace = ? AND key = ?`
		if _, err = tx.ExecContext(ctx, q, namespace, parts[0]); err != nil {
			return nil, fmt.Errorf("%w: delete %s/%s: %w", ErrStoreLookup, namespace, key, err)
		}
	} else {
		parent, ok := walk(record, parts[1:len(parts)-1])

		object, isObject := parent.(map[string]any)
		if !ok || !isObject {
			return nil, fmt.Errorf("%s/%s: %w", namespace, key, ErrKeyNotFound)
		}

		last := parts[len(parts)-1]

		if removed, ok = object[last]; !ok {
			return nil, fmt.Errorf("%s/%s: %w", namespace, key, ErrKeyNotFound)
		}

		delete(object, last)

		if err = writeRecord(ctx, tx, namespace, parts[0], record); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit delete: %w", ErrStoreLookup, err)
	}

	return removed, nil
}

// readRecord loads and decodes the top-level record stored under key.
func readRecord(ctx context.Context, q queryer, namespace, key string) (any, bool, error) {
	var raw string

	err := q.QueryRowContext(ctx,
		"SELECT value FROM namespace_store WHERE namespace = ? AND key = ?",
		namespace, key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("%w: read %s/%s: %w", ErrStoreLookup, namespace, key, err)
	}

	var record any
	if err = json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, false, fmt.Errorf("%w: decode %s/%s: %w", ErrStoreLookup, namespace, key, err)
	}

	return record, true, nil
}

// writeRecord encodes and upserts a top-level record.
func writeRecord(ctx context.Context, tx *sql.Tx, namespace, key string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", namespace, key, err)
	}

	const q = `
		INSERT INTO namespace_store (namespace, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value`
	if _, err = tx.ExecContext(ctx, q, namespace, key, string(data)); err != nil {
		return fmt.Errorf("%w: write %s/%s: %w", ErrStoreLookup, namespace, key, err)
	}

	return nil
}

// splitKey splits a dotted key into its segments.
func splitKey(key string) ([]string, error) {
	parts := strings.Split(key, ".")
	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("%q: %w", key, ErrInvalidKey)
		}
	}

	return parts, nil
}

// walk descends into nested objects along path.
func walk(value any, path []string) (any, bool) {
	for _, part := range path {
		object, ok := value.(map[string]any)
		if !ok {
			return nil, false
		}

		if value, ok = object[part]; !ok {
			return nil, false
		}
	}

	return value, true
}

// setNested assigns value at path inside root, creating objects on the way.
func setNested(root map[string]any, path []string, value any) error {
	current := root

	for _, part := range path[:len(path)-1] {
		next, exists := current[part]
		if !exists {
			created := make(map[string]any)
			current[part] = created
			current = created

			continue
		}

		object, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%s holds %T: %w", part, next, ErrValueType)
		}

		current = object
	}

	current[path[len(path)-1]] = value

	return nil
}
