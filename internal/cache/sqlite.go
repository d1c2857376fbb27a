package cache

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"asrprep/internal/prep"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
    namespace  TEXT NOT NULL,
    key        TEXT NOT NULL,
    data       BLOB NOT NULL,
    size       INTEGER NOT NULL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (namespace, key)
)`

// DefaultSQLiteName is the database file used when no path is configured.
const DefaultSQLiteName = "asrprep-cache.db"

// SQLiteBackend stores entries as blobs in a SQLite table. Keys are scoped
// by namespace so several directories can share one database.
type SQLiteBackend struct {
	db        *sql.DB
	path      string
	namespace string
}

// NewSQLiteBackend opens (or creates) the database at path. An empty path
// places the database inside dir. The namespace is the absolute dir.
func NewSQLiteBackend(path, dir string) (*SQLiteBackend, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, prep.Wrap(prep.ErrConfiguration, "cache", "open", "directory is empty", nil)
	}
	namespace, err := filepath.Abs(dir)
	if err != nil {
		return nil, prep.Wrap(prep.ErrConfiguration, "cache", "open", "resolve directory", err)
	}
	if strings.TrimSpace(path) == "" {
		path = filepath.Join(dir, DefaultSQLiteName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, prep.Wrap(prep.ErrConfiguration, "cache", "open", "create database directory", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteBackend{db: db, path: path, namespace: namespace}, nil
}

func (b *SQLiteBackend) Exists(ctx context.Context, key string) (bool, error) {
	var count int
	err := b.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM cache_entries WHERE namespace = ? AND key = ?",
		b.namespace, key,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query %s: %w", key, err)
	}
	return count > 0, nil
}

func (b *SQLiteBackend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	var data []byte
	err := b.db.QueryRowContext(ctx,
		"SELECT data FROM cache_entries WHERE namespace = ? AND key = ?",
		b.namespace, key,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, prep.Wrap(prep.ErrNotFound, "cache", "open", key, nil)
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *SQLiteBackend) Commit(ctx context.Context, key string, write func(io.Writer) error) error {
	if key == "" {
		return errors.New("invalid cache key \"\"")
	}
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO cache_entries (namespace, key, data, size, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(namespace, key) DO UPDATE SET
             data = excluded.data, size = excluded.size, updated_at = excluded.updated_at`,
		b.namespace, key, buf.Bytes(), buf.Len(), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", key, err)
	}
	return nil
}

func (b *SQLiteBackend) List(ctx context.Context) ([]string, error) {
	rows, err := b.db.QueryContext(ctx,
		"SELECT key FROM cache_entries WHERE namespace = ? ORDER BY key", b.namespace)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (b *SQLiteBackend) Location(key string) string {
	return "sqlite://" + b.path + "#" + b.namespace + "/" + key
}

// Close closes the underlying database connection.
func (b *SQLiteBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}
