package driverator

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteCache is the persistent Cache implementation. Entries are JSON
// snapshots keyed by the handle identity, with a unix write timestamp.
// The store may be shared by concurrent handles; sqlite serializes writes.
type SQLiteCache struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteCache(path string) (*SQLiteCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping cache store: %w", err)
	}
	c := &SQLiteCache{db: db, now: time.Now}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *SQLiteCache) migrate() error {
	_, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS metadata_cache (
		key TEXT PRIMARY KEY,
		metadata TEXT NOT NULL,
		written_at INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("cache migration failed: %w", err)
	}
	return nil
}

func (c *SQLiteCache) Get(ctx context.Context, key string, ttl time.Duration) (*FileMetadata, error) {
	var (
		raw       string
		writtenAt int64
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT metadata, written_at FROM metadata_cache WHERE key = ?`, key).
		Scan(&raw, &writtenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache read failed: %w", err)
	}
	if c.now().Sub(time.Unix(writtenAt, 0)) >= ttl {
		return nil, nil
	}
	meta := &FileMetadata{}
	if err := json.Unmarshal([]byte(raw), meta); err != nil {
		return nil, fmt.Errorf("cache entry corrupt: %w", err)
	}
	return meta, nil
}

func (c *SQLiteCache) Put(ctx context.Context, key string, meta *FileMetadata) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("cache encode failed: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO metadata_cache (key, metadata, written_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET metadata = excluded.metadata, written_at = excluded.written_at`,
		key, string(raw), c.now().Unix())
	if err != nil {
		return fmt.Errorf("cache write failed: %w", err)
	}
	return nil
}

func (c *SQLiteCache) Invalidate(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM metadata_cache WHERE key = ?`, key); err != nil {
		return fmt.Errorf("cache invalidate failed: %w", err)
	}
	return nil
}

func (c *SQLiteCache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM metadata_cache`); err != nil {
		return fmt.Errorf("cache clear failed: %w", err)
	}
	return nil
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
