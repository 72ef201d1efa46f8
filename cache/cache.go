// Package cache stores encoded machine code keyed by the content of the
// scheduled program that produced it.
//
// Keys are 128-bit xxh3 digests of the canonical CBOR form of a program,
// so two structurally equal programs share an entry regardless of where
// they came from. Entries live in a single SQLite table.
package cache

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeebo/xxh3"
	_ "modernc.org/sqlite"

	"github.com/gogpu/midgard/mir"
)

// ErrClosed is returned by operations on a closed cache.
var ErrClosed = errors.New("cache is closed")

// formatVersion is mixed into every key. Bump it whenever the encoder's
// output for an unchanged program changes.
const formatVersion = "midgard-1"

// Cache is a persistent store of encoded programs. Get and Put are safe
// for concurrent use; Close must not race with them.
type Cache struct {
	db   *sql.DB
	path string
}

// Open opens or creates the cache database at path. Parent directories
// are created as needed.
func Open(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS binaries (
		key   TEXT PRIMARY KEY,
		name  TEXT NOT NULL,
		code  BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	slogger().Info("cache opened", "path", path)
	return &Cache{db: db, path: path}, nil
}

// Path returns the database file the cache was opened from.
func (c *Cache) Path() string { return c.path }

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// Key returns the cache key of p.
func Key(p *mir.Program) (string, error) {
	data, err := mir.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("serializing program: %w", err)
	}
	h := xxh3.New()
	_, _ = h.WriteString(formatVersion)
	_, _ = h.Write(data)
	sum := h.Sum128().Bytes()
	return hex.EncodeToString(sum[:]), nil
}

// Get returns the code stored under key. The boolean is false when there
// is no entry.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c.db == nil {
		return nil, false, ErrClosed
	}

	var code []byte
	err := c.db.QueryRowContext(ctx, "SELECT code FROM binaries WHERE key = ?", key).Scan(&code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slogger().Debug("cache miss", "key", key)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("querying binary: %w", err)
	}

	slogger().Debug("cache hit", "key", key, "bytes", len(code))
	return code, true, nil
}

// Put stores code under key, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, key, name string, code []byte) error {
	if c.db == nil {
		return ErrClosed
	}

	_, err := c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO binaries (key, name, code) VALUES (?, ?, ?)",
		key, name, code,
	)
	if err != nil {
		return fmt.Errorf("saving binary: %w", err)
	}
	return nil
}

// Len returns the number of stored entries.
func (c *Cache) Len(ctx context.Context) (int, error) {
	if c.db == nil {
		return 0, ErrClosed
	}
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM binaries").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting binaries: %w", err)
	}
	return n, nil
}
