package images

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Cache is the SQLite-backed staleness cache for generated image variants.
// Variants are pure functions of the source bytes, so a (source hash, width,
// format) row whose output file still exists means the work can be skipped.
type Cache struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenCache opens (or creates) the cache database. Use ":memory:" for an
// in-memory cache, or a file path for persistence across builds.
func OpenCache(dbPath string) (*Cache, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}

	cache := &Cache{db: db}
	if err := cache.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize cache schema: %w", err)
	}
	return cache, nil
}

func (c *Cache) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS variants (
		source_hash TEXT NOT NULL,
		width INTEGER NOT NULL,
		format TEXT NOT NULL,
		output_path TEXT NOT NULL,
		built_at INTEGER NOT NULL,
		PRIMARY KEY (source_hash, width, format)
	);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Lookup returns the recorded output path for a variant, if present.
func (c *Cache) Lookup(sourceHash string, width int, format string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var outputPath string
	err := c.db.QueryRow(
		"SELECT output_path FROM variants WHERE source_hash = ? AND width = ? AND format = ?",
		sourceHash, width, format,
	).Scan(&outputPath)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query variant: %w", err)
	}
	return outputPath, true, nil
}

// Store records a generated variant. Upserts so re-generation after a config
// change just overwrites the row.
func (c *Cache) Store(sourceHash string, width int, format, outputPath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(
		`INSERT INTO variants (source_hash, width, format, output_path, built_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (source_hash, width, format) DO UPDATE SET
		   output_path = excluded.output_path, built_at = excluded.built_at`,
		sourceHash, width, format, outputPath, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("store variant: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}
