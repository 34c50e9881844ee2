// Package poster resolves preview URLs to image bytes through three tiers:
// an in-process memory map, a disk cache keyed by URL hash, and finally a
// rate-limited network fetch.
package poster

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Cache is the on-disk poster store. Image bytes live as <sha256(url)>.jpg
// files inside dir; a sqlite index alongside them records the source URL,
// size and fetch time per entry. The files are the source of truth, the
// index is metadata: a cache dir populated by an older build (files, no
// rows) still serves hits.
type Cache struct {
	dir string
	db  *sql.DB
}

// OpenCache creates dir if needed and opens the metadata index.
func OpenCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("poster: create cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("poster: open cache index: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS posters (
			hash       TEXT PRIMARY KEY,
			url        TEXT NOT NULL,
			size       INTEGER NOT NULL,
			fetched_at INTEGER NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("poster: init cache index: %w", err)
	}
	return &Cache{dir: dir, db: db}, nil
}

// Close releases the index handle.
func (c *Cache) Close() error { return c.db.Close() }

// Key derives the cache key for a URL. Hashing instead of sanitizing keeps
// the filename fixed-length and free of path characters.
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".jpg")
}

// Read returns the cached bytes for url, or ok=false on a miss.
func (c *Cache) Read(url string) ([]byte, bool) {
	data, err := os.ReadFile(c.path(Key(url)))
	if err != nil {
		return nil, false
	}
	return data, true
}

// Write stores bytes for url and records the entry in the index. The file
// lands via temp+rename so a crash never leaves a truncated poster behind.
func (c *Cache) Write(url string, data []byte, now time.Time) error {
	key := Key(url)
	final := c.path(key)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("poster: cache write: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("poster: cache write: %w", err)
	}
	if _, err := c.db.Exec(
		`INSERT OR REPLACE INTO posters (hash, url, size, fetched_at) VALUES (?, ?, ?, ?)`,
		key, url, len(data), now.Unix(),
	); err != nil {
		return fmt.Errorf("poster: cache index: %w", err)
	}
	return nil
}

// CacheStats summarizes the cache directory.
type CacheStats struct {
	Entries int
	Bytes   int64
	Indexed int
}

// Stats counts the poster files on disk and the rows in the index. The two
// can diverge when files predate the index.
func (c *Cache) Stats() (CacheStats, error) {
	var st CacheStats
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return st, fmt.Errorf("poster: cache stats: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jpg") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		st.Entries++
		st.Bytes += info.Size()
	}
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM posters`).Scan(&st.Indexed); err != nil {
		return st, fmt.Errorf("poster: cache stats: %w", err)
	}
	return st, nil
}

// Prune removes poster files not modified since the cutoff, along with
// their index rows. Returns how many entries were removed.
func (c *Cache) Prune(olderThan time.Duration, now time.Time) (int, error) {
	cutoff := now.Add(-olderThan)
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("poster: prune: %w", err)
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jpg") {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return removed, fmt.Errorf("poster: prune: %w", err)
		}
		key := strings.TrimSuffix(e.Name(), ".jpg")
		if _, err := c.db.Exec(`DELETE FROM posters WHERE hash = ?`, key); err != nil {
			return removed, fmt.Errorf("poster: prune index: %w", err)
		}
		removed++
	}
	return removed, nil
}
