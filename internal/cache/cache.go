// Package cache implements a gob-encoded build cache: it memoizes a source
// file's compiled artifact keyed by a content hash, so a batch compile of
// many unchanged files doesn't re-run the pipeline.
package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"os"
	"sync"

	"github.com/philtomson/hotwright/internal/diag"
)

// Entry is one cached compilation result.
type Entry struct {
	SourceHash  string
	Words       []uint64
	VarData     []byte
	SwitchTable []int
	InstrCount  int
	WordWidth   int
	StateNames  []string
	InputNames  []string
}

// Cache is a content-addressed, in-memory build cache that can be
// persisted to and restored from a single gob file. It is safe for
// concurrent use by internal/batch's worker pool.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// New creates an empty Cache.
func New() *Cache {
	return &Cache{entries: map[string]Entry{}}
}

// HashSource computes the content key for src.
func HashSource(src string) string {
	sum := sha256.Sum256([]byte(src))
	return hex.EncodeToString(sum[:])
}

// Lookup returns the cached entry for hash, if any.
func (c *Cache) Lookup(hash string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[hash]
	return e, ok
}

// Store records a compiled artifact under hash.
func (c *Cache) Store(hash string, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e.SourceHash = hash
	c.entries[hash] = e
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Save persists the cache to path as a gob stream.
func (c *Cache) Save(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, err := os.Create(path)
	if err != nil {
		return diag.New(diag.IOError, "creating cache file %s: %v", path, err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(c.entries); err != nil {
		return diag.New(diag.IOError, "writing cache file %s: %v", path, err)
	}
	return nil
}

// Load restores a cache previously written by Save. A missing file is not
// an error — it just means an empty cache.
func Load(path string) (*Cache, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, diag.New(diag.IOError, "opening cache file %s: %v", path, err)
	}
	defer f.Close()
	c := New()
	if err := gob.NewDecoder(f).Decode(&c.entries); err != nil {
		return nil, diag.New(diag.IOError, "reading cache file %s: %v", path, err)
	}
	return c, nil
}
