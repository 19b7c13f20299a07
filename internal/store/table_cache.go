package store

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"coverage.logistics.org/internal/metrics"
	"coverage.logistics.org/internal/sheet"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxEntries bounds the number of parsed tables kept in memory.
const DefaultMaxEntries = 32

// Cache names, used as the "cache" metric label.
const (
	DatasetCache = "datasets"
	BatchCache   = "batches"
)

// Entry is a parsed upload held by the cache.
type Entry struct {
	Key      string
	Filename string
	Table    *sheet.Table
	LoadedAt time.Time
}

// LoadFunc parses the raw bytes of an upload.
type LoadFunc func(filename string, data []byte) (*sheet.Table, error)

// TableCache is a thread-safe in-memory store of parsed uploads, keyed by the SHA-256
// of their content. Uploading identical bytes again reuses the parsed table; a new
// upload simply gets a new key. When full, the oldest entry is evicted.
// Failed parses are never cached.
type TableCache struct {
	name       string
	mu         sync.RWMutex
	entries    map[string]*Entry
	order      []string // keys in insertion order
	maxEntries int
	group      singleflight.Group
}

// NewTableCache creates a cache holding at most maxEntries tables. name labels its
// metrics. A non-positive maxEntries uses DefaultMaxEntries.
func NewTableCache(name string, maxEntries int) *TableCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &TableCache{
		name:       name,
		entries:    make(map[string]*Entry),
		maxEntries: maxEntries,
	}
}

// ContentKey returns the cache key for an upload.
func ContentKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Get retrieves a parsed table by key.
func (c *TableCache) Get(key string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	c.recordLookup(ok)
	return entry, ok
}

// GetOrLoad returns the cached table for data, parsing it with load on a miss.
// Concurrent calls for the same content share a single parse.
func (c *TableCache) GetOrLoad(filename string, data []byte, load LoadFunc) (*Entry, error) {
	key := ContentKey(data)
	if entry, ok := c.Get(key); ok {
		return entry, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Another caller may have stored it while we waited on the group.
		c.mu.RLock()
		entry, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return entry, nil
		}

		table, err := load(filename, data)
		if err != nil {
			return nil, err
		}
		entry = &Entry{
			Key:      key,
			Filename: filename,
			Table:    table,
			LoadedAt: time.Now().UTC(),
		}
		c.put(entry)
		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

// Invalidate drops a table from the cache. It reports whether the key was present.
func (c *TableCache) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	metrics.TableCacheEntries.WithLabelValues(c.name).Set(float64(len(c.entries)))
	return true
}

// Len returns the number of cached tables.
func (c *TableCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *TableCache) put(entry *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[entry.Key]; !exists {
		c.order = append(c.order, entry.Key)
	}
	c.entries[entry.Key] = entry

	for len(c.order) > c.maxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	metrics.TableCacheEntries.WithLabelValues(c.name).Set(float64(len(c.entries)))
}

func (c *TableCache) recordLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	metrics.TableCacheRequests.WithLabelValues(c.name, result).Inc()
}
