package lookup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Cache is the JSON file mapping "<kind>:<id>" to the last successful
// registry response. Loaded lazily, rewritten whole on every put (the
// file stays small: one line per counterparty ever looked up).
type Cache struct {
	path string

	mu      sync.Mutex
	loaded  bool
	entries map[string]json.RawMessage
}

// NewCache wraps the cache file at path. A missing file is an empty
// cache; a corrupt file is discarded and rebuilt.
func NewCache(path string) *Cache {
	return &Cache{path: path}
}

// Get returns the cached response for key, if any.
func (c *Cache) Get(key string) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load()
	raw, ok := c.entries[key]
	return raw, ok
}

// Put stores a response and persists the file.
func (c *Cache) Put(key string, raw json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load()
	c.entries[key] = raw

	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: marshal: %w", err)
	}
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cache: mkdir: %w", err)
		}
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("cache: write: %w", err)
	}
	return nil
}

// Len reports how many responses are cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load()
	return len(c.entries)
}

func (c *Cache) load() {
	if c.loaded {
		return
	}
	c.loaded = true
	c.entries = make(map[string]json.RawMessage)

	data, err := os.ReadFile(c.path)
	if err != nil {
		return
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return
	}
	c.entries = entries
}
