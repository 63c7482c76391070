package check

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/sha3"

	"latex-parser/internal/logger"
)

// Cache remembers the content digests of files that passed a check so that
// unchanged files can be skipped on the next run. A digest covers both the
// file bytes and the check settings, so changing a setting invalidates every
// entry.
type Cache struct {
	path string

	mu     sync.Mutex
	passed map[string]string // digest -> path it was last seen at
	dirty  bool
}

// OpenCache loads the cache stored at path. A missing file gives an empty
// cache; an empty path gives a cache that is never saved.
func OpenCache(path string) (*Cache, error) {
	c := &Cache{path: path, passed: make(map[string]string)}
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}
	if err := json.Unmarshal(data, &c.passed); err != nil {
		logger.Warn("ignoring corrupt check cache", logger.String("path", path), logger.Err(err))
		c.passed = make(map[string]string)
		c.dirty = true
	}
	return c, nil
}

// Digest returns the cache key for data checked with the given settings.
func Digest(settings string, data []byte) string {
	h := sha3.NewShake128()
	h.Write([]byte(settings))
	h.Write([]byte{0})
	h.Write(data)
	buf := make([]byte, 15)
	h.Read(buf)
	return base64.RawURLEncoding.EncodeToString(buf)
}

// Passed reports whether digest was recorded as passing.
func (c *Cache) Passed(digest string) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.passed[digest]
	return ok
}

// Mark records digest as passing for the file at path.
func (c *Cache) Mark(digest, path string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.passed[digest] != path {
		c.passed[digest] = path
		c.dirty = true
	}
}

// Forget drops every entry recorded for path.
func (c *Cache) Forget(path string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for d, p := range c.passed {
		if p == path {
			delete(c.passed, d)
			c.dirty = true
		}
	}
}

// Len returns the number of entries
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.passed)
}

// Save writes the cache back if it changed.
func (c *Cache) Save() error {
	if c == nil || c.path == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}

	data, err := json.MarshalIndent(c.passed, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}
	if dir := filepath.Dir(c.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	c.dirty = false
	logger.Debug("check cache saved", logger.String("path", c.path), logger.Int("entries", len(c.passed)))
	return nil
}
