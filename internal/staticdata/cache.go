package staticdata

import (
	"log/slog"
	"sync"

	"github.com/kaimin86/credit-rating-deploy/internal/contract"
)

// Cache is the injected read-through holder of the static tables. Tables are loaded on
// the first Get (or an explicit Init) and served from memory until Invalidate.
type Cache struct {
	dir    string
	logger *slog.Logger

	mu     sync.RWMutex
	tables *Tables
	loads  int
}

// NewCache creates an empty cache over a data directory.
func NewCache(dir string, logger *slog.Logger) *Cache {
	return &Cache{dir: dir, logger: contract.LoggerOrDefault(logger)}
}

// Init loads the tables now, so that configuration errors surface at startup.
func (c *Cache) Init() error {
	_, err := c.Get()
	return err
}

// Get returns the cached tables, loading them when needed.
// A failed load is not cached.
func (c *Cache) Get() (*Tables, error) {
	c.mu.RLock()
	t := c.tables
	c.mu.RUnlock()
	if t != nil {
		return t, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tables != nil {
		return c.tables, nil
	}
	t, err := Load(c.dir, c.logger)
	if err != nil {
		return nil, err
	}
	c.tables = t
	c.loads++
	return t, nil
}

// Invalidate drops the cached tables. The next Get reloads from disk.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.tables = nil
	c.mu.Unlock()
	c.logger.Debug("static tables invalidated", "dir", c.dir)
}

// Loads reports how many times the tables were read from disk.
func (c *Cache) Loads() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loads
}
