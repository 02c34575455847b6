package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// Cache is the audio cache: a durable disk store with an optional memory
// front. It is safe for concurrent use.
type Cache struct {
	memory *MemoryCache // nil when disabled
	disk   *DiskStore
	logger *log.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// New opens the cache described by config.
func New(config Config, opts ...Option) (*Cache, error) {
	c := &Cache{logger: log.Default()}
	for _, opt := range opts {
		opt(c)
	}
	if config.MaxBytes == 0 {
		config.MaxBytes = DefaultMaxBytes
	}

	disk, err := NewDiskStore(config.Dir, config.MaxBytes, config.CompressionLevel, c.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open disk cache: %w", err)
	}
	c.disk = disk

	if config.MemoryBytes > 0 {
		c.memory = NewMemoryCache(min(config.MemoryBytes, config.MaxBytes))
		disk.onEvict = c.memory.Delete
	}
	return c, nil
}

// Get returns the payload stored under key and refreshes its access time.
func (c *Cache) Get(key string) ([]byte, bool) {
	if c.memory != nil {
		if data, ok := c.memory.Get(key); ok {
			// The store decides eviction order, so it must see the access.
			if c.disk.Touch(key) {
				return data, true
			}
			c.memory.Delete(key)
		}
	}

	data, ok := c.disk.Get(key)
	if !ok {
		return nil, false
	}
	c.promote(key, data)
	return data, true
}

// Put stores value under key and evicts least recently used entries until
// the cache is back under its ceiling. A value larger than the ceiling is
// rejected with ErrItemTooLarge and nothing is changed.
func (c *Cache) Put(key string, value []byte) error {
	if err := c.disk.Put(key, value); err != nil {
		return err
	}
	c.promote(key, value)
	return nil
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	if c.memory != nil {
		c.memory.Delete(key)
	}
	c.disk.Delete(key)
}

// EvictIfOverLimit enforces the ceiling and returns the number of entries
// removed.
func (c *Cache) EvictIfOverLimit() int {
	return c.disk.EvictIfOverLimit()
}

// ClearAll removes every entry and returns how many were removed and the
// payload bytes freed. Clearing an empty cache returns (0, 0).
func (c *Cache) ClearAll() (int, int64, error) {
	if c.memory != nil {
		c.memory.Clear()
	}
	count, freed, err := c.disk.Clear()
	if err != nil {
		return count, freed, fmt.Errorf("failed to save cache index: %w", err)
	}
	c.logger.Info("cache cleared", "entries", count, "freed", freed)
	return count, freed, nil
}

// Prune removes entries not accessed within maxAge.
func (c *Cache) Prune(maxAge time.Duration) int {
	removed := c.disk.Prune(maxAge)
	if removed > 0 && c.memory != nil {
		c.memory.Clear()
	}
	return removed
}

// Entries lists stored entries, least recently used first.
func (c *Cache) Entries() []Entry {
	return c.disk.Entries()
}

// Stats returns cache statistics.
func (c *Cache) Stats() Stats {
	s := c.disk.Stats()
	if c.memory != nil {
		s.MemoryEntries = c.memory.Len()
		s.MemorySize = c.memory.Size()
	}
	return s
}

// Close persists the index.
func (c *Cache) Close() error {
	if err := c.disk.Close(); err != nil {
		return fmt.Errorf("failed to close disk cache: %w", err)
	}
	return nil
}

// promote copies data into the memory front. Values too large for it are
// served from disk only.
func (c *Cache) promote(key string, data []byte) {
	if c.memory == nil {
		return
	}
	if err := c.memory.Put(key, data); err != nil {
		c.memory.Delete(key)
		if !errors.Is(err, ErrItemTooLarge) {
			c.logger.Debug("memory cache put failed", "key", key, "err", err)
		}
	}
}
