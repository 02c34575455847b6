package cache

import (
	"errors"
	"time"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCacheCorrupted is returned when a stored entry cannot be read back
	ErrCacheCorrupted = errors.New("cache data corrupted")
)

// Default sizes.
const (
	DefaultMaxBytes         = 200 * 1024 * 1024
	DefaultMemoryBytes      = 32 * 1024 * 1024
	DefaultCompressionLevel = 3
)

// Stats holds cache counters and sizes.
type Stats struct {
	Dir      string `json:"dir,omitempty"`
	MaxBytes int64  `json:"max_bytes"`

	// Durable store
	Entries    int   `json:"entries"`
	Size       int64 `json:"size"`        // payload bytes
	StoredSize int64 `json:"stored_size"` // bytes on disk after compression

	// Memory front
	MemoryEntries int   `json:"memory_entries"`
	MemorySize    int64 `json:"memory_size"`

	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`

	Oldest time.Time `json:"oldest,omitempty"`
	Newest time.Time `json:"newest,omitempty"`
}

// Entry describes one stored item.
type Entry struct {
	Key        string    `json:"key"`
	Size       int64     `json:"size"`
	StoredSize int64     `json:"stored_size"`
	Created    time.Time `json:"created"`
	LastAccess time.Time `json:"last_access"`
	Hits       int64     `json:"hits"`
}

// Config holds configuration for a Cache.
type Config struct {
	// Dir holds the entry files and the index (required)
	Dir string

	// MaxBytes is the ceiling on the summed payload size of all entries
	MaxBytes int64

	// MemoryBytes caps the memory front; zero disables it
	MemoryBytes int64

	// CompressionLevel is the zstd level (1-22), zero stores entries as is
	CompressionLevel int
}

// DefaultConfig returns the default cache configuration for dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:              dir,
		MaxBytes:         DefaultMaxBytes,
		MemoryBytes:      DefaultMemoryBytes,
		CompressionLevel: DefaultCompressionLevel,
	}
}
