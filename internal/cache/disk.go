package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"
)

const (
	indexFile      = "cache.index"
	entryExt       = ".cache"
	tempExt        = ".tmp"
	compressMinLen = 1024
)

// DiskStore is the durable entry store. The summed payload size of its
// entries never exceeds the ceiling once a Put returns.
type DiskStore struct {
	dir      string
	maxBytes int64
	size     int64 // payload bytes
	stored   int64 // bytes on disk

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	index map[string]*diskEntry
	seq   uint64

	// onEvict is called with the key of every entry removed to stay under
	// the ceiling.
	onEvict func(key string)

	hits, misses, evictions int64

	logger *log.Logger
	mu     sync.Mutex
}

// diskEntry is persisted in the index file.
type diskEntry struct {
	Key        string
	File       string // base name inside dir
	Size       int64  // payload size
	StoredSize int64  // size on disk
	Compressed bool
	Created    time.Time
	LastAccess time.Time
	Seq        uint64 // access order, larger is more recent
	Hits       int64
}

// NewDiskStore opens or creates a store in dir. compressionLevel zero
// disables compression.
func NewDiskStore(dir string, maxBytes int64, compressionLevel int, logger *log.Logger) (*DiskStore, error) {
	if dir == "" {
		return nil, errors.New("cache directory is required")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("invalid cache ceiling %d", maxBytes)
	}
	if logger == nil {
		logger = log.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	ds := &DiskStore{
		dir:      dir,
		maxBytes: maxBytes,
		index:    make(map[string]*diskEntry),
		logger:   logger,
	}

	if compressionLevel > 0 {
		var err error
		ds.encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}
	// Entries written with compression stay readable after it is turned off.
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	ds.decoder = dec

	if err := ds.loadIndex(); err != nil {
		logger.Warn("discarding unreadable cache index", "dir", dir, "err", err)
		ds.index = make(map[string]*diskEntry)
	}
	ds.reconcile()
	ds.evictIfOverLimit()

	return ds, nil
}

// Get returns the payload for key and marks it most recently used. An entry
// that cannot be read back is removed and reported as a miss.
func (ds *DiskStore) Get(key string) ([]byte, bool) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	entry, ok := ds.index[key]
	if !ok {
		ds.misses++
		return nil, false
	}

	data, err := ds.read(entry)
	if err != nil {
		ds.logger.Warn("dropping unreadable cache entry", "key", key, "err", err)
		ds.remove(entry)
		ds.misses++
		return nil, false
	}

	ds.touch(entry)
	entry.Hits++
	ds.hits++
	return data, true
}

// Touch marks key most recently used without reading it.
func (ds *DiskStore) Touch(key string) bool {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	entry, ok := ds.index[key]
	if ok {
		ds.touch(entry)
		entry.Hits++
		ds.hits++
	}
	return ok
}

// Put stores value under key, replacing any previous entry, then evicts the
// least recently used entries until the store is back under its ceiling.
func (ds *DiskStore) Put(key string, value []byte) error {
	size := int64(len(value))
	if size > ds.maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds ceiling of %d", ErrItemTooLarge, size, ds.maxBytes)
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()

	data, compressed := value, false
	if ds.encoder != nil && size > compressMinLen {
		if packed := ds.encoder.EncodeAll(value, nil); len(packed) < len(value) {
			data, compressed = packed, true
		}
	}

	name := fileName(key)
	if err := writeFile(filepath.Join(ds.dir, name), data); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	if old, ok := ds.index[key]; ok {
		ds.size -= old.Size
		ds.stored -= old.StoredSize
	}
	now := time.Now()
	entry := &diskEntry{
		Key:        key,
		File:       name,
		Size:       size,
		StoredSize: int64(len(data)),
		Compressed: compressed,
		Created:    now,
	}
	ds.touch(entry)
	ds.index[key] = entry
	ds.size += entry.Size
	ds.stored += entry.StoredSize

	ds.evictIfOverLimit()
	return nil
}

// Delete removes key.
func (ds *DiskStore) Delete(key string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if entry, ok := ds.index[key]; ok {
		ds.remove(entry)
	}
}

// Contains reports whether key is stored without touching its recency.
func (ds *DiskStore) Contains(key string) bool {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	_, ok := ds.index[key]
	return ok
}

// EvictIfOverLimit removes least recently used entries until the summed
// payload size is within the ceiling and returns how many were removed.
func (ds *DiskStore) EvictIfOverLimit() int {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	return ds.evictIfOverLimit()
}

// Clear removes every entry and returns how many there were and the payload
// bytes freed.
func (ds *DiskStore) Clear() (int, int64, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	count, freed := len(ds.index), ds.size
	for _, entry := range ds.index {
		ds.removeFile(entry)
	}
	ds.index = make(map[string]*diskEntry)
	ds.size, ds.stored = 0, 0

	return count, freed, ds.saveIndex()
}

// Prune removes entries not accessed within maxAge and returns how many were
// removed.
func (ds *DiskStore) Prune(maxAge time.Duration) int {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range ds.index {
		if entry.LastAccess.Before(cutoff) {
			ds.remove(entry)
			removed++
		}
	}
	return removed
}

// Entries returns every entry, least recently used first.
func (ds *DiskStore) Entries() []Entry {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	sorted := ds.byAccess()
	out := make([]Entry, len(sorted))
	for i, e := range sorted {
		out[i] = Entry{
			Key:        e.Key,
			Size:       e.Size,
			StoredSize: e.StoredSize,
			Created:    e.Created,
			LastAccess: e.LastAccess,
			Hits:       e.Hits,
		}
	}
	return out
}

// Size returns the summed payload size.
func (ds *DiskStore) Size() int64 {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	return ds.size
}

// Stats returns store statistics.
func (ds *DiskStore) Stats() Stats {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	s := Stats{
		Dir:        ds.dir,
		MaxBytes:   ds.maxBytes,
		Entries:    len(ds.index),
		Size:       ds.size,
		StoredSize: ds.stored,
		Hits:       ds.hits,
		Misses:     ds.misses,
		Evictions:  ds.evictions,
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	for _, e := range ds.index {
		if s.Oldest.IsZero() || e.LastAccess.Before(s.Oldest) {
			s.Oldest = e.LastAccess
		}
		if e.LastAccess.After(s.Newest) {
			s.Newest = e.LastAccess
		}
	}
	return s
}

// Close persists the index.
func (ds *DiskStore) Close() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.decoder.Close()
	return ds.saveIndex()
}

// Private helper methods, all called with the lock held.

func (ds *DiskStore) touch(entry *diskEntry) {
	ds.seq++
	entry.Seq = ds.seq
	entry.LastAccess = time.Now()
}

func (ds *DiskStore) read(entry *diskEntry) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(ds.dir, entry.File))
	if err != nil {
		return nil, err
	}
	if entry.Compressed {
		if data, err = ds.decoder.DecodeAll(data, nil); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCacheCorrupted, err)
		}
	}
	if int64(len(data)) != entry.Size {
		return nil, fmt.Errorf("%w: size %d, want %d", ErrCacheCorrupted, len(data), entry.Size)
	}
	return data, nil
}

func (ds *DiskStore) evictIfOverLimit() int {
	if ds.size <= ds.maxBytes {
		return 0
	}
	evicted := 0
	for _, entry := range ds.byAccess() {
		if ds.size <= ds.maxBytes {
			break
		}
		ds.remove(entry)
		ds.evictions++
		evicted++
		if ds.onEvict != nil {
			ds.onEvict(entry.Key)
		}
	}
	ds.logger.Debug("cache eviction", "evicted", evicted, "size", ds.size, "max", ds.maxBytes)
	return evicted
}

// byAccess returns the entries ordered least recently used first.
func (ds *DiskStore) byAccess() []*diskEntry {
	entries := make([]*diskEntry, 0, len(ds.index))
	for _, e := range ds.index {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Seq < entries[j].Seq
	})
	return entries
}

func (ds *DiskStore) remove(entry *diskEntry) {
	ds.removeFile(entry)
	delete(ds.index, entry.Key)
	ds.size -= entry.Size
	ds.stored -= entry.StoredSize
}

func (ds *DiskStore) removeFile(entry *diskEntry) {
	path := filepath.Join(ds.dir, entry.File)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		ds.logger.Warn("failed to remove cache file", "path", path, "err", err)
	}
}

// reconcile drops index entries whose file is gone, removes entry files the
// index does not know about along with leftover temporary files, and
// recomputes sizes.
func (ds *DiskStore) reconcile() {
	ds.size, ds.stored = 0, 0
	known := make(map[string]bool, len(ds.index))
	for key, entry := range ds.index {
		if _, err := os.Stat(filepath.Join(ds.dir, entry.File)); err != nil {
			delete(ds.index, key)
			continue
		}
		known[entry.File] = true
		ds.size += entry.Size
		ds.stored += entry.StoredSize
		if entry.Seq > ds.seq {
			ds.seq = entry.Seq
		}
	}

	files, err := os.ReadDir(ds.dir)
	if err != nil {
		ds.logger.Warn("unable to list cache directory", "dir", ds.dir, "err", err)
		return
	}
	orphans := 0
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || known[name] {
			continue
		}
		if filepath.Ext(name) != entryExt && filepath.Ext(name) != tempExt {
			continue
		}
		path := filepath.Join(ds.dir, name)
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			ds.logger.Warn("failed to remove orphaned cache file", "path", path, "err", err)
			continue
		}
		orphans++
	}
	if orphans > 0 {
		ds.logger.Debug("removed orphaned cache files", "dir", ds.dir, "count", orphans)
	}
}

func (ds *DiskStore) loadIndex() error {
	file, err := os.Open(filepath.Join(ds.dir, indexFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	defer file.Close() //nolint:errcheck

	return gob.NewDecoder(file).Decode(&ds.index)
}

func (ds *DiskStore) saveIndex() error {
	path := filepath.Join(ds.dir, indexFile)
	tempPath := path + tempExt

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}
	err = gob.NewEncoder(file).Encode(ds.index)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempPath) //nolint:errcheck
		return err
	}
	return os.Rename(tempPath, path)
}

// fileName derives the entry file name from the key.
func fileName(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:16]) + entryExt
}

// writeFile writes through a temporary file and renames it into place.
func writeFile(path string, data []byte) error {
	tempPath := path + tempExt
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		os.Remove(tempPath) //nolint:errcheck
		return err
	}
	return os.Rename(tempPath, path)
}
