package cache

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, config Config) *Cache {
	t.Helper()
	if config.Dir == "" {
		config.Dir = t.TempDir()
	}
	c, err := New(config, WithLogger(log.New(io.Discard)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func payload(n int, fill byte) []byte {
	return bytes.Repeat([]byte{fill}, n)
}

func TestCache_ReadAfterWrite(t *testing.T) {
	c := newTestCache(t, Config{MaxBytes: 1 << 20, MemoryBytes: 1 << 16, CompressionLevel: 3})

	value := []byte("RIFF....WAVEfmt some audio bytes")
	require.NoError(t, c.Put("k", value))

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, value, got)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	for _, memory := range []int64{0, 1 << 16} {
		t.Run(fmt.Sprintf("memory=%d", memory), func(t *testing.T) {
			c := newTestCache(t, Config{MaxBytes: 1000, MemoryBytes: memory})

			for i := 0; i < 4; i++ {
				require.NoError(t, c.Put(fmt.Sprintf("k%d", i), payload(200, byte(i))))
			}
			// k0 becomes the most recently used.
			_, ok := c.Get("k0")
			require.True(t, ok)

			// 800 + 400 exceeds the ceiling: k1 must go.
			require.NoError(t, c.Put("k4", payload(400, 4)))

			stats := c.Stats()
			assert.LessOrEqual(t, stats.Size, int64(1000))
			assert.Equal(t, int64(1000), stats.Size)
			assert.Equal(t, int64(1), stats.Evictions)

			_, ok = c.Get("k1")
			assert.False(t, ok, "k1 should have been evicted")
			for _, key := range []string{"k0", "k2", "k3", "k4"} {
				_, ok := c.Get(key)
				assert.True(t, ok, key)
			}
		})
	}
}

func TestCache_RemainingAreMostRecent(t *testing.T) {
	c := newTestCache(t, Config{MaxBytes: 500})

	for i := 0; i < 20; i++ {
		require.NoError(t, c.Put(fmt.Sprintf("k%02d", i), payload(100, byte(i))))
	}

	entries := c.Entries()
	require.Len(t, entries, 5)
	for i, e := range entries {
		assert.Equal(t, fmt.Sprintf("k%02d", 15+i), e.Key)
	}

	var total int64
	for _, e := range entries {
		total += e.Size
	}
	assert.LessOrEqual(t, total, int64(500))
}

func TestCache_ItemTooLarge(t *testing.T) {
	c := newTestCache(t, Config{MaxBytes: 100, MemoryBytes: 100})

	require.NoError(t, c.Put("small", payload(50, 1)))
	err := c.Put("big", payload(101, 2))
	require.ErrorIs(t, err, ErrItemTooLarge)

	// The store is untouched.
	got, ok := c.Get("small")
	require.True(t, ok)
	assert.Equal(t, payload(50, 1), got)
	assert.Equal(t, 1, c.Stats().Entries)

	// Replacing with an oversized value keeps the old one.
	require.ErrorIs(t, c.Put("small", payload(200, 3)), ErrItemTooLarge)
	got, _ = c.Get("small")
	assert.Equal(t, payload(50, 1), got)
}

func TestCache_CallerSlicesDoNotAlias(t *testing.T) {
	c := newTestCache(t, Config{MaxBytes: 1 << 20, MemoryBytes: 1 << 16})

	value := []byte("RIFF audio")
	require.NoError(t, c.Put("k", value))
	value[0] = 'X'

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("RIFF audio"), got)

	got[0] = 'Y'
	again, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("RIFF audio"), again)
}

func TestCache_Replace(t *testing.T) {
	c := newTestCache(t, Config{MaxBytes: 1000, MemoryBytes: 1000})

	require.NoError(t, c.Put("k", payload(100, 1)))
	require.NoError(t, c.Put("k", payload(300, 2)))

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, payload(300, 2), got)
	assert.Equal(t, int64(300), c.Stats().Size)
	assert.Equal(t, 1, c.Stats().Entries)
}

func TestCache_ClearAllIdempotent(t *testing.T) {
	c := newTestCache(t, Config{MaxBytes: 1 << 20, MemoryBytes: 1 << 16})

	require.NoError(t, c.Put("a", payload(10, 1)))
	require.NoError(t, c.Put("b", payload(20, 2)))

	count, freed, err := c.ClearAll()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, int64(30), freed)

	count, freed, err = c.ClearAll()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, int64(0), freed)

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().MemoryEntries)
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	c := newTestCache(t, Config{Dir: dir, MaxBytes: 1 << 20, CompressionLevel: 3})

	value := payload(4096, 7)
	require.NoError(t, c.Put("k", value))

	path := filepath.Join(dir, fileName("k"))
	require.NoError(t, os.WriteFile(path, []byte("not zstd at all"), 0o644))

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Entries)
	assert.NoFileExists(t, path)

	// Regenerate and overwrite.
	require.NoError(t, c.Put("k", value))
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, value, got)
}

func TestCache_MissingFileIsMiss(t *testing.T) {
	dir := t.TempDir()
	c := newTestCache(t, Config{Dir: dir, MaxBytes: 1 << 20})

	require.NoError(t, c.Put("k", []byte("data")))
	require.NoError(t, os.Remove(filepath.Join(dir, fileName("k"))))

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, int64(0), c.Stats().Size)
}

func TestCache_Compression(t *testing.T) {
	c := newTestCache(t, Config{MaxBytes: 1 << 20, CompressionLevel: 3})

	value := payload(64*1024, 0)
	require.NoError(t, c.Put("silence", value))

	stats := c.Stats()
	assert.Equal(t, int64(len(value)), stats.Size)
	assert.Less(t, stats.StoredSize, stats.Size)

	got, ok := c.Get("silence")
	require.True(t, ok)
	assert.Equal(t, value, got)
}

func TestCache_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	config := Config{Dir: dir, MaxBytes: 1000, CompressionLevel: 3}

	c, err := New(config, WithLogger(log.New(io.Discard)))
	require.NoError(t, err)
	require.NoError(t, c.Put("old", payload(400, 1)))
	require.NoError(t, c.Put("new", payload(400, 2)))
	require.NoError(t, c.Close())

	c = newTestCache(t, config)
	got, ok := c.Get("new")
	require.True(t, ok)
	assert.Equal(t, payload(400, 2), got)

	// Access order survives, so "old" is evicted first.
	require.NoError(t, c.Put("third", payload(400, 3)))
	_, ok = c.Get("old")
	assert.False(t, ok)
}

func entryFiles(t *testing.T, dir string) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "*"+entryExt))
	require.NoError(t, err)
	return files
}

func TestCache_CorruptIndexRemovesOrphans(t *testing.T) {
	dir := t.TempDir()
	config := Config{Dir: dir, MaxBytes: 1 << 20}

	c, err := New(config, WithLogger(log.New(io.Discard)))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Put(fmt.Sprint(i), payload(100, byte(i))))
	}
	require.NoError(t, c.Close())
	require.Len(t, entryFiles(t, dir), 3)

	require.NoError(t, os.WriteFile(filepath.Join(dir, indexFile), []byte("garbage"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "partial"+entryExt+tempExt), []byte("x"), 0o644))

	c = newTestCache(t, config)
	assert.Empty(t, entryFiles(t, dir))
	assert.NoFileExists(t, filepath.Join(dir, "partial"+entryExt+tempExt))
	assert.Equal(t, 0, c.Stats().Entries)
	assert.Equal(t, int64(0), c.Stats().Size)
}

func TestCache_LostIndexRemovesOrphans(t *testing.T) {
	dir := t.TempDir()
	config := Config{Dir: dir, MaxBytes: 1 << 20}

	c, err := New(config, WithLogger(log.New(io.Discard)))
	require.NoError(t, err)
	require.NoError(t, c.Put("kept", payload(100, 1)))
	require.NoError(t, c.Close())

	// written after the last index save, as if the process died
	c, err = New(config, WithLogger(log.New(io.Discard)))
	require.NoError(t, err)
	require.NoError(t, c.Put("unsaved", payload(100, 2)))
	require.Len(t, entryFiles(t, dir), 2)

	reopened := newTestCache(t, config)
	assert.Equal(t, []string{filepath.Join(dir, fileName("kept"))}, entryFiles(t, dir))
	got, ok := reopened.Get("kept")
	require.True(t, ok)
	assert.Equal(t, payload(100, 1), got)
}

func TestCache_ReopenWithLowerCeilingEvicts(t *testing.T) {
	dir := t.TempDir()

	c, err := New(Config{Dir: dir, MaxBytes: 1000}, WithLogger(log.New(io.Discard)))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, c.Put(fmt.Sprint(i), payload(200, byte(i))))
	}
	require.NoError(t, c.Close())

	c = newTestCache(t, Config{Dir: dir, MaxBytes: 400})
	assert.Equal(t, int64(400), c.Stats().Size)
	assert.Equal(t, []string{"3", "4"}, []string{c.Entries()[0].Key, c.Entries()[1].Key})
	assert.Equal(t, 0, c.EvictIfOverLimit())
}

func TestCache_Prune(t *testing.T) {
	c := newTestCache(t, Config{MaxBytes: 1 << 20, MemoryBytes: 1 << 16})

	require.NoError(t, c.Put("a", []byte("a")))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, c.Put("b", []byte("b")))

	assert.Equal(t, 1, c.Prune(10*time.Millisecond))
	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.True(t, ok)
}

func TestCache_Stats(t *testing.T) {
	c := newTestCache(t, Config{MaxBytes: 1 << 20})

	require.NoError(t, c.Put("a", []byte("abc")))
	c.Get("a")
	c.Get("a")
	c.Get("nope")

	s := c.Stats()
	assert.Equal(t, int64(2), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.InDelta(t, 2.0/3.0, s.HitRate, 1e-9)
	assert.Equal(t, 1, s.Entries)
	assert.False(t, s.Newest.IsZero())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := newTestCache(t, Config{MaxBytes: 8 * 1024, MemoryBytes: 2 * 1024})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				key := fmt.Sprintf("k%d", (g*50+i)%40)
				if i%3 == 0 {
					_ = c.Put(key, payload(512, byte(i)))
				} else {
					c.Get(key)
				}
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Stats().Size, int64(8*1024))
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Dir: t.TempDir(), MaxBytes: -1})
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	base := KeyParams{
		Text:          "Hello world",
		Voice:         "af_sky",
		Language:      "en-us",
		Speed:         1,
		PauseSettings: map[string]int{"comma": 300, "period": 600},
		Rules:         []map[string]string{{"original": "Dr.", "replacement": "Doctor"}},
		Ignore:        []string{"b", "a"},
	}
	key, err := Key(base)
	require.NoError(t, err)
	assert.Len(t, key, 64)

	t.Run("stable", func(t *testing.T) {
		same := base
		same.Text = "  Hello world\n"
		same.Ignore = []string{"a", "b"}
		same.PauseSettings = map[string]int{"period": 600, "comma": 300}
		got, err := Key(same)
		require.NoError(t, err)
		assert.Equal(t, key, got)
	})

	t.Run("nfc", func(t *testing.T) {
		composed, err := Key(KeyParams{Text: "caf\u00e9"})
		require.NoError(t, err)
		decomposed, err := Key(KeyParams{Text: "cafe\u0301"})
		require.NoError(t, err)
		assert.Equal(t, composed, decomposed)
	})

	changes := map[string]func(p *KeyParams){
		"text":     func(p *KeyParams) { p.Text = "Hello there" },
		"voice":    func(p *KeyParams) { p.Voice = "bf_emma" },
		"language": func(p *KeyParams) { p.Language = "en-gb" },
		"speed":    func(p *KeyParams) { p.Speed = 1.1 },
		"pauses":   func(p *KeyParams) { p.PauseSettings = map[string]int{"comma": 301, "period": 600} },
		"rules":    func(p *KeyParams) { p.Rules = nil },
		"ignore":   func(p *KeyParams) { p.Ignore = []string{"a"} },
	}
	for name, change := range changes {
		t.Run(name, func(t *testing.T) {
			p := base
			change(&p)
			got, err := Key(p)
			require.NoError(t, err)
			assert.NotEqual(t, key, got)
		})
	}
}
