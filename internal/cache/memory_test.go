package cache

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestMemoryCache_BasicOperations(t *testing.T) {
	cache := NewMemoryCache(1024) // 1KB capacity

	key := "test-key"
	value := []byte("test-value")

	if err := cache.Put(key, value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	retrieved, ok := cache.Get(key)
	if !ok {
		t.Fatal("Get failed: key not found")
	}
	if string(retrieved) != string(value) {
		t.Errorf("Retrieved value mismatch: got %s, want %s", retrieved, value)
	}

	if !cache.Contains(key) {
		t.Error("Contains returned false for existing key")
	}
	if cache.Size() != int64(len(value)) {
		t.Errorf("Size mismatch: got %d, want %d", cache.Size(), len(value))
	}

	cache.Delete(key)
	if cache.Contains(key) {
		t.Error("Key still exists after delete")
	}
	if cache.Size() != 0 {
		t.Errorf("Size not zero after delete: %d", cache.Size())
	}
}

func TestMemoryCache_LRUEviction(t *testing.T) {
	cache := NewMemoryCache(100)

	for i := 0; i < 5; i++ {
		if err := cache.Put(fmt.Sprintf("key-%d", i), make([]byte, 20)); err != nil {
			t.Fatalf("Put failed for key-%d: %v", i, err)
		}
	}

	// Access key-0 and key-1 to make them recently used
	cache.Get("key-0")
	cache.Get("key-1")

	if err := cache.Put("key-new", make([]byte, 30)); err != nil {
		t.Fatalf("Put failed for new key: %v", err)
	}

	// key-2 and key-3 are the least recently used
	for _, key := range []string{"key-2", "key-3"} {
		if cache.Contains(key) {
			t.Errorf("%s should have been evicted", key)
		}
	}
	for _, key := range []string{"key-0", "key-1", "key-4", "key-new"} {
		if !cache.Contains(key) {
			t.Errorf("%s should not have been evicted", key)
		}
	}
	if cache.Size() > 100 {
		t.Errorf("Size %d exceeds capacity", cache.Size())
	}
}

func TestMemoryCache_ItemTooLarge(t *testing.T) {
	cache := NewMemoryCache(100)

	if err := cache.Put("large-key", make([]byte, 200)); !errors.Is(err, ErrItemTooLarge) {
		t.Errorf("Expected ErrItemTooLarge, got %v", err)
	}
	if cache.Len() != 0 {
		t.Errorf("Rejected item was stored")
	}
}

func TestMemoryCache_ValuesAreCopied(t *testing.T) {
	cache := NewMemoryCache(1024)

	value := []byte("audio")
	if err := cache.Put("k", value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	value[0] = 'X'

	got, _ := cache.Get("k")
	if string(got) != "audio" {
		t.Errorf("stored value changed with the caller's slice: %s", got)
	}

	got[0] = 'Y'
	again, _ := cache.Get("k")
	if string(again) != "audio" {
		t.Errorf("stored value changed with a returned slice: %s", again)
	}
}

func TestMemoryCache_UpdateExisting(t *testing.T) {
	cache := NewMemoryCache(1024)

	key := "update-key"
	if err := cache.Put(key, []byte("original")); err != nil {
		t.Fatalf("First Put failed: %v", err)
	}
	if err := cache.Put(key, []byte("updated-value")); err != nil {
		t.Fatalf("Update Put failed: %v", err)
	}

	retrieved, ok := cache.Get(key)
	if !ok {
		t.Fatal("Key not found after update")
	}
	if string(retrieved) != "updated-value" {
		t.Errorf("Value not updated: got %s", retrieved)
	}
	if cache.Size() != int64(len("updated-value")) {
		t.Errorf("Size not updated: got %d", cache.Size())
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	cache := NewMemoryCache(1024)
	for i := 0; i < 10; i++ {
		_ = cache.Put(fmt.Sprintf("key-%d", i), []byte("value"))
	}

	cache.Clear()

	if cache.Len() != 0 || cache.Size() != 0 {
		t.Errorf("Cache not empty after clear: %d items, %d bytes", cache.Len(), cache.Size())
	}
	if _, ok := cache.Get("key-0"); ok {
		t.Error("Get returned cleared key")
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	cache := NewMemoryCache(10 * 1024)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("key-%d-%d", g, i%10)
				_ = cache.Put(key, make([]byte, 64))
				cache.Get(key)
				if i%7 == 0 {
					cache.Delete(key)
				}
			}
		}(g)
	}
	wg.Wait()

	if cache.Size() > 10*1024 {
		t.Errorf("Size %d exceeds capacity", cache.Size())
	}
}

func BenchmarkMemoryCache_Put(b *testing.B) {
	cache := NewMemoryCache(100 * 1024 * 1024)
	value := make([]byte, 1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cache.Put(fmt.Sprintf("key-%d", i), value)
	}
}

func BenchmarkMemoryCache_Get(b *testing.B) {
	cache := NewMemoryCache(100 * 1024 * 1024)
	for i := 0; i < 1000; i++ {
		_ = cache.Put(fmt.Sprintf("key-%d", i), make([]byte, 1024))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Get(fmt.Sprintf("key-%d", i%1000))
	}
}
