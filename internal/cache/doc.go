// Package cache stores synthesized audio keyed by everything that affects
// how it sounds. A durable zstd-compressed disk store holds the entries and
// enforces a byte ceiling with least-recently-used eviction; a small memory
// LRU sits in front of it to serve repeated reads.
package cache
