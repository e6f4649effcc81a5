package ui

import (
	"hash/fnv"
	"sync"
)

// RenderCache memoizes rendered rich-text blocks. Sanitizing and re-flowing
// post bodies on every frame is the single hottest path of the feed view,
// and the same content renders identically for a given width and theme.
type RenderCache struct {
	mu      sync.Mutex
	entries map[uint64]string
	maxSize int
}

// NewRenderCache creates a cache that is dropped wholesale once maxSize
// entries accumulate. Content churn is low enough that a full reset beats
// tracking per-entry recency.
func NewRenderCache(maxSize int) *RenderCache {
	return &RenderCache{
		entries: make(map[uint64]string),
		maxSize: maxSize,
	}
}

// ContentKey hashes the inputs that determine a rendered block.
func ContentKey(content string, width int, dark bool) uint64 {
	h := fnv.New64a()
	h.Write([]byte(content))
	var b [8]byte
	u := uint64(width)
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * i))
	}
	h.Write(b[:])
	if dark {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// GetOrCompute returns the cached render or computes and stores it. The
// compute runs outside the lock; a concurrent miss on the same key may
// render twice, which is harmless since the output is deterministic.
func (rc *RenderCache) GetOrCompute(key uint64, compute func() string) string {
	rc.mu.Lock()
	if val, ok := rc.entries[key]; ok {
		rc.mu.Unlock()
		return val
	}
	rc.mu.Unlock()

	content := compute()

	rc.mu.Lock()
	if len(rc.entries) >= rc.maxSize {
		rc.entries = make(map[uint64]string)
	}
	rc.entries[key] = content
	rc.mu.Unlock()
	return content
}

// Clear empties the cache (call on theme or width changes).
func (rc *RenderCache) Clear() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.entries = make(map[uint64]string)
}
