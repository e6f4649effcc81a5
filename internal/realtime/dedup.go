package realtime

import (
	"sync"

	"forumkit/internal/model"
)

// DefaultCacheSize is the seen-key ceiling before truncation.
const DefaultCacheSize = 2000

// dedupCache remembers derived event keys so redelivered events can be
// dropped. The bound is a soft ceiling: when the set exceeds the limit it is
// truncated to its most-recent half by insertion order. This is an
// approximation, not an LRU; retained order is insertion order of the set,
// not access recency.
type dedupCache struct {
	mu    sync.Mutex
	limit int
	seen  map[string]struct{}
	order []string
}

func newDedupCache(limit int) *dedupCache {
	if limit <= 0 {
		limit = DefaultCacheSize
	}
	return &dedupCache{
		limit: limit,
		seen:  make(map[string]struct{}, limit),
	}
}

// SeenBefore records key and reports whether it was already present.
// An empty key is never recorded and never counts as a duplicate.
func (c *dedupCache) SeenBefore(key string) bool {
	if key == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[key]; ok {
		return true
	}

	c.seen[key] = struct{}{}
	c.order = append(c.order, key)

	if len(c.order) > c.limit {
		c.truncateLocked()
	}
	return false
}

// truncateLocked drops the oldest half, keeping the most recent entries.
func (c *dedupCache) truncateLocked() {
	keep := c.order[len(c.order)/2:]
	fresh := make(map[string]struct{}, c.limit)
	order := make([]string, 0, c.limit)
	for _, k := range keep {
		fresh[k] = struct{}{}
		order = append(order, k)
	}
	c.seen = fresh
	c.order = order
}

// Len returns the current number of remembered keys.
func (c *dedupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// DedupKey derives the duplicate-detection key for an event: the explicit
// event_id when present, otherwise entity_id:client_tx_id. A payload with
// neither yields an empty key and is always treated as new.
func DedupKey(ev model.Event) string {
	if ev.EventID != "" {
		return ev.EventID
	}
	if ev.EntityID == "" && ev.ClientTxID == "" {
		return ""
	}
	return ev.EntityID + ":" + ev.ClientTxID
}
