// Package execution implements the subtask execution engine: the
// dependency-gated, one-subtask-per-call driver that advances an
// approved ExecutionPlan, plus the per-request deduplication cache that
// protects it from a client retransmitting the same tool result.
package execution

import (
	"sync"
	"time"
)

const (
	defaultDedupTTL      = 60 * time.Second
	defaultDedupCapacity = 10000
)

type dedupEntry struct {
	expiresAt time.Time
}

// RequestDeduplicator is a process-global TTL cache keyed by
// (sessionID, callID) pairs, used to silently drop a tool_result message
// the gateway (or a retrying client) delivers more than once.
type RequestDeduplicator struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[string]dedupEntry
	now      func() time.Time
}

// NewRequestDeduplicator creates a deduplicator with the default 60s TTL and
// 10,000 entry cap.
func NewRequestDeduplicator() *RequestDeduplicator {
	return &RequestDeduplicator{
		ttl:      defaultDedupTTL,
		capacity: defaultDedupCapacity,
		entries:  make(map[string]dedupEntry),
		now:      time.Now,
	}
}

func key(sessionID, callID string) string {
	return sessionID + "/" + callID
}

// SeenBefore reports whether (sessionID, callID) was already recorded
// within the TTL window. If not, it records it now and returns false.
func (d *RequestDeduplicator) SeenBefore(sessionID, callID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.evictExpiredLocked(now)

	k := key(sessionID, callID)
	if entry, ok := d.entries[k]; ok && entry.expiresAt.After(now) {
		return true
	}

	if len(d.entries) >= d.capacity {
		d.evictOldestLocked(len(d.entries) / 5) // purge oldest 20% when full
	}

	d.entries[k] = dedupEntry{expiresAt: now.Add(d.ttl)}
	return false
}

func (d *RequestDeduplicator) evictExpiredLocked(now time.Time) {
	for k, e := range d.entries {
		if !e.expiresAt.After(now) {
			delete(d.entries, k)
		}
	}
}

func (d *RequestDeduplicator) evictOldestLocked(n int) {
	if n <= 0 {
		return
	}
	type kv struct {
		key     string
		expires time.Time
	}
	all := make([]kv, 0, len(d.entries))
	for k, e := range d.entries {
		all = append(all, kv{k, e.expiresAt})
	}
	for i := 0; i < len(all) && i < n; i++ {
		oldestIdx := i
		for j := i + 1; j < len(all); j++ {
			if all[j].expires.Before(all[oldestIdx].expires) {
				oldestIdx = j
			}
		}
		all[i], all[oldestIdx] = all[oldestIdx], all[i]
		delete(d.entries, all[i].key)
	}
}
