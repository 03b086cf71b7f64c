package cache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Memo is an in-memory memoization cache for expensive string-valued
// computations. Entries expire after the configured TTL and the eldest
// unused entry is evicted once the capacity is reached. Concurrent callers
// asking for the same key share a single in-flight computation.
type Memo struct {
	ttl      time.Duration
	capacity int

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front is most recently used

	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

// memoEntry is immutable once inserted; a re-store replaces the entry.
type memoEntry struct {
	key        string
	value      string
	insertedAt time.Time
}

// NewMemo builds a cache. A zero ttl means entries never expire; a zero
// capacity means the entry count is unbounded.
func NewMemo(ttl time.Duration, capacity int) *Memo {
	return &Memo{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// KeyFrom builds a cache key as a hex digest over the given parts. Part
// order matters, so ordered inputs hash to ordered-sensitive keys.
func KeyFrom(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\n\n")))
	return hex.EncodeToString(h[:])
}

type flightResult struct {
	value  string
	cached bool
}

// GetOrCompute returns the cached value for key when present and fresh,
// otherwise invokes fn exactly once even under concurrent callers and caches
// its result. The second return reports whether the value came from cache.
// Errors are returned to every waiting caller and are never cached.
func (m *Memo) GetOrCompute(ctx context.Context, key string, fn func(context.Context) (string, error)) (string, bool, error) {
	if v, ok := m.lookup(key); ok {
		m.hits.Add(1)
		return v, true, nil
	}
	v, err, _ := m.group.Do(key, func() (interface{}, error) {
		// Double-check: another caller may have finished between our miss
		// and this flight starting.
		if v, ok := m.lookup(key); ok {
			return flightResult{value: v, cached: true}, nil
		}
		value, err := fn(ctx)
		if err != nil {
			return flightResult{}, err
		}
		m.store(key, value)
		return flightResult{value: value}, nil
	})
	if err != nil {
		m.misses.Add(1)
		return "", false, err
	}
	res := v.(flightResult)
	if res.cached {
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	return res.value, res.cached, nil
}

// Stats returns the hit and miss counters.
func (m *Memo) Stats() (hits, misses int64) {
	return m.hits.Load(), m.misses.Load()
}

// Len reports the current entry count.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

func (m *Memo) lookup(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.entries[key]
	if !ok {
		return "", false
	}
	ent := el.Value.(*memoEntry)
	if m.ttl > 0 && time.Since(ent.insertedAt) > m.ttl {
		m.order.Remove(el)
		delete(m.entries, key)
		return "", false
	}
	m.order.MoveToFront(el)
	return ent.value, true
}

func (m *Memo) store(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.entries[key]; ok {
		m.order.Remove(el)
		delete(m.entries, key)
	}
	el := m.order.PushFront(&memoEntry{key: key, value: value, insertedAt: time.Now()})
	m.entries[key] = el
	if m.capacity > 0 && m.order.Len() > m.capacity {
		if oldest := m.order.Back(); oldest != nil {
			ent := oldest.Value.(*memoEntry)
			m.order.Remove(oldest)
			delete(m.entries, ent.key)
		}
	}
}
