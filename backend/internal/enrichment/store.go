package enrichment

import (
	"container/list"
	"sync"
	"time"
)

// Store is a concurrent key/value map backing one of the enrichment caches.
// Values are never overwritten while resident: PutIfAbsent returns the value
// that ends up stored, so racing writers converge on a single value.
type Store[K comparable, V any] interface {
	Get(key K) (V, bool)
	PutIfAbsent(key K, value V) V
	Len() int
}

// UnboundedStore keeps every entry for the lifetime of the process.
type UnboundedStore[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// NewUnboundedStore creates a store that never evicts.
func NewUnboundedStore[K comparable, V any]() *UnboundedStore[K, V] {
	return &UnboundedStore[K, V]{entries: make(map[K]V)}
}

func (s *UnboundedStore[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok
}

func (s *UnboundedStore[K, V]) PutIfAbsent(key K, value V) V {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[key]; ok {
		return existing
	}
	s.entries[key] = value
	return value
}

func (s *UnboundedStore[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

type lruEntry[K comparable, V any] struct {
	key      K
	value    V
	storedAt time.Time
}

// LRUStore evicts the least recently used entry once capacity is reached
// and, when ttl is positive, drops entries older than ttl on access.
type LRUStore[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[K]*list.Element
	lru      *list.List
	now      func() time.Time
}

// NewLRUStore creates a bounded store. A non-positive capacity is treated
// as one entry.
func NewLRUStore[K comparable, V any](capacity int, ttl time.Duration) *LRUStore[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRUStore[K, V]{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[K]*list.Element),
		lru:      list.New(),
		now:      time.Now,
	}
}

func (s *LRUStore[K, V]) Get(key K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	entry := elem.Value.(*lruEntry[K, V])
	if s.expiredLocked(entry) {
		s.removeLocked(elem)
		var zero V
		return zero, false
	}
	s.lru.MoveToFront(elem)
	return entry.value, true
}

func (s *LRUStore[K, V]) PutIfAbsent(key K, value V) V {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.entries[key]; ok {
		entry := elem.Value.(*lruEntry[K, V])
		if !s.expiredLocked(entry) {
			s.lru.MoveToFront(elem)
			return entry.value
		}
		s.removeLocked(elem)
	}

	for len(s.entries) >= s.capacity {
		back := s.lru.Back()
		if back == nil {
			break
		}
		s.removeLocked(back)
	}

	s.entries[key] = s.lru.PushFront(&lruEntry[K, V]{key: key, value: value, storedAt: s.now()})
	return value
}

func (s *LRUStore[K, V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *LRUStore[K, V]) expiredLocked(entry *lruEntry[K, V]) bool {
	return s.ttl > 0 && s.now().Sub(entry.storedAt) > s.ttl
}

// removeLocked drops an element (must hold lock).
func (s *LRUStore[K, V]) removeLocked(elem *list.Element) {
	entry := elem.Value.(*lruEntry[K, V])
	s.lru.Remove(elem)
	delete(s.entries, entry.key)
}
