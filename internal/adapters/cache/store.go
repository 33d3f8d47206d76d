package cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

type storeEntry[V any] struct {
	key      string
	value    V
	storedAt time.Time
}

// Store is an in-memory TTL cache bounded to a fixed number of entries.
// Expiry is lazy: an expired entry is dropped when a Get touches it or when
// capacity pressure purges it, never by a background timer. Eviction prefers
// expired entries over live ones, and the least recently used one among those.
//
// Values must be treated as immutable by callers.
type Store[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	nowFunc  func() time.Time
	elements map[string]*list.Element
	recency  *list.List // front is most recently used
}

func NewStore[V any](capacity int, ttl time.Duration, nowFunc func() time.Time) *Store[V] {
	if capacity < 1 {
		panic(fmt.Sprintf("cache: capacity must be at least 1, got %d", capacity))
	}
	if ttl <= 0 {
		panic(fmt.Sprintf("cache: ttl must be positive, got %s", ttl))
	}
	return &Store[V]{
		capacity: capacity,
		ttl:      ttl,
		nowFunc:  nowFunc,
		elements: make(map[string]*list.Element),
		recency:  list.New(),
	}
}

// Get looks up key. A live entry counts as a hit and refreshes its recency.
// An expired entry is removed from the store, with its last value handed to
// the caller: live is false but found is true, and the caller now holds the
// only copy. live implies found.
func (s *Store[V]) Get(key string) (value V, live bool, found bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	element, ok := s.elements[key]
	if !ok {
		var empty V
		return empty, false, false
	}

	entry := s.entryOf(element, key)
	if s.nowFunc().Sub(entry.storedAt) >= s.ttl {
		s.recency.Remove(element)
		delete(s.elements, key)
		return entry.value, false, true
	}

	s.recency.MoveToFront(element)
	return entry.value, true, true
}

// Set stores value under key with a fresh TTL, evicting another entry first
// if the store is at capacity.
func (s *Store[V]) Set(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()

	if element, ok := s.elements[key]; ok {
		entry := s.entryOf(element, key)
		entry.value = value
		entry.storedAt = now
		s.recency.MoveToFront(element)
		return
	}

	if len(s.elements) >= s.capacity {
		s.evictOne(now)
	}

	element := s.recency.PushFront(&storeEntry[V]{key: key, value: value, storedAt: now})
	s.elements[key] = element
}

func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.elements)
}

// evictOne removes the least recently used expired entry, or the least
// recently used entry overall when nothing has expired. Callers hold s.mu.
func (s *Store[V]) evictOne(now time.Time) {
	var victim *list.Element
	for element := s.recency.Back(); element != nil; element = element.Prev() {
		entry, ok := element.Value.(*storeEntry[V])
		if !ok {
			panic("cache: recency list holds a foreign element")
		}
		if now.Sub(entry.storedAt) >= s.ttl {
			victim = element
			break
		}
	}
	if victim == nil {
		victim = s.recency.Back()
	}
	if victim == nil {
		panic("cache: eviction requested on an empty store")
	}

	entry := victim.Value.(*storeEntry[V])
	if _, ok := s.elements[entry.key]; !ok {
		panic(fmt.Sprintf("cache: recency list and index disagree on key %q", entry.key))
	}
	s.recency.Remove(victim)
	delete(s.elements, entry.key)
}

// entryOf unwraps an element from the recency list, asserting that the index
// and the list agree. Callers hold s.mu.
func (s *Store[V]) entryOf(element *list.Element, key string) *storeEntry[V] {
	entry, ok := element.Value.(*storeEntry[V])
	if !ok {
		panic("cache: recency list holds a foreign element")
	}
	if entry.key != key {
		panic(fmt.Sprintf("cache: index points key %q at entry %q", key, entry.key))
	}
	return entry
}
