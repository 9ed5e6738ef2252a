// Package cache provides process-wide, TTL-scoped memoization for backend
// calls. Entries expire lazily: a stale entry is treated as absent and
// overwritten on the next fetch rather than evicted by a background sweeper.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry struct {
	value      interface{}
	insertedAt time.Time
	ttl        time.Duration
}

// Store memoizes producer results under namespaced keys. Concurrent misses on
// the same key are collapsed to a single producer invocation.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	group   singleflight.Group

	// now is the clock; overridable in tests.
	now func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// storeKey joins namespace and key. Namespaces keep call sites with identical
// argument strings (e.g. a table name that equals a user id) from colliding.
func storeKey(namespace, key string) string {
	return namespace + "\x00" + key
}

// Get returns the cached value for (namespace, key) if present and not stale;
// otherwise it invokes producer, stores the result with the current timestamp,
// and returns it. Producer errors are returned without being cached.
func (s *Store) Get(ctx context.Context, namespace, key string, ttl time.Duration, producer func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	k := storeKey(namespace, key)

	if v, ok := s.lookup(k); ok {
		return v, nil
	}

	v, err, _ := s.group.Do(k, func() (interface{}, error) {
		// A concurrent flight may have stored the value between the miss
		// and this call.
		if v, ok := s.lookup(k); ok {
			return v, nil
		}
		v, err := producer(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.entries[k] = entry{value: v, insertedAt: s.now(), ttl: ttl}
		s.mu.Unlock()
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Store) lookup(k string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[k]
	if !ok {
		return nil, false
	}
	if s.now().Sub(e.insertedAt) > e.ttl {
		return nil, false
	}
	return e.value, true
}

// InvalidateAll drops every cached entry regardless of TTL.
func (s *Store) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry)
}

// Len returns the number of stored entries, stale ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Fetch retrieves a typed value through the store.
func Fetch[T any](ctx context.Context, s *Store, namespace, key string, ttl time.Duration, producer func(ctx context.Context) (T, error)) (T, error) {
	v, err := s.Get(ctx, namespace, key, ttl, func(ctx context.Context) (interface{}, error) {
		return producer(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
