package counter

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a mutex-guarded in-memory implementation of Store.
// Useful for tests and development.
//
// TTLs are honored lazily: an expired key is treated as absent on the
// next access. The clock is injectable so window-expiry behavior can be
// tested without sleeping.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]*memoryValue
	hashes map[string]map[string]int64
	expiry map[string]time.Time

	now func() time.Time
}

type memoryValue struct {
	value int64
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source, for tests
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates an in-memory counter store
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		values: make(map[string]*memoryValue),
		hashes: make(map[string]map[string]int64),
		expiry: make(map[string]time.Time),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// expireLocked drops a key whose TTL has passed. Caller holds the mutex.
func (s *MemoryStore) expireLocked(key string) {
	deadline, ok := s.expiry[key]
	if !ok || s.now().Before(deadline) {
		return
	}
	delete(s.values, key)
	delete(s.hashes, key)
	delete(s.expiry, key)
}

func (s *MemoryStore) InitDecr(_ context.Context, key string, capacity int64, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked(key)

	v, ok := s.values[key]
	if !ok {
		v = &memoryValue{value: capacity}
		s.values[key] = v
		s.expiry[key] = s.now().Add(ttl)
	}

	v.value--
	return v.value, nil
}

func (s *MemoryStore) HIncrBy(_ context.Context, key, field string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked(key)

	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]int64)
		s.hashes[key] = h
	}

	h[field] += delta
	return h[field], nil
}

func (s *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expiry[key] = s.now().Add(ttl)
	return nil
}

// HScan returns the whole hash in one page (cursor 0). The real store
// pages through the keyspace; for the sizes tests use, one page is fine.
func (s *MemoryStore) HScan(_ context.Context, key string, cursor uint64, _ int64) ([]Pending, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked(key)

	if cursor != 0 {
		return nil, 0, nil
	}

	h := s.hashes[key]
	pending := make([]Pending, 0, len(h))
	for field, delta := range h {
		pending = append(pending, Pending{Key: field, Delta: delta})
	}
	// Deterministic order keeps tests stable
	sort.Slice(pending, func(i, j int) bool { return pending[i].Key < pending[j].Key })

	return pending, 0, nil
}

func (s *MemoryStore) HDecrOrRemove(_ context.Context, key, field string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hashes[key]
	if !ok {
		return nil
	}

	h[field] -= delta
	if h[field] <= 0 {
		delete(h, field)
	}
	return nil
}

// PendingDelta reports the current delta for a hash field. Test helper.
func (s *MemoryStore) PendingDelta(key, field string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hashes[key]
	if !ok {
		return 0
	}
	return h[field]
}
