package idempotency

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	payload []byte
	expires time.Time
}

// MemoryStore is the single-process fallback used when no Redis address is
// configured.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	inflight time.Duration
	m        map[string]entry
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryStore{ttl: ttl, inflight: inFlightTTL(0, ttl), m: map[string]entry{}, now: time.Now}
}

func (s *MemoryStore) WithInFlightTTL(d time.Duration) *MemoryStore {
	s.inflight = inFlightTTL(d, s.ttl)
	return s
}

func (s *MemoryStore) Begin(_ context.Context, key string) (State, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if e, ok := s.m[key]; ok && now.Before(e.expires) {
		if string(e.payload) == pendingMarker {
			return StateInFlight, nil, nil
		}
		return StateDone, e.payload, nil
	}
	s.m[key] = entry{payload: []byte(pendingMarker), expires: now.Add(s.inflight)}
	return StateNew, nil, nil
}

func (s *MemoryStore) Complete(_ context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	s.m[key] = entry{payload: cp, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
