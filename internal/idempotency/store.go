// Package idempotency remembers which review a client idempotency key
// produced, so a retried create returns the original review instead of
// storing a second one.
package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/utafrali/reviews/internal/domain"
)

// DefaultTTL is how long a key is remembered when none is configured.
const DefaultTTL = 24 * time.Hour

// Store maps idempotency keys to the review they created. Implementations
// must be safe for concurrent use.
type Store interface {
	// Get returns the review recorded for key, or found=false.
	Get(ctx context.Context, key string) (review *domain.Review, found bool, err error)
	// Put records review for key. An existing unexpired record is kept.
	Put(ctx context.Context, key string, review *domain.Review) error
}

type entry struct {
	review    domain.Review
	expiresAt time.Time
}

// MemoryStore is an in-process Store for development and single-instance
// deployments. Expired entries are dropped lazily on access.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates a MemoryStore whose entries live for ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (*domain.Review, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(e.expiresAt) {
		s.mu.Lock()
		if cur, still := s.entries[key]; still && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}

	rv := e.review
	return &rv, true, nil
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, key string, review *domain.Review) error {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && now.Before(e.expiresAt) {
		return nil
	}
	s.entries[key] = entry{review: *review, expiresAt: now.Add(s.ttl)}
	return nil
}

// Len returns the number of entries, including expired ones not yet dropped.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
