// Package memory holds in-process adapters used when Redis is not configured.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coursepay/server/internal/model"
	"github.com/coursepay/server/internal/port/outbound"
)

// ErrTokenExists is returned when a token is issued twice.
var ErrTokenExists = errors.New("confirmation token already issued")

type entry struct {
	intent    model.ConfirmationIntent
	expiresAt time.Time
}

// ConfirmationStore keeps confirmation tokens in memory. Tokens do not
// survive a restart and are not shared between replicas.
type ConfirmationStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewConfirmationStore creates an in-memory confirmation token store.
func NewConfirmationStore() *ConfirmationStore {
	return &ConfirmationStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (s *ConfirmationStore) Issue(_ context.Context, token string, intent *model.ConfirmationIntent, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)
	if _, ok := s.entries[token]; ok {
		return ErrTokenExists
	}
	s.entries[token] = entry{intent: *intent, expiresAt: now.Add(ttl)}
	return nil
}

func (s *ConfirmationStore) Consume(_ context.Context, token string) (*model.ConfirmationIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[token]
	if !ok {
		return nil, nil
	}
	delete(s.entries, token)
	if !s.now().Before(e.expiresAt) {
		return nil, nil
	}
	intent := e.intent
	return &intent, nil
}

// Len returns the number of live tokens.
func (s *ConfirmationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep(s.now())
	return len(s.entries)
}

// sweep drops expired tokens. Callers hold mu.
func (s *ConfirmationStore) sweep(now time.Time) {
	for token, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, token)
		}
	}
}

// Compile-time check
var _ outbound.ConfirmationTokenPort = (*ConfirmationStore)(nil)
