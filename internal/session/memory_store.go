package session

import (
	"context"
	"time"

	"github.com/geocoder89/carebook/internal/cache"
)

// MemoryStore keeps sessions in process memory. Sessions are lost on restart
// and are not shared between instances.
type MemoryStore struct {
	c *cache.Cache
}

func NewMemoryStore(defaultTTL time.Duration) *MemoryStore {
	return &MemoryStore{c: cache.New(defaultTTL)}
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, id Identity, ttl time.Duration) error {
	s.c.SetWithTTL(sessionID, id, ttl)
	return nil
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (Identity, error) {
	v, ok := s.c.Get(sessionID)
	if !ok {
		return Identity{}, ErrNoSession
	}
	return v.(Identity), nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.c.Delete(sessionID)
	return nil
}
