package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/carebook/internal/domain/contact"
)

type ContactQueriesRepo struct {
	mu    sync.RWMutex
	items map[string]contact.Query
}

func NewContactQueriesRepo() *ContactQueriesRepo {
	return &ContactQueriesRepo{
		items: make(map[string]contact.Query),
	}
}

func (r *ContactQueriesRepo) Create(_ context.Context, req contact.CreateQueryRequest) (contact.Query, error) {
	q := contact.NewFromCreateRequest(req)

	r.mu.Lock()
	r.items[q.ID] = q
	r.mu.Unlock()

	return q, nil
}

func (r *ContactQueriesRepo) List(_ context.Context) ([]contact.Query, error) {
	r.mu.RLock()
	out := make([]contact.Query, 0, len(r.items))
	for _, q := range r.items {
		out = append(out, q)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out, nil
}

func (r *ContactQueriesRepo) UpdateStatus(_ context.Context, id string, status contact.Status, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, ok := r.items[id]
	if !ok {
		return contact.ErrNotFound
	}
	at = at.UTC()
	q.Status = status
	q.UpdatedAt = &at
	r.items[id] = q
	return nil
}
