package ads

import (
	"context"
	"sync"
)

// MemoryRepo is the in-memory Repository used in demo mode and tests
type MemoryRepo struct {
	mu  sync.RWMutex
	ads map[string]Ad
}

// NewMemoryRepo creates an empty in-memory repository
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{ads: make(map[string]Ad)}
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (*Ad, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ad, ok := r.ads[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := ad
	return &copied, nil
}

func (r *MemoryRepo) List(ctx context.Context) ([]Ad, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Ad, 0, len(r.ads))
	for _, ad := range r.ads {
		out = append(out, ad)
	}
	return out, nil
}

func (r *MemoryRepo) Upsert(ctx context.Context, ad *Ad) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ads[ad.ID] = *ad
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ads[id]; !ok {
		return ErrNotFound
	}
	delete(r.ads, id)
	return nil
}
