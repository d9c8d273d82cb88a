package catalog

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository serves a fixed set of regions. Used in development
// when DATABASE_URL is unset, and in tests.
type InMemoryRepository struct {
	mu      sync.RWMutex
	regions map[string]Region
}

// NewInMemoryRepository seeds the repository with regions.
func NewInMemoryRepository(regions ...Region) *InMemoryRepository {
	r := &InMemoryRepository{regions: make(map[string]Region, len(regions))}
	for _, region := range regions {
		r.regions[region.ID] = region
	}
	return r
}

// Put adds or replaces a region.
func (r *InMemoryRepository) Put(region Region) {
	r.mu.Lock()
	r.regions[region.ID] = region
	r.mu.Unlock()
}

func (r *InMemoryRepository) List(ctx context.Context) ([]Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Region, 0, len(r.regions))
	for _, region := range r.regions {
		out = append(out, region)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	region, ok := r.regions[id]
	if !ok {
		return nil, ErrRegionNotFound
	}
	return &region, nil
}
