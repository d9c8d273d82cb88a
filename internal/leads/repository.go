package leads

import (
	"context"
	"sync"
)

// RemoteStore is the hosted lead table.
type RemoteStore interface {
	Insert(ctx context.Context, lead *Lead) error
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
}

// UnavailableRemote stands in for the hosted table when none is configured.
// Every call fails with ErrRemoteUnavailable so submissions land in the
// local fallback.
type UnavailableRemote struct{}

func (UnavailableRemote) Insert(context.Context, *Lead) error {
	return ErrRemoteUnavailable
}

func (UnavailableRemote) ExistsByPhone(context.Context, string) (bool, error) {
	return false, ErrRemoteUnavailable
}

// InMemoryRepository is a RemoteStore kept in process memory.
type InMemoryRepository struct {
	mu    sync.RWMutex
	leads []*Lead
	err   error
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// SetFailure makes every subsequent call return err. Pass nil to recover.
func (r *InMemoryRepository) SetFailure(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func (r *InMemoryRepository) Insert(ctx context.Context, lead *Lead) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	cp := *lead
	r.leads = append(r.leads, &cp)
	return nil
}

func (r *InMemoryRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.err != nil {
		return false, r.err
	}
	for _, l := range r.leads {
		if l.PhoneNumber == phone {
			return true, nil
		}
	}
	return false, nil
}

// All returns a copy of the stored leads in insertion order.
func (r *InMemoryRepository) All() []Lead {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Lead, 0, len(r.leads))
	for _, l := range r.leads {
		out = append(out, *l)
	}
	return out
}
