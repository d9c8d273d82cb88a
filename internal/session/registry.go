package session

import (
	"context"
	"sync"

	"github.com/wolfman30/oneroot-leads/internal/localstore"
	"github.com/wolfman30/oneroot-leads/pkg/logging"
)

const defaultMaxIdle = 10000

// Registry hands out one shared State per session so that every component
// of a session observes the same submission.
type Registry struct {
	store  localstore.Store
	logger *logging.Logger

	mu      sync.Mutex
	states  map[string]*State
	maxIdle int
}

// NewRegistry creates a registry backed by store.
func NewRegistry(store localstore.Store, logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Default()
	}
	return &Registry{
		store:   store,
		logger:  logger,
		states:  make(map[string]*State),
		maxIdle: defaultMaxIdle,
	}
}

// Get returns the live state for sessionID, loading persisted values the
// first time the session is seen. Concurrent callers for a new session wait
// for that load, so nobody observes the state before it is read.
func (r *Registry) Get(ctx context.Context, sessionID string) *State {
	if sessionID == "" {
		// Anonymous callers get a throwaway state that is never persisted.
		st := newState("", nil, r.logger)
		st.markLoaded()
		return st
	}
	r.mu.Lock()
	if st, ok := r.states[sessionID]; ok {
		r.mu.Unlock()
		st.waitLoaded(ctx)
		return st
	}
	if len(r.states) >= r.maxIdle {
		r.pruneLocked()
	}
	st := newState(sessionID, r.store, r.logger)
	r.states[sessionID] = st
	r.mu.Unlock()

	if _, err := st.load(ctx); err != nil {
		r.logger.Warn("failed to load session state", "error", err, "session_id", sessionID)
	}
	st.markLoaded()
	return st
}

// MarkSubmitted records a successful submission for sessionID.
func (r *Registry) MarkSubmitted(ctx context.Context, sessionID, phone string) error {
	if sessionID == "" {
		return nil
	}
	return r.Get(ctx, sessionID).MarkSubmitted(ctx, phone)
}

// RecordDevice stores the device type sessionID submitted from.
func (r *Registry) RecordDevice(ctx context.Context, sessionID, device string) error {
	if sessionID == "" {
		return nil
	}
	return r.Get(ctx, sessionID).RecordDevice(ctx, device)
}

// Sync applies key changes made by other processes until changes closes or
// ctx is done. Sessions that become submitted notify their subscribers.
func (r *Registry) Sync(ctx context.Context, changes <-chan localstore.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case ch, ok := <-changes:
			if !ok {
				return
			}
			r.apply(ctx, ch)
		}
	}
}

func (r *Registry) apply(ctx context.Context, ch localstore.Change) {
	sessionID, key, ok := localstore.SessionFromKey(ch.Key)
	if !ok || (key != localstore.KeyPhoneSubmitted && key != localstore.KeyUserPhone && key != localstore.KeyUserDevice) {
		return
	}
	r.mu.Lock()
	st, live := r.states[sessionID]
	r.mu.Unlock()
	if !live {
		return
	}
	became, err := st.load(ctx)
	if err != nil {
		r.logger.Warn("failed to refresh session state", "error", err, "session_id", sessionID)
		return
	}
	if became {
		r.logger.Debug("session submitted elsewhere", "session_id", sessionID)
		st.notify()
	}
}

// Len returns the number of cached sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

// pruneLocked drops sessions nobody is subscribed to; they reload on demand.
func (r *Registry) pruneLocked() {
	for id, st := range r.states {
		if st.subscriberCount() == 0 {
			delete(r.states, id)
		}
	}
}
