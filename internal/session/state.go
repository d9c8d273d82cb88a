// Package session tracks, per visitor session, whether a lead has been
// submitted, and tells every component of that session when it happens.
package session

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/wolfman30/oneroot-leads/internal/localstore"
	"github.com/wolfman30/oneroot-leads/pkg/logging"
)

// Snapshot is a point-in-time view of a session's submission state.
type Snapshot struct {
	HasSubmitted    bool   `json:"has_submitted"`
	LastPhoneNumber string `json:"last_phone_number,omitempty"`
	DeviceType      string `json:"device_type,omitempty"`
}

// State is the submission state of one session. Subscribers are called
// synchronously, outside the state lock, every time a submission is observed.
type State struct {
	sessionID string
	store     localstore.Store
	logger    *logging.Logger

	// loaded closes once persisted values have been read.
	loaded chan struct{}

	mu      sync.Mutex
	snap    Snapshot
	subs    map[int]func(Snapshot)
	nextSub int
}

func newState(sessionID string, store localstore.Store, logger *logging.Logger) *State {
	return &State{
		sessionID: sessionID,
		store:     store,
		logger:    logger,
		loaded:    make(chan struct{}),
		subs:      make(map[int]func(Snapshot)),
	}
}

func (s *State) markLoaded() {
	close(s.loaded)
}

// waitLoaded blocks until the first load finishes or ctx is done.
func (s *State) waitLoaded(ctx context.Context) {
	select {
	case <-s.loaded:
	case <-ctx.Done():
	}
}

// SessionID returns the owning session id.
func (s *State) SessionID() string {
	return s.sessionID
}

// Snapshot returns the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Subscribe registers fn for submission notifications. The returned func
// removes the subscription and is safe to call more than once.
func (s *State) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *State) subscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// MarkSubmitted flips the session to submitted, persists it, and notifies
// subscribers. Subscribers are notified even when persisting fails.
func (s *State) MarkSubmitted(ctx context.Context, phone string) error {
	s.mu.Lock()
	s.snap.HasSubmitted = true
	s.snap.LastPhoneNumber = phone
	s.mu.Unlock()

	err := s.persist(ctx, phone)
	s.notify()
	return err
}

// RecordDevice persists the device type the session submitted from.
func (s *State) RecordDevice(ctx context.Context, device string) error {
	if device == "" {
		return nil
	}
	s.mu.Lock()
	s.snap.DeviceType = device
	s.mu.Unlock()

	if s.store == nil {
		return nil
	}
	if err := s.store.Set(ctx, localstore.SessionKey(s.sessionID, localstore.KeyUserDevice), device); err != nil {
		return fmt.Errorf("session: persist device: %w", err)
	}
	return nil
}

func (s *State) persist(ctx context.Context, phone string) error {
	if s.store == nil {
		return nil
	}
	if phone != "" {
		if err := s.store.Set(ctx, localstore.SessionKey(s.sessionID, localstore.KeyUserPhone), phone); err != nil {
			return fmt.Errorf("session: persist phone: %w", err)
		}
	}
	if err := s.store.Set(ctx, localstore.SessionKey(s.sessionID, localstore.KeyPhoneSubmitted), "true"); err != nil {
		return fmt.Errorf("session: persist flag: %w", err)
	}
	return nil
}

// load reads persisted state. It reports whether the session became
// submitted as a result.
func (s *State) load(ctx context.Context) (bool, error) {
	if s.store == nil {
		return false, nil
	}
	flag, _, err := s.store.Get(ctx, localstore.SessionKey(s.sessionID, localstore.KeyPhoneSubmitted))
	if err != nil {
		return false, fmt.Errorf("session: load flag: %w", err)
	}
	phone, _, err := s.store.Get(ctx, localstore.SessionKey(s.sessionID, localstore.KeyUserPhone))
	if err != nil {
		return false, fmt.Errorf("session: load phone: %w", err)
	}
	device, _, err := s.store.Get(ctx, localstore.SessionKey(s.sessionID, localstore.KeyUserDevice))
	if err != nil {
		return false, fmt.Errorf("session: load device: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.snap.HasSubmitted
	if phone != "" {
		s.snap.LastPhoneNumber = phone
	}
	if device != "" {
		s.snap.DeviceType = device
	}
	if flag == "true" {
		s.snap.HasSubmitted = true
	}
	return !was && s.snap.HasSubmitted, nil
}

func (s *State) notify() {
	s.mu.Lock()
	snap := s.snap
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
