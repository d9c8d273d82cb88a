// Package localstore is the durable key/value surface that holds per-session
// submission state and the fallback lead list.
package localstore

import (
	"context"
	"errors"
	"sync"
)

// Logical keys. Session-scoped keys are namespaced with SessionKey.
const (
	KeyPhoneSubmitted  = "oneroot_phone_submitted"
	KeyUserPhone       = "oneroot_user_phone"
	KeyUserDevice      = "oneroot_user_device"
	KeyCollectedPhones = "oneroot_collected_phone_numbers"
)

// ErrClosed is returned by stores that have been shut down.
var ErrClosed = errors.New("localstore: closed")

// Store is a string key/value store. Get reports whether the key exists.
//
// Append and List hold append-only lists. Append must not lose entries
// written concurrently by other processes sharing the store.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Append(ctx context.Context, key, value string) error
	List(ctx context.Context, key string) ([]string, error)
}

// Change reports a key modified outside this process.
type Change struct {
	Key string
}

// SessionKey namespaces a logical key for one visitor session.
func SessionKey(sessionID, key string) string {
	if sessionID == "" {
		return key
	}
	return "session:" + sessionID + ":" + key
}

// SessionFromKey splits a namespaced key back into session id and logical key.
func SessionFromKey(full string) (sessionID, key string, ok bool) {
	const prefix = "session:"
	if len(full) <= len(prefix) || full[:len(prefix)] != prefix {
		return "", full, false
	}
	rest := full[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == ':' {
			if i == 0 || i == len(rest)-1 {
				return "", full, false
			}
			return rest[:i], rest[i+1:], true
		}
	}
	return "", full, false
}

// MemoryStore keeps values in process memory. Used in development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
	lists  map[string][]string
	// FailWrites makes every Set fail, for exercising degraded paths.
	FailWrites error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string), lists: make(map[string][]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Append(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	m.lists[key] = append(m.lists[key], value)
	return nil
}

func (m *MemoryStore) List(_ context.Context, key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string{}, m.lists[key]...), nil
}
