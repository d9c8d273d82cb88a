package prompt

import (
	"sync"
	"time"
)

// Timer is a pending callback.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Visibility tracks which scheduler of a session currently shows its prompt.
// At most one prompt is visible per session.
type Visibility struct {
	mu    sync.Mutex
	owner *Scheduler
}

// NewVisibility returns an empty guard.
func NewVisibility() *Visibility {
	return &Visibility{}
}

// TryShow claims visibility for s. It fails when another scheduler holds it.
func (v *Visibility) TryShow(s *Scheduler) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.owner != nil && v.owner != s {
		return false
	}
	v.owner = s
	return true
}

// Hide releases visibility if s holds it.
func (v *Visibility) Hide(s *Scheduler) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.owner == s {
		v.owner = nil
	}
}

// Visible reports whether any prompt is showing.
func (v *Visibility) Visible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.owner != nil
}
