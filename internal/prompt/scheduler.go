package prompt

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/wolfman30/oneroot-leads/internal/observability/metrics"
	"github.com/wolfman30/oneroot-leads/internal/session"
	"github.com/wolfman30/oneroot-leads/pkg/logging"
)

const (
	defaultInitialDelay = 7 * time.Second
	defaultRepromptMin  = 5 * time.Second
	defaultRepromptMax  = 10 * time.Second
)

// Config bounds the prompt cadence.
type Config struct {
	InitialDelay time.Duration
	RepromptMin  time.Duration
	RepromptMax  time.Duration
}

func (c Config) normalized() Config {
	if c.InitialDelay <= 0 {
		c.InitialDelay = defaultInitialDelay
	}
	if c.RepromptMin <= 0 {
		c.RepromptMin = defaultRepromptMin
	}
	if c.RepromptMax <= 0 {
		c.RepromptMax = defaultRepromptMax
	}
	if c.RepromptMax < c.RepromptMin {
		c.RepromptMax = c.RepromptMin
	}
	return c
}

// SubmissionSource is the session state a scheduler watches.
type SubmissionSource interface {
	Snapshot() session.Snapshot
	Subscribe(fn func(session.Snapshot)) func()
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithRand replaces the jitter source. fn must return a value in [0, n).
func WithRand(fn func(n int64) int64) Option {
	return func(s *Scheduler) { s.int64n = fn }
}

// WithVisibility shares a visibility guard with other schedulers of the
// same session.
func WithVisibility(v *Visibility) Option {
	return func(s *Scheduler) { s.vis = v }
}

// WithListener observes transitions. It runs with the scheduler locked and
// must not call back into the scheduler.
func WithListener(fn func(from, to State)) Option {
	return func(s *Scheduler) { s.listener = fn }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithMetrics records transitions.
func WithMetrics(m *metrics.LeadMetrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// Scheduler decides when to surface the lead-capture prompt for one page
// view. It waits InitialDelay before the first prompt, re-prompts after a
// random delay in [RepromptMin, RepromptMax] each time the prompt is
// dismissed, and stops for good once the session submits a lead.
//
// Every timer callback carries the generation it was scheduled under; a
// callback from an older generation is ignored.
type Scheduler struct {
	cfg      Config
	source   SubmissionSource
	clock    Clock
	int64n   func(int64) int64
	vis      *Visibility
	listener func(from, to State)
	logger   *logging.Logger
	metrics  *metrics.LeadMetrics

	mu          sync.Mutex
	state       State
	gen         uint64
	timer       Timer
	unsubscribe func()
	closed      bool
}

// New creates an idle scheduler watching source.
func New(cfg Config, source SubmissionSource, opts ...Option) *Scheduler {
	if source == nil {
		panic("prompt: submission source required")
	}
	s := &Scheduler{
		cfg:    cfg.normalized(),
		source: source,
		clock:  realClock{},
		int64n: rand.Int64N,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.vis == nil {
		s.vis = NewVisibility()
	}
	if s.logger == nil {
		s.logger = logging.Default()
	}
	return s
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start leaves Idle. It suppresses immediately when the session has already
// submitted, otherwise it arms the first-prompt timer. Calling Start again
// has no effect.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != StateIdle {
		return
	}
	// Subscribe before reading the snapshot so a submission landing in
	// between is not missed.
	s.unsubscribe = s.source.Subscribe(func(session.Snapshot) { s.suppress() })
	if s.source.Snapshot().HasSubmitted {
		s.suppressLocked()
		return
	}
	s.transitionLocked(StateWaitingFirstPrompt)
	s.scheduleLocked(s.cfg.InitialDelay, StateWaitingFirstPrompt)
}

// Dismiss hides a visible prompt and arms the re-prompt timer.
func (s *Scheduler) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != StatePromptVisible {
		return
	}
	s.vis.Hide(s)
	s.transitionLocked(StateWaitingNextPrompt)
	s.scheduleLocked(s.nextDelay(), StateWaitingNextPrompt)
}

// Close cancels pending timers and detaches from the session. The scheduler
// keeps its last state but never transitions again.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancelLocked()
	s.vis.Hide(s)
	s.detachLocked()
}

func (s *Scheduler) suppress() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.suppressLocked()
}

func (s *Scheduler) suppressLocked() {
	if s.state == StateSuppressed {
		return
	}
	s.cancelLocked()
	s.vis.Hide(s)
	s.detachLocked()
	s.transitionLocked(StateSuppressed)
}

func (s *Scheduler) scheduleLocked(d time.Duration, from State) {
	s.cancelLocked()
	gen := s.gen
	s.timer = s.clock.AfterFunc(d, func() { s.fire(gen, from) })
}

// cancelLocked stops the pending timer and invalidates any callback that
// already started running.
func (s *Scheduler) cancelLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) detachLocked() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

func (s *Scheduler) fire(gen uint64, from State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen || s.state != from {
		return
	}
	s.timer = nil
	if s.source.Snapshot().HasSubmitted {
		s.suppressLocked()
		return
	}
	if !s.vis.TryShow(s) {
		s.logger.Debug("prompt deferred, another prompt is visible")
		s.transitionLocked(StateWaitingNextPrompt)
		s.scheduleLocked(s.nextDelay(), StateWaitingNextPrompt)
		return
	}
	s.transitionLocked(StatePromptVisible)
}

func (s *Scheduler) nextDelay() time.Duration {
	span := s.cfg.RepromptMax - s.cfg.RepromptMin
	if span <= 0 {
		return s.cfg.RepromptMin
	}
	return s.cfg.RepromptMin + time.Duration(s.int64n(int64(span)+1))
}

func (s *Scheduler) transitionLocked(to State) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	s.metrics.ObservePromptTransition(to.String())
	if s.listener != nil {
		s.listener(from, to)
	}
}
