package leads

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/oneroot-leads/internal/observability/metrics"
	"github.com/wolfman30/oneroot-leads/pkg/logging"
)

// SubmissionTracker records that a session has submitted a lead and tells the
// rest of that session about it.
type SubmissionTracker interface {
	MarkSubmitted(ctx context.Context, sessionID, phone string) error
	RecordDevice(ctx context.Context, sessionID, device string) error
}

// Notifier is told about new leads after a submission completes.
type Notifier interface {
	NotifyLead(ctx context.Context, lead *Lead) error
}

// CoordinatorConfig configures a Coordinator.
type CoordinatorConfig struct {
	Remote        RemoteStore
	Fallback      *FallbackStore
	Tracker       SubmissionTracker
	Notifier      Notifier
	Metrics       *metrics.LeadMetrics
	Logger        *logging.Logger
	RemoteTimeout time.Duration
	Now           func() time.Time
}

// Coordinator runs a submission end to end: validate, write remote, fall
// back to the local store, then record and broadcast the session state.
//
// Writes are two-tier: a lead is durable in the remote table or in the local
// fallback, never guaranteed in both. Callers only ever see ErrInvalidInput.
type Coordinator struct {
	remote        RemoteStore
	fallback      *FallbackStore
	tracker       SubmissionTracker
	notifier      Notifier
	metrics       *metrics.LeadMetrics
	logger        *logging.Logger
	remoteTimeout time.Duration
	now           func() time.Time

	notifyWG sync.WaitGroup
}

// NewCoordinator builds a coordinator. Remote and Fallback are required.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	if cfg.Remote == nil {
		panic("leads: remote store required")
	}
	if cfg.Fallback == nil {
		panic("leads: fallback store required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.RemoteTimeout <= 0 {
		cfg.RemoteTimeout = 5 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Coordinator{
		remote:        cfg.Remote,
		fallback:      cfg.Fallback,
		tracker:       cfg.Tracker,
		notifier:      cfg.Notifier,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
		remoteTimeout: cfg.RemoteTimeout,
		now:           cfg.Now,
	}
}

// Submit validates and stores a lead. The only returned error wraps
// ErrInvalidInput; storage failures are absorbed.
func (c *Coordinator) Submit(ctx context.Context, req SubmitRequest) (*Receipt, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	phone, err := NormalizePhone(req.Phone)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	source := req.Source
	if source == "" {
		source = SourceWebsite
	}
	device := req.DeviceType
	if !device.Valid() {
		device = ClassifyDevice(req.UserAgent)
	}
	notes := req.Notes
	if notes == "" {
		notes = DefaultNotes(source, req.PageURL)
	}

	lead := &Lead{
		ID:          uuid.NewString(),
		PhoneNumber: phone,
		Source:      source,
		Notes:       notes,
		DeviceType:  device,
		Timestamp:   c.now().UTC(),
		PageURL:     req.PageURL,
		UserAgent:   req.UserAgent,
	}

	durability := c.persist(ctx, lead)

	if c.tracker != nil && req.SessionID != "" {
		if err := c.tracker.RecordDevice(ctx, req.SessionID, string(device)); err != nil {
			c.logger.Warn("failed to persist device type", "error", err, "session_id", req.SessionID)
		}
		if err := c.tracker.MarkSubmitted(ctx, req.SessionID, phone); err != nil {
			c.logger.Error("failed to persist submission state", "error", err, "session_id", req.SessionID)
		}
	}

	c.metrics.ObserveSubmission(string(source), string(durability))
	c.logger.Info("lead submitted",
		"lead_id", lead.ID,
		"source", source,
		"device_type", device,
		"durability", durability,
		"session_id", req.SessionID,
	)

	c.notify(lead)
	return &Receipt{Lead: lead, Durability: durability}, nil
}

func (c *Coordinator) persist(ctx context.Context, lead *Lead) Durability {
	remoteCtx, cancel := context.WithTimeout(ctx, c.remoteTimeout)
	start := time.Now()
	err := c.remote.Insert(remoteCtx, lead)
	cancel()
	c.metrics.ObserveRemote("insert", err, time.Since(start).Seconds())
	if err == nil {
		return DurabilityRemote
	}

	c.logger.Warn("remote lead write failed, using local fallback", "error", err, "lead_id", lead.ID)
	// The request may already be cancelled; the fallback write still has to happen.
	if c.fallback.Append(context.WithoutCancel(ctx), *lead) {
		return DurabilityLocal
	}
	c.logger.Error("lead not durable: remote and local writes failed", "lead_id", lead.ID, "source", lead.Source)
	return DurabilityNone
}

func (c *Coordinator) notify(lead *Lead) {
	if c.notifier == nil {
		return
	}
	c.notifyWG.Add(1)
	go func() {
		defer c.notifyWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.notifier.NotifyLead(ctx, lead); err != nil {
			c.logger.Warn("lead notification failed", "error", err, "lead_id", lead.ID)
		}
	}()
}

// Exists checks the remote table, then the local fallback. It returns false
// only when both checks find nothing.
func (c *Coordinator) Exists(ctx context.Context, rawPhone string) bool {
	phone, err := NormalizePhone(rawPhone)
	if err != nil {
		return false
	}

	remoteCtx, cancel := context.WithTimeout(ctx, c.remoteTimeout)
	start := time.Now()
	found, err := c.remote.ExistsByPhone(remoteCtx, phone)
	cancel()
	c.metrics.ObserveRemote("exists", err, time.Since(start).Seconds())
	if err != nil {
		c.logger.Warn("remote exists check failed, checking local fallback", "error", err)
	} else if found {
		return true
	}
	return c.fallback.Exists(ctx, phone)
}

// Close waits for in-flight notifications.
func (c *Coordinator) Close() {
	c.notifyWG.Wait()
}
