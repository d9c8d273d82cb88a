package prompt

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/oneroot-leads/internal/leads"
	"github.com/wolfman30/oneroot-leads/internal/observability/metrics"
	"github.com/wolfman30/oneroot-leads/internal/session"
	"github.com/wolfman30/oneroot-leads/pkg/logging"
	"golang.org/x/net/websocket"
)

const outboundBuffer = 16

// Submitter stores leads captured through the prompt.
type Submitter interface {
	Submit(ctx context.Context, req leads.SubmitRequest) (*leads.Receipt, error)
}

// Sessions hands out shared session state.
type Sessions interface {
	Get(ctx context.Context, sessionID string) *session.State
}

// InboundFrame is what the page sends.
type InboundFrame struct {
	Type        string `json:"type"` // "dismiss", "submit", "ping"
	PhoneNumber string `json:"phone_number,omitempty"`
	Notes       string `json:"notes,omitempty"`
	PageURL     string `json:"page_url,omitempty"`
}

// OutboundFrame is what the page receives.
type OutboundFrame struct {
	Type        string           `json:"type"` // "show_prompt", "suppressed", "submitted", "error", "pong"
	PhoneNumber string           `json:"phone_number,omitempty"`
	Durability  leads.Durability `json:"durability,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// Stream runs one scheduler per websocket connection. Connections of the
// same session share a visibility guard and a submission state.
type Stream struct {
	sessions  Sessions
	submitter Submitter
	cfg       Config
	clock     Clock
	logger    *logging.Logger
	metrics   *metrics.LeadMetrics

	mu  sync.Mutex
	vis map[string]*sharedVisibility
}

type sharedVisibility struct {
	vis  *Visibility
	refs int
}

// NewStream creates a prompt stream handler.
func NewStream(sessions Sessions, submitter Submitter, cfg Config, logger *logging.Logger, m *metrics.LeadMetrics) *Stream {
	if sessions == nil || submitter == nil {
		panic("prompt: sessions and submitter required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Stream{
		sessions:  sessions,
		submitter: submitter,
		cfg:       cfg,
		clock:     realClock{},
		logger:    logger,
		metrics:   m,
		vis:       make(map[string]*sharedVisibility),
	}
}

// HandleWebSocket upgrades GET /sessions/prompts/ws.
func (st *Stream) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		st.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (st *Stream) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx := r.Context()
	// The server's ReadTimeout deadline outlives the hijack.
	_ = conn.SetDeadline(time.Time{})
	sessionID, _ := session.SessionIDFromContext(ctx)
	state := st.sessions.Get(ctx, sessionID)
	vis := st.acquire(sessionID)
	defer st.release(sessionID)

	out := make(chan OutboundFrame, outboundBuffer)
	push := func(f OutboundFrame) {
		select {
		case out <- f:
		default:
			st.logger.Warn("prompt: dropping frame, client too slow", "type", f.Type, "session_id", sessionID)
		}
	}

	var writer sync.WaitGroup
	writer.Add(1)
	go func() {
		defer writer.Done()
		for f := range out {
			if err := websocket.JSON.Send(conn, f); err != nil {
				st.logger.Debug("prompt: send failed", "error", err, "session_id", sessionID)
			}
		}
	}()

	sched := New(st.cfg, state,
		WithClock(st.clock),
		WithVisibility(vis),
		WithLogger(st.logger),
		WithMetrics(st.metrics),
		WithListener(func(_, to State) {
			switch to {
			case StatePromptVisible:
				push(OutboundFrame{Type: "show_prompt"})
			case StateSuppressed:
				push(OutboundFrame{Type: "suppressed", PhoneNumber: state.Snapshot().LastPhoneNumber})
			}
		}),
	)
	defer func() {
		// No transitions, hence no pushes, after Close returns.
		sched.Close()
		close(out)
		writer.Wait()
	}()

	st.logger.Info("prompt: connection opened", "session_id", sessionID)
	sched.Start()

	for {
		var msg InboundFrame
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			st.logger.Debug("prompt: connection closed", "error", err, "session_id", sessionID)
			return
		}

		switch msg.Type {
		case "ping":
			push(OutboundFrame{Type: "pong"})
		case "dismiss":
			sched.Dismiss()
		case "submit":
			st.submit(ctx, r, state, msg, push)
		}
	}
}

func (st *Stream) submit(ctx context.Context, r *http.Request, state *session.State, msg InboundFrame, push func(OutboundFrame)) {
	receipt, err := st.submitter.Submit(ctx, leads.SubmitRequest{
		SessionID: state.SessionID(),
		Phone:     strings.TrimSpace(msg.PhoneNumber),
		Source:    leads.SourcePeriodicPrompt,
		Notes:     msg.Notes,
		PageURL:   msg.PageURL,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		if errors.Is(err, leads.ErrInvalidInput) {
			push(OutboundFrame{Type: "error", Error: leads.ErrInvalidPhone.Error()})
			return
		}
		st.logger.Error("prompt: submit failed", "error", err, "session_id", state.SessionID())
		push(OutboundFrame{Type: "error", Error: "failed to submit"})
		return
	}
	if state.SessionID() == "" {
		// Anonymous states are not tracked by the coordinator.
		_ = state.MarkSubmitted(ctx, receipt.Lead.PhoneNumber)
	}
	push(OutboundFrame{Type: "submitted", PhoneNumber: receipt.Lead.PhoneNumber, Durability: receipt.Durability})
}

func (st *Stream) acquire(sessionID string) *Visibility {
	if sessionID == "" {
		return NewVisibility()
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	sv, ok := st.vis[sessionID]
	if !ok {
		sv = &sharedVisibility{vis: NewVisibility()}
		st.vis[sessionID] = sv
	}
	sv.refs++
	return sv.vis
}

func (st *Stream) release(sessionID string) {
	if sessionID == "" {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	sv, ok := st.vis[sessionID]
	if !ok {
		return
	}
	sv.refs--
	if sv.refs <= 0 {
		delete(st.vis, sessionID)
	}
}

func (st *Stream) connections(sessionID string) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	if sv, ok := st.vis[sessionID]; ok {
		return sv.refs
	}
	return 0
}
