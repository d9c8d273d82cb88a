package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/wolfman30/oneroot-leads/internal/session"
	"github.com/wolfman30/oneroot-leads/pkg/logging"
)

// SessionStates hands out the shared per-session submission state.
type SessionStates interface {
	Get(ctx context.Context, sessionID string) *session.State
}

// CallButtonResponse tells the floating call button how to behave.
type CallButtonResponse struct {
	// Mode is "callback" once the session has left a number, else "collect".
	Mode        string `json:"mode"`
	Message     string `json:"message"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Tel         string `json:"tel"`
}

// CallButtonHandler personalises the call button per session.
type CallButtonHandler struct {
	sessions SessionStates
	tel      string
	logger   *logging.Logger
}

// NewCallButtonHandler creates the handler. companyPhone may contain spaces.
func NewCallButtonHandler(sessions SessionStates, companyPhone string, logger *logging.Logger) *CallButtonHandler {
	if sessions == nil {
		panic("handlers: session states required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CallButtonHandler{
		sessions: sessions,
		tel:      "tel:" + strings.Join(strings.Fields(companyPhone), ""),
		logger:   logger,
	}
}

// Get handles GET /sessions/call-button.
func (h *CallButtonHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := session.SessionIDFromContext(r.Context())
	snap := h.sessions.Get(r.Context(), sessionID).Snapshot()

	resp := CallButtonResponse{
		Mode:    "collect",
		Message: "Click to share your number and we'll call you back!",
		Tel:     h.tel,
	}
	if snap.HasSubmitted {
		resp.Mode = "callback"
		resp.Message = "We'll call you back shortly!"
		resp.PhoneNumber = snap.LastPhoneNumber
	}
	writeJSON(w, http.StatusOK, resp)
}
