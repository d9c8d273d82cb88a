package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/wolfman30/oneroot-leads/internal/session"
	"github.com/wolfman30/oneroot-leads/pkg/logging"
)

// Service is the part of the coordinator the HTTP layer needs.
type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (*Receipt, error)
	Exists(ctx context.Context, phone string) bool
}

// Handler handles HTTP requests for leads
type Handler struct {
	svc    Service
	logger *logging.Logger
}

// NewHandler creates a new leads handler
func NewHandler(svc Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

// CreateLead handles POST /leads requests from the call button, contact form
// and any other trigger.
func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request payload"})
		return
	}
	req.SessionID, _ = session.SessionIDFromContext(r.Context())
	req.UserAgent = r.UserAgent()

	receipt, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			h.logger.Warn("lead rejected", "error", err, "source", req.Source)
			msg := "invalid lead"
			if PhoneRejected(err) {
				msg = ErrInvalidPhone.Error()
			}
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  msg,
				"fields": ValidationMessages(err),
			})
			return
		}
		h.logger.Error("failed to submit lead", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to submit lead"})
		return
	}

	writeJSON(w, http.StatusCreated, receipt)
}

// ExistsResponse is the response for GET /leads/exists
type ExistsResponse struct {
	Exists bool `json:"exists"`
}

// CheckExists handles GET /leads/exists?phone=...
func (h *Handler) CheckExists(w http.ResponseWriter, r *http.Request) {
	phone := strings.TrimSpace(r.URL.Query().Get("phone"))
	if phone == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "missing phone"})
		return
	}
	writeJSON(w, http.StatusOK, ExistsResponse{Exists: h.svc.Exists(r.Context(), phone)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
