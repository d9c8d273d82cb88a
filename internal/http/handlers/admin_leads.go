package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/wolfman30/oneroot-leads/internal/archive"
	"github.com/wolfman30/oneroot-leads/internal/http/middleware"
	"github.com/wolfman30/oneroot-leads/internal/leads"
	"github.com/wolfman30/oneroot-leads/pkg/logging"
)

// LeadExporter reads the locally captured lead list.
type LeadExporter interface {
	ExportAll(ctx context.Context) ([]leads.Lead, error)
}

// LeadArchiver uploads a snapshot of the lead list.
type LeadArchiver interface {
	ArchiveLeads(ctx context.Context, rows []leads.Lead, now time.Time) (string, error)
}

// AdminLeadsConfig configures AdminLeadsHandler.
type AdminLeadsConfig struct {
	Password  string
	JWTSecret string
	TokenTTL  time.Duration
	Now       func() time.Time
}

// AdminLeadsHandler serves the password-gated lead export pages.
type AdminLeadsHandler struct {
	exporter LeadExporter
	archiver LeadArchiver
	cfg      AdminLeadsConfig
	logger   *logging.Logger
}

// NewAdminLeadsHandler creates a new admin leads handler.
func NewAdminLeadsHandler(exporter LeadExporter, archiver LeadArchiver, cfg AdminLeadsConfig, logger *logging.Logger) *AdminLeadsHandler {
	if exporter == nil {
		panic("handlers: lead exporter required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 12 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &AdminLeadsHandler{
		exporter: exporter,
		archiver: archiver,
		cfg:      cfg,
		logger:   logger,
	}
}

// LoginResponse carries an admin bearer token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login handles POST /admin/login.
func (h *AdminLeadsHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Password == "" || h.cfg.JWTSecret == "" {
		jsonError(w, "admin access disabled", http.StatusServiceUnavailable)
		return
	}
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.cfg.Password)) != 1 {
		h.logger.Warn("admin login failed", "remote_ip", r.RemoteAddr)
		jsonError(w, "incorrect password", http.StatusUnauthorized)
		return
	}

	token, expires, err := middleware.IssueAdminToken(h.cfg.JWTSecret, "admin", h.cfg.TokenTTL, h.cfg.Now())
	if err != nil {
		h.logger.Error("failed to issue admin token", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: expires.UTC()})
}

// ListLeads handles GET /admin/leads.
func (h *AdminLeadsHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.export(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leads": rows, "total": len(rows)})
}

// ExportCSV handles GET /admin/leads.csv.
func (h *AdminLeadsHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.export(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+archive.ExportFileName(h.cfg.Now())+`"`)
	w.WriteHeader(http.StatusOK)
	if err := archive.WriteCSV(w, rows); err != nil {
		h.logger.Error("failed to write lead csv", "error", err)
	}
}

// ArchiveResponse reports an S3 export.
type ArchiveResponse struct {
	Archived  bool   `json:"archived"`
	Key       string `json:"key,omitempty"`
	LeadCount int    `json:"lead_count"`
}

// Archive handles POST /admin/leads/archive.
func (h *AdminLeadsHandler) Archive(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.export(w, r)
	if !ok {
		return
	}
	if h.archiver == nil {
		writeJSON(w, http.StatusOK, ArchiveResponse{LeadCount: len(rows)})
		return
	}
	key, err := h.archiver.ArchiveLeads(r.Context(), rows, h.cfg.Now())
	if err != nil {
		h.logger.Error("failed to archive leads", "error", err)
		jsonError(w, "failed to archive leads", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, ArchiveResponse{Archived: key != "", Key: key, LeadCount: len(rows)})
}

func (h *AdminLeadsHandler) export(w http.ResponseWriter, r *http.Request) ([]leads.Lead, bool) {
	rows, err := h.exporter.ExportAll(r.Context())
	if err != nil {
		h.logger.Error("failed to read local leads", "error", err)
		jsonError(w, "failed to load leads", http.StatusInternalServerError)
		return nil, false
	}
	return rows, true
}
