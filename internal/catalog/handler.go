package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/oneroot-leads/pkg/logging"
)

// Handler serves the region pages' data.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a catalog handler.
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if repo == nil {
		panic("catalog: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// ListRegions handles GET /regions?q=. The optional q filters by name,
// case-insensitively.
func (h *Handler) ListRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list regions", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load regions"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"regions": FilterByName(regions, r.URL.Query().Get("q"))})
}

// GetRegion handles GET /regions/{regionID}.
func (h *Handler) GetRegion(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "regionID"))
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid region id"})
		return
	}
	region, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrRegionNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "region not found"})
			return
		}
		h.logger.Error("failed to get region", "error", err, "region_id", id)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load region"})
		return
	}
	writeJSON(w, http.StatusOK, region)
}

// FilterByName keeps regions whose name contains term, ignoring case.
func FilterByName(regions []Region, term string) []Region {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return regions
	}
	out := make([]Region, 0, len(regions))
	for _, region := range regions {
		if strings.Contains(strings.ToLower(region.Name), term) {
			out = append(out, region)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
