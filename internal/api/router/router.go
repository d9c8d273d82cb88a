package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/oneroot-leads/internal/catalog"
	"github.com/wolfman30/oneroot-leads/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/oneroot-leads/internal/http/middleware"
	"github.com/wolfman30/oneroot-leads/internal/leads"
	"github.com/wolfman30/oneroot-leads/internal/prompt"
	"github.com/wolfman30/oneroot-leads/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger        *logging.Logger
	LeadsHandler  *leads.Handler
	CallButton    *handlers.CallButtonHandler
	PromptStream  *prompt.Stream
	RegionHandler *catalog.Handler
	AdminLeads    *handlers.AdminLeadsHandler

	// LeadLimiter throttles lead submissions per client IP (optional).
	LeadLimiter *httpmiddleware.RateLimiter

	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	SecureCookies      bool
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.Session(cfg.SecureCookies))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}

		if cfg.LeadsHandler != nil {
			public.Route("/leads", func(lr chi.Router) {
				if cfg.LeadLimiter != nil {
					lr.With(httpmiddleware.RateLimit(cfg.LeadLimiter)).Post("/", cfg.LeadsHandler.CreateLead)
				} else {
					lr.Post("/", cfg.LeadsHandler.CreateLead)
				}
				lr.Get("/exists", cfg.LeadsHandler.CheckExists)
			})
		}

		public.Route("/sessions", func(sr chi.Router) {
			if cfg.CallButton != nil {
				sr.Get("/call-button", cfg.CallButton.Get)
			}
			if cfg.PromptStream != nil {
				sr.Get("/prompts/ws", cfg.PromptStream.HandleWebSocket)
			}
		})

		if cfg.RegionHandler != nil {
			public.Get("/regions", cfg.RegionHandler.ListRegions)
			public.Get("/regions/{regionID}", cfg.RegionHandler.GetRegion)
		}
	})

	// Admin routes (password login issues the HMAC JWT the rest require)
	if cfg.AdminLeads != nil && cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			if cfg.LeadLimiter != nil {
				admin.With(httpmiddleware.RateLimit(cfg.LeadLimiter)).Post("/login", cfg.AdminLeads.Login)
			} else {
				admin.Post("/login", cfg.AdminLeads.Login)
			}
			admin.Group(func(protected chi.Router) {
				protected.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
				protected.Get("/leads", cfg.AdminLeads.ListLeads)
				protected.Get("/leads.csv", cfg.AdminLeads.ExportCSV)
				protected.Post("/leads/archive", cfg.AdminLeads.Archive)
			})
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
