package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/sitegen-supportchat/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/sitegen-supportchat/internal/http/middleware"
	"github.com/wolfman30/sitegen-supportchat/internal/leads"
	"github.com/wolfman30/sitegen-supportchat/internal/webchat"
	"github.com/wolfman30/sitegen-supportchat/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Chat               *webchat.Handler
	LeadsHandler       *leads.Handler
	KnowledgeHandler   *handlers.AdminKnowledgeHandler
	HealthHandler      http.Handler
	MetricsHandler     http.Handler
	AdminAuth          httpmiddleware.AdminAuthConfig
	CORSAllowedOrigins []string

	// ChatRateLimiter throttles widget traffic per client when set.
	ChatRateLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	r.Group(func(public chi.Router) {
		if cfg.HealthHandler != nil {
			public.Handle("/health", cfg.HealthHandler)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	if cfg.Chat != nil {
		r.Group(func(chat chi.Router) {
			if cfg.ChatRateLimiter != nil {
				chat.Use(httpmiddleware.RateLimit(cfg.ChatRateLimiter))
			}
			chat.Mount("/chat", cfg.Chat.Routes())
		})
	}

	// Admin routes exist only when a signing secret is configured.
	if cfg.AdminAuth.Secret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuth))
			admin.Use(middleware.Compress(5))
			if cfg.LeadsHandler != nil {
				admin.Get("/leads", cfg.LeadsHandler.ListLeads)
				admin.Get("/leads/{leadID}", cfg.LeadsHandler.GetLead)
			}
			if cfg.KnowledgeHandler != nil {
				admin.Get("/knowledge", cfg.KnowledgeHandler.GetKnowledge)
				admin.Post("/knowledge/explain", cfg.KnowledgeHandler.Explain)
			}
		})
	}

	return r
}
