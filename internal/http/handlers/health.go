package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger is a dependency whose reachability is reported by /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler serves GET /health.
type HealthHandler struct {
	version  string
	sessions func() int
	checks   map[string]Pinger
}

// NewHealthHandler reports the knowledge base version, the live session count
// and the state of each optional dependency.
func NewHealthHandler(knowledgeVersion string, sessions func() int, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{version: knowledgeVersion, sessions: sessions, checks: checks}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			deps[name] = "unavailable"
			status = "degraded"
			continue
		}
		deps[name] = "ok"
	}

	body := map[string]any{
		"status":            status,
		"knowledge_version": h.version,
		"dependencies":      deps,
	}
	if h.sessions != nil {
		body["active_sessions"] = h.sessions()
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, body)
}
