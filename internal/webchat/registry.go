package webchat

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/sitegen-supportchat/internal/conversation"
	"github.com/wolfman30/sitegen-supportchat/internal/observability/metrics"
	"github.com/wolfman30/sitegen-supportchat/pkg/logging"
)

// DefaultIdleTimeout is how long a session may sit untouched before eviction.
const DefaultIdleTimeout = 30 * time.Minute

// Registry owns the live sessions of this process.
type Registry struct {
	controller  *conversation.Controller
	idleTimeout time.Duration
	logger      *logging.Logger
	metrics     *metrics.ChatMetrics
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]*conversation.Session
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

func WithIdleTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.idleTimeout = d
		}
	}
}

func WithRegistryLogger(logger *logging.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithRegistryMetrics(m *metrics.ChatMetrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRegistry(controller *conversation.Controller, opts ...RegistryOption) *Registry {
	if controller == nil {
		panic("webchat: controller required")
	}
	r := &Registry{
		controller:  controller,
		idleTimeout: DefaultIdleTimeout,
		logger:      logging.Default(),
		now:         time.Now,
		sessions:    make(map[string]*conversation.Session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create starts a session and registers it. An empty id gets a fresh one; an
// id already in use returns the existing session.
func (r *Registry) Create(id, language string) (*conversation.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id != "" {
		if s, ok := r.sessions[id]; ok {
			return s, false
		}
	}
	s := r.controller.NewSession(id, language)
	r.sessions[s.ID()] = s
	r.metrics.SessionOpened()
	r.logger.Debug("webchat: session created", "session_id", s.ID(), "language", s.Language())
	return s, true
}

func (r *Registry) Get(id string) (*conversation.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove closes the session and forgets it. It reports whether the session
// existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	r.controller.Close(s)
	r.metrics.SessionClosed()
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than the idle timeout and returns how
// many were evicted.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idleTimeout)

	r.mu.Lock()
	var stale []*conversation.Session
	for id, s := range r.sessions {
		if s.LastActivity().Before(cutoff) {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		r.controller.Close(s)
		r.metrics.SessionClosed()
	}
	if len(stale) > 0 {
		r.logger.Info("webchat: evicted idle sessions", "count", len(stale))
	}
	return len(stale)
}

// Run sweeps periodically until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// CloseAll closes every session, as on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*conversation.Session)
	r.mu.Unlock()
	for _, s := range sessions {
		r.controller.Close(s)
		r.metrics.SessionClosed()
	}
}
