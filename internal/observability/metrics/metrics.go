package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ChatMetrics exposes counters/histograms for the support chat engine.
type ChatMetrics struct {
	matcherResults    *prometheus.CounterVec
	responderRequests *prometheus.CounterVec
	responderLatency  *prometheus.HistogramVec
	leadsDispatched   *prometheus.CounterVec
	sessionsActive    prometheus.Gauge
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		matcherResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "supportchat",
			Subsystem: "matcher",
			Name:      "results_total",
			Help:      "Free-text turns by language and resolution outcome",
		}, []string{"language", "outcome"}),
		responderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "supportchat",
			Subsystem: "responder",
			Name:      "requests_total",
			Help:      "Remote responder calls by provider and status",
		}, []string{"provider", "status"}),
		responderLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "supportchat",
			Subsystem: "responder",
			Name:      "latency_seconds",
			Help:      "Latency of remote responder calls",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		}, []string{"provider"}),
		leadsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "supportchat",
			Subsystem: "leads",
			Name:      "dispatched_total",
			Help:      "Contact requests handed to lead channels",
		}, []string{"status"}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "supportchat",
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Open chat sessions",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.matcherResults, m.responderRequests, m.responderLatency, m.leadsDispatched, m.sessionsActive)
	return m
}

// ObserveMatch records how a free-text turn was resolved: "local", "remote",
// "contact_form", or "fallback".
func (m *ChatMetrics) ObserveMatch(language, outcome string) {
	if m == nil {
		return
	}
	m.matcherResults.WithLabelValues(language, outcome).Inc()
}

func (m *ChatMetrics) ObserveResponder(provider, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.responderRequests.WithLabelValues(provider, status).Inc()
	m.responderLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func (m *ChatMetrics) ObserveLead(status string) {
	if m == nil {
		return
	}
	m.leadsDispatched.WithLabelValues(status).Inc()
}

func (m *ChatMetrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
}

func (m *ChatMetrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}
