package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestChatMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatMetrics(reg)

	m.ObserveMatch("it", "local")
	m.ObserveMatch("it", "local")
	m.ObserveMatch("en", "fallback")
	m.ObserveResponder("http", "ok", 300*time.Millisecond)
	m.ObserveLead("sent")
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	if got := testutil.ToFloat64(m.matcherResults.WithLabelValues("it", "local")); got != 2 {
		t.Fatalf("expected 2 local matches, got %v", got)
	}
	if got := testutil.ToFloat64(m.responderRequests.WithLabelValues("http", "ok")); got != 1 {
		t.Fatalf("expected 1 responder request, got %v", got)
	}
	if got := testutil.ToFloat64(m.leadsDispatched.WithLabelValues("sent")); got != 1 {
		t.Fatalf("expected 1 lead, got %v", got)
	}
	if got := testutil.ToFloat64(m.sessionsActive); got != 1 {
		t.Fatalf("expected 1 active session, got %v", got)
	}
}

func TestChatMetricsDefaultRegistry(t *testing.T) {
	prev := prometheus.DefaultRegisterer
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	t.Cleanup(func() { prometheus.DefaultRegisterer = prev })

	m := NewChatMetrics(nil)
	m.ObserveMatch("en", "remote")
}

func TestChatMetricsNilSafe(t *testing.T) {
	var m *ChatMetrics
	m.ObserveMatch("it", "local")
	m.ObserveResponder("gemini", "error", time.Second)
	m.ObserveLead("failed")
	m.SessionOpened()
	m.SessionClosed()
}
