package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	ok := NewHealthHandler("2026.10.1", func() int { return 3 }, map[string]Pinger{
		"redis": PingFunc(func(context.Context) error { return nil }),
	})
	rec := httptest.NewRecorder()
	ok.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","knowledge_version":"2026.10.1","active_sessions":3,"dependencies":{"redis":"ok"}}`, rec.Body.String())

	degraded := NewHealthHandler("v", nil, map[string]Pinger{
		"postgres": PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	rec = httptest.NewRecorder()
	degraded.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}
