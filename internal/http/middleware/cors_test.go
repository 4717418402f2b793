package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if called != nil {
			*called = true
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSOriginPolicy(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"listed origin", []string{"https://sitegen.app"}, "https://sitegen.app", true},
		{"unknown origin", []string{"https://sitegen.app"}, "https://unknown.example", false},
		{"any origin", []string{"*"}, "https://random.example", true},
		{"subdomain wildcard", []string{" https://*.sitegen.site/ "}, "https://shop.sitegen.site", true},
		{"nested subdomain", []string{"https://*.sitegen.site"}, "https://a.b.sitegen.site", true},
		{"wildcard wrong scheme", []string{"https://*.sitegen.site"}, "http://shop.sitegen.site", false},
		{"wildcard apex", []string{"https://*.sitegen.site"}, "https://sitegen.site", false},
		{"wildcard lookalike", []string{"https://*.sitegen.site"}, "https://evilsitegen.site", false},
		{"wildcard suffix attack", []string{"https://*.sitegen.site"}, "https://shop.sitegen.site.evil", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			req := httptest.NewRequest(http.MethodPost, "/chat/sessions", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()

			CORS(tt.allowed)(okHandler(&called)).ServeHTTP(rec, req)

			assert.True(t, called, "non-preflight requests always reach the handler")
			if tt.want {
				assert.Equal(t, tt.origin, rec.Header().Get("Access-Control-Allow-Origin"))
				assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Methods"))
				assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Headers"))
			} else {
				assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestCORSHandlesPreflight(t *testing.T) {
	called := false
	req := httptest.NewRequest(http.MethodOptions, "/chat/sessions", nil)
	req.Header.Set("Origin", "https://sitegen.app")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()

	CORS([]string{"https://sitegen.app"})(okHandler(&called)).ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}
