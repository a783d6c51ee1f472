package restmux

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/saba2003/devcamper-api/restmux/mux"
	"github.com/saba2003/devcamper-api/tools/ratelimit"
)

func TestServerHandler(t *testing.T) {
	s := NewServer(
		WithConfig(&Config{MetricsAddr: ""}),
		WithMetricsAddr(""),
		WithLimiter(&ratelimit.Limiter{Rules: &ratelimit.Rules{
			Limit: []ratelimit.Limit{{Prefix: "/api/v1/auth/login", Headers: []string{ratelimit.KeyIP}, Quota: 1, Duration: time.Minute}},
		}}),
	)
	s.Handle(http.MethodPost, "/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request, _ map[string]string) error {
		return mux.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	h := s.Handler()
	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"health", http.MethodGet, "/healthz", http.StatusOK},
		{"login", http.MethodPost, "/api/v1/auth/login", http.StatusOK},
		{"login limited", http.MethodPost, "/api/v1/auth/login", http.StatusTooManyRequests},
		{"unknown", http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d, body %s", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}
