package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akolanti/LayoutAPI/internal/config"
	"github.com/akolanti/LayoutAPI/internal/middleware"
)

func TestRoutes(t *testing.T) {
	middleware.Init(config.ServerConfig{RateLimitPerSecond: 100, RateLimitBurst: 100})
	handler := Routes()

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{name: "health", method: http.MethodGet, path: "/health", want: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/metrics", want: http.StatusOK},
		{name: "unknown job", method: http.MethodGet, path: "/status/does-not-exist", want: http.StatusNotFound},
		{name: "preflight", method: http.MethodOptions, path: "/analyze", want: http.StatusNoContent},
		{name: "wrong method", method: http.MethodGet, path: "/analyze", want: http.StatusMethodNotAllowed},
		{name: "unknown route", method: http.MethodGet, path: "/chat", want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
			}
		})
	}
}
