package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akolanti/LayoutAPI/internal/config"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	if r.Context().Value(config.TRACE_ID_KEY) == nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func TestWrap_Auth(t *testing.T) {
	Init(config.ServerConfig{APIKey: "secret", RateLimitPerSecond: 100, RateLimitBurst: 100, AllowedOrigins: []string{"*"}})
	handler := Wrap(okHandler)

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{name: "no credentials", want: http.StatusUnauthorized},
		{name: "api key", headers: map[string]string{"X-API-Key": "secret"}, want: http.StatusOK},
		{name: "bearer token", headers: map[string]string{"Authorization": "Bearer secret"}, want: http.StatusOK},
		{name: "wrong key", headers: map[string]string{"X-API-Key": "nope"}, want: http.StatusUnauthorized},
		{name: "basic auth", headers: map[string]string{"Authorization": "Basic c2VjcmV0"}, want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/status/1", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if rec.Header().Get("X-Trace-Id") == "" {
				t.Error("trace id not echoed")
			}
		})
	}
}

func TestWrapPublic_SkipsAuth(t *testing.T) {
	Init(config.ServerConfig{APIKey: "secret", RateLimitPerSecond: 100, RateLimitBurst: 100})
	rec := httptest.NewRecorder()
	WrapPublic(okHandler)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestWrap_RateLimit(t *testing.T) {
	Init(config.ServerConfig{RateLimitPerSecond: 0.001, RateLimitBurst: 2})
	handler := Wrap(okHandler)

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/status/1", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler(rec, req)
		codes[i] = rec.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
}

func TestWrap_CORS(t *testing.T) {
	Init(config.ServerConfig{RateLimitPerSecond: 100, RateLimitBurst: 100, AllowedOrigins: []string{"https://app.example"}})
	handler := Wrap(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Errorf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/status/1", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	handler(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow origin %q", got)
	}
}
