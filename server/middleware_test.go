package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAdminAuthMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		username       string
		password       string
		token          string
		reqUsername    string
		reqPassword    string
		reqToken       string
		expectedStatus int
	}{
		{name: "no auth configured - allows request", expectedStatus: http.StatusOK},
		{name: "valid basic auth", username: "admin", password: "secret123", reqUsername: "admin", reqPassword: "secret123", expectedStatus: http.StatusOK},
		{name: "invalid basic auth password", username: "admin", password: "secret123", reqUsername: "admin", reqPassword: "wrong", expectedStatus: http.StatusUnauthorized},
		{name: "valid token auth", token: "quiz-token", reqToken: "quiz-token", expectedStatus: http.StatusOK},
		{name: "invalid token auth", token: "quiz-token", reqToken: "nope", expectedStatus: http.StatusUnauthorized},
		{name: "token wins over bad basic auth", username: "admin", password: "secret123", token: "quiz-token", reqToken: "quiz-token", reqUsername: "x", reqPassword: "y", expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &authConfig{
				adminUsername: tt.username,
				adminPassword: tt.password,
				adminToken:    tt.token,
				enabled:       (tt.username != "" && tt.password != "") || tt.token != "",
			}
			handler := adminAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}), cfg)

			req := httptest.NewRequest(http.MethodPost, "/admin/round/open", nil)
			if tt.reqUsername != "" || tt.reqPassword != "" {
				req.SetBasicAuth(tt.reqUsername, tt.reqPassword)
			}
			if tt.reqToken != "" {
				req.Header.Set("X-Admin-Token", tt.reqToken)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
			if tt.expectedStatus == http.StatusUnauthorized && rr.Header().Get("WWW-Authenticate") != `Basic realm="vote-tender admin"` {
				t.Errorf("unexpected WWW-Authenticate %q", rr.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	deps := newTestDeps(t, newTestLedger(t))
	t.Setenv("ADMIN_TOKEN", "quiz-token")
	h := NewMux(context.Background(), deps)

	if rr := do(t, h, http.MethodPost, "/admin/round/open", ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	// Broadcaster reads stay public.
	if rr := do(t, h, http.MethodGet, "/tally", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for /tally, got %d", rr.Code)
	}
	req := httptest.NewRequest(http.MethodPost, "/admin/round/open", nil)
	req.Header.Set("X-Admin-Token", "quiz-token")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rr.Code)
	}
}

func newTestLimiter(requests int, window time.Duration, now *time.Time) *ipRateLimiter {
	return &ipRateLimiter{
		visitors: make(map[string]*visitor),
		cfg:      &rateLimiterConfig{enabled: true, requestsPerIP: requests, window: window},
		now:      func() time.Time { return *now },
	}
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := newTestLimiter(3, time.Minute, &now)
	for i := 0; i < 3; i++ {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if rl.allow("10.0.0.1") {
		t.Fatal("fourth request should be limited")
	}
	if !rl.allow("10.0.0.2") {
		t.Fatal("other IPs have their own budget")
	}
	now = now.Add(61 * time.Second)
	if !rl.allow("10.0.0.1") {
		t.Fatal("budget should refill after the window")
	}
	now = now.Add(5 * time.Minute)
	rl.cleanup()
	if len(rl.visitors) != 0 {
		t.Fatalf("expected stale visitors removed, have %d", len(rl.visitors))
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	now := time.Now()
	rl := newTestLimiter(1, time.Minute, &now)
	rl.cfg.enabled = false
	for i := 0; i < 5; i++ {
		if !rl.allow("10.0.0.1") {
			t.Fatal("disabled limiter must allow everything")
		}
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	now := time.Now()
	rl := newTestLimiter(1, 30*time.Second, &now)
	h := rateLimitMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), rl)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/admin/round/reset", nil)
		req.RemoteAddr = "192.0.2.7:5555"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}
	if rr := send(); rr.Code != http.StatusOK {
		t.Fatalf("first request got %d", rr.Code)
	}
	rr := send()
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "30" {
		t.Errorf("Retry-After = %q", rr.Header().Get("Retry-After"))
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name      string
		remote    string
		forwarded string
		want      string
	}{
		{"ipv4 with port", "192.0.2.1:1234", "", "192.0.2.1"},
		{"ipv4 without port", "192.0.2.1", "", "192.0.2.1"},
		{"ipv6 with port", "[2001:db8::1]:443", "", "2001:db8::1"},
		{"ipv6 without port", "2001:db8::1", "", "2001:db8::1"},
		{"forwarded chain", "10.0.0.1:1", "203.0.113.9, 10.0.0.1", "203.0.113.9"},
		{"forwarded single", "10.0.0.1:1", " 203.0.113.10 ", "203.0.113.10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCORSConfig(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	permissive := withCORSConfig(next, &corsConfig{permissive: true})
	req := httptest.NewRequest(http.MethodGet, "/tally", nil)
	rr := httptest.NewRecorder()
	permissive.ServeHTTP(rr, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("permissive mode should allow all origins")
	}

	restricted := withCORSConfig(next, &corsConfig{allowedOrigins: []string{"https://overlay.example.com"}})
	for origin, want := range map[string]string{
		"https://overlay.example.com": "https://overlay.example.com",
		"https://evil.example.org":    "",
	} {
		req := httptest.NewRequest(http.MethodGet, "/tally", nil)
		req.Header.Set("Origin", origin)
		rr := httptest.NewRecorder()
		restricted.ServeHTTP(rr, req)
		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != want {
			t.Errorf("origin %s: got %q want %q", origin, got, want)
		}
	}

	preflight := httptest.NewRequest(http.MethodOptions, "/votes", nil)
	rr = httptest.NewRecorder()
	permissive.ServeHTTP(rr, preflight)
	if rr.Code != http.StatusNoContent {
		t.Errorf("preflight status %d", rr.Code)
	}
}

func TestLoadCORSConfig(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("CORS_PERMISSIVE", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")
	cfg := loadCORSConfig()
	if cfg.permissive {
		t.Error("production should not be permissive")
	}
	if len(cfg.allowedOrigins) != 2 {
		t.Errorf("allowedOrigins = %v", cfg.allowedOrigins)
	}
	t.Setenv("CORS_PERMISSIVE", "1")
	if !loadCORSConfig().permissive {
		t.Error("CORS_PERMISSIVE=1 should override")
	}
}

func TestIsOriginAllowed(t *testing.T) {
	allowed := []string{"https://overlay.example.com", "*.stream.tv"}
	cases := map[string]bool{
		"https://overlay.example.com": true,
		"https://obs.stream.tv":       true,
		"https://stream.tv":           true,
		"https://stream.tv.evil.com":  false,
		"http://localhost:3000":       false,
	}
	for origin, want := range cases {
		if got := isOriginAllowed(origin, allowed); got != want {
			t.Errorf("isOriginAllowed(%q) = %v, want %v", origin, got, want)
		}
	}
}

func TestParseInt(t *testing.T) {
	if parseInt("42", 1) != 42 || parseInt("x", 7) != 7 {
		t.Fatal("parseInt mismatch")
	}
}
