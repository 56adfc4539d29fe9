package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/onnwee/vote-tender/config"
	"github.com/onnwee/vote-tender/score"
	"github.com/onnwee/vote-tender/tally"
	"github.com/onnwee/vote-tender/vote"
)

func newTestLedger(t *testing.T) *score.BadgerLedger {
	t.Helper()
	l, err := score.OpenBadger("")
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func newTestDeps(t *testing.T, ledger score.Ledger) Deps {
	t.Helper()
	t.Setenv("ADMIN_USERNAME", "")
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("ADMIN_TOKEN", "")
	t.Setenv("RATE_LIMIT_ENABLED", "0")
	round := vote.NewRound()
	hub := NewHub()
	reporter := tally.NewReporter(round, ledger)
	cfg := &config.Config{ScoreBackend: config.BackendBadger, LeaderboardLimit: 10}
	return Deps{
		Config:   cfg,
		Round:    round,
		Ledger:   ledger,
		Reporter: reporter,
		Hub:      hub,
		Control:  NewController(round, ledger, reporter, hub, cfg.LeaderboardLimit),
	}
}

func TestHealthzOK(t *testing.T) {
	h := NewMux(context.Background(), newTestDeps(t, newTestLedger(t)))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", rr.Code, rr.Body.String())
	}
	if got := rr.Body.String(); got != "ok" {
		t.Fatalf("expected ok body, got %q", got)
	}
	if rr.Header().Get("X-Correlation-ID") == "" {
		t.Error("expected correlation id header")
	}
}

func TestReadyzReady(t *testing.T) {
	h := NewMux(context.Background(), newTestDeps(t, newTestLedger(t)))
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "ready" {
		t.Fatalf("expected status=ready, got %q", resp["status"])
	}
}

func TestReadyzNotReadyStoreClosed(t *testing.T) {
	ledger, err := score.OpenBadger("")
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	if err := ledger.Close(); err != nil {
		t.Fatalf("close badger: %v", err)
	}
	h := NewMux(context.Background(), newTestDeps(t, ledger))
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["failed_check"] != "score_store" {
		t.Fatalf("expected failed_check=score_store, got %q", resp["failed_check"])
	}
}

func TestStartAndShutdown(t *testing.T) {
	deps := newTestDeps(t, newTestLedger(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Start(ctx, deps, "127.0.0.1:0") }()

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("server returned error: %v", err)
	}
}
