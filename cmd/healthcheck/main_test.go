package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTargetURL(t *testing.T) {
	tests := []struct {
		addr  string
		ready bool
		want  string
	}{
		{"", false, "http://localhost:8080/healthz"},
		{":9000", true, "http://localhost:9000/readyz"},
		{"0.0.0.0:7000", false, "http://localhost:7000/healthz"},
		{"127.0.0.1:8081", false, "http://127.0.0.1:8081/healthz"},
	}
	for _, tt := range tests {
		if got := targetURL(tt.addr, tt.ready); got != tt.want {
			t.Errorf("targetURL(%q, %v) = %q, want %q", tt.addr, tt.ready, got, tt.want)
		}
	}
}

func TestProbe(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))
	defer ok.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) }))
	defer bad.Close()

	if code := probe(ok.URL); code != 0 {
		t.Errorf("healthy probe exit %d", code)
	}
	if code := probe(bad.URL); code != 1 {
		t.Errorf("unhealthy probe exit %d", code)
	}
	if code := probe("http://127.0.0.1:1/healthz"); code != 1 {
		t.Errorf("unreachable probe exit %d", code)
	}
}
