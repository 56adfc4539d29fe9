// Command healthcheck probes the local service for container health checks.
// It exits non-zero unless GET /healthz (or /readyz with -ready) returns 200.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

func main() {
	ready := flag.Bool("ready", false, "probe /readyz instead of /healthz")
	flag.Parse()

	os.Exit(probe(targetURL(os.Getenv("HTTP_ADDR"), *ready)))
}

// targetURL maps a listen address such as ":8080" to a loopback probe URL.
func targetURL(addr string, ready bool) string {
	if addr == "" {
		addr = ":8080"
	}
	if strings.HasPrefix(addr, ":") || strings.HasPrefix(addr, "0.0.0.0:") {
		addr = "localhost:" + addr[strings.LastIndex(addr, ":")+1:]
	}
	path := "/healthz"
	if ready {
		path = "/readyz"
	}
	return "http://" + addr + path
}

func probe(url string) int {
	client := &http.Client{Timeout: 3 * time.Second}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		return 1
	}
	resp, err := client.Do(req)
	if err != nil {
		return 1
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("failed to close response body: %v", err)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}
