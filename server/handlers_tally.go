package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/onnwee/vote-tender/tally"
)

// sseKeepAlive is how often an idle event stream receives a comment line.
var sseKeepAlive = 15 * time.Second

// HandleTally returns the current round tally.
func (h *Handlers) HandleTally(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.reporter.ReportNow())
}

// HandleLeaderboard returns the ranked leaderboard. Params: limit (default LEADERBOARD_LIMIT, max 100).
func (h *Handlers) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit := parseIntQuery(r, "limit", h.cfg.LeaderboardLimit)
	if limit <= 0 {
		limit = h.cfg.LeaderboardLimit
	}
	if limit <= 0 || limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	entries, err := h.reporter.ReportLeaderboard(r.Context(), limit)
	if err != nil {
		slog.Error("leaderboard read failed", slog.Any("err", err))
		writeError(w, http.StatusServiceUnavailable, "score store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, tally.Rank(entries))
}

// HandleEvents streams tally, leaderboard and round events using Server-Sent Events.
func (h *Handlers) HandleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	// Streams outlive the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
	events, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.ctx.Done():
			return
		case <-keepAlive.C:
			if _, err := w.Write([]byte(": keep-alive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case b := <-events:
			if _, err := w.Write([]byte("data: ")); err != nil {
				slog.Warn("failed to write SSE data prefix", slog.Any("err", err))
				return
			}
			if _, err := w.Write(b); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n\n")); err != nil {
				slog.Warn("failed to write SSE terminator", slog.Any("err", err))
				return
			}
			flusher.Flush()
		}
	}
}
