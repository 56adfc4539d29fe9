package server

import (
	"net/http"
)

// HandleConfig returns the effective non-secret configuration.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	c := h.cfg
	writeJSON(w, http.StatusOK, map[string]any{
		"score_backend":     c.ScoreBackend,
		"round_grace":       c.RoundGrace.String(),
		"dedup_window":      c.DedupWindow.String(),
		"message_id_ttl":    c.MessageIDTTL.String(),
		"tally_interval":    c.TallyInterval.String(),
		"leaderboard_limit": c.LeaderboardLimit,
		"ingest_buffer":     c.IngestBuffer,
		"ingest_token_set":  c.IngestToken != "",
		"twitch_enabled":    c.TwitchEnabled(),
		"twitch_channel":    c.TwitchChannel,
		"youtube_enabled":   c.YouTubeEnabled(),
	})
}
