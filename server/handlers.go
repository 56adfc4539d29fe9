// Package server exposes the HTTP API handlers.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/onnwee/vote-tender/config"
	"github.com/onnwee/vote-tender/score"
	"github.com/onnwee/vote-tender/tally"
	"github.com/onnwee/vote-tender/vote"
)

const (
	// Upper bound accepted for ?limit= on leaderboard reads
	maxLeaderboardLimit = 100
)

// Deps are the long-lived components the HTTP surface drives.
type Deps struct {
	Config   *config.Config
	Round    *vote.Round
	Ledger   score.Ledger
	Reporter *tally.Reporter
	Hub      *Hub
	Control  *Controller
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	ctx      context.Context
	cfg      *config.Config
	round    *vote.Round
	ledger   score.Ledger
	reporter *tally.Reporter
	hub      *Hub
	control  *Controller
	validate *validator.Validate
}

// NewHandlers creates a new Handlers instance with the given dependencies.
// A nil Controller is built from the round, reporter and hub.
func NewHandlers(ctx context.Context, d Deps) *Handlers {
	if d.Config == nil {
		d.Config = &config.Config{LeaderboardLimit: 10}
	}
	if d.Hub == nil {
		d.Hub = NewHub()
	}
	if d.Control == nil {
		d.Control = NewController(d.Round, d.Ledger, d.Reporter, d.Hub, d.Config.LeaderboardLimit)
	}
	return &Handlers{
		ctx:      ctx,
		cfg:      d.Config,
		round:    d.Round,
		ledger:   d.Ledger,
		reporter: d.Reporter,
		hub:      d.Hub,
		control:  d.Control,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", slog.Any("err", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
