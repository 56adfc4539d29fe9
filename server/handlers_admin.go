package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/onnwee/vote-tender/score"
	"github.com/onnwee/vote-tender/vote"
)

// HandleAdminRound returns the round state on GET.
func (h *Handlers) HandleAdminRound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.round.State())
}

// HandleAdminRoundOpen starts accepting votes.
func (h *Handlers) HandleAdminRoundOpen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.control.Open())
}

// HandleAdminRoundClose stops accepting votes.
func (h *Handlers) HandleAdminRoundClose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.control.Close())
}

// HandleAdminRoundReset clears votes for the next question.
func (h *Handlers) HandleAdminRoundReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.control.Reset())
}

type awardRequest struct {
	Label  string `json:"label" validate:"required"`
	Points int    `json:"points" validate:"gte=0,lte=1000000"`
}

// HandleAdminAward awards points to everyone who voted for a label this round.
// Body: {"label":"B","points":1}
func (h *Handlers) HandleAdminAward(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req awardRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxVoteBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	label, ok := vote.ParseLabel(req.Label)
	if !ok {
		writeError(w, http.StatusBadRequest, "label must be one of A, B, C, D")
		return
	}
	n, err := h.control.Award(r.Context(), label, req.Points)
	switch {
	case errors.Is(err, score.ErrNegativePoints):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, "score store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"label": label, "points": req.Points, "awarded": n})
}

// HandleAdminVoters lists voter identities for ?label= in the current round.
func (h *Handlers) HandleAdminVoters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	label, ok := vote.ParseLabel(r.URL.Query().Get("label"))
	if !ok {
		writeError(w, http.StatusBadRequest, "label must be one of A, B, C, D")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"label": label, "voters": h.round.VotersForLabel(label)})
}

// HandleAdminScore returns one voter's score. Params: user (voter identity, e.g. twitch:alice).
func (h *Handlers) HandleAdminScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	user := r.URL.Query().Get("user")
	if user == "" {
		writeError(w, http.StatusBadRequest, "user required")
		return
	}
	s, err := h.ledger.Score(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "score store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, score.Entry{Username: user, Score: s})
}
