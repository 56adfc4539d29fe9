package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/onnwee/vote-tender/telemetry"
	"github.com/onnwee/vote-tender/vote"
)

// maxVoteBody bounds a relayed submission.
const maxVoteBody = 8 << 10

// remoteVote is the relay payload forwarded by out-of-process chat listeners.
type remoteVote struct {
	Type      string  `json:"type" validate:"omitempty,eq=remote_vote"`
	Source    string  `json:"source" validate:"required,max=32,printascii"`
	Username  string  `json:"username" validate:"max=128"`
	Message   string  `json:"message" validate:"max=512"`
	Timestamp float64 `json:"timestamp" validate:"gte=0"`
	MessageID string  `json:"message_id" validate:"max=256"`
}

type voteResult struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason"`
	Error    string `json:"error,omitempty"`
}

// HandleVotes accepts one relayed submission and reports the round's decision.
// Rejections are ordinary 200 responses; only unreadable payloads are 400.
func (h *Handlers) HandleVotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if token := h.cfg.IngestToken; token != "" {
		got := r.Header.Get("X-Ingest-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid ingest token")
			return
		}
	}

	var in remoteVote
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxVoteBody))
	if err := dec.Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, voteResult{Reason: "malformed", Error: "invalid json"})
		return
	}
	if err := h.validate.Struct(in); err != nil {
		writeJSON(w, http.StatusBadRequest, voteResult{Reason: "malformed", Error: err.Error()})
		return
	}

	sub := vote.Submission{
		Source:    in.Source,
		Username:  in.Username,
		Message:   in.Message,
		Timestamp: in.Timestamp,
		MessageID: in.MessageID,
	}
	accepted, reason := h.round.AcceptVote(sub)
	telemetry.ObserveVote(sub.Source, reason.String())
	if accepted {
		h.control.Voted()
	}
	writeJSON(w, http.StatusOK, voteResult{Accepted: accepted, Reason: reason.String()})
}
