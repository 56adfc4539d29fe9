// Package tally reads the live vote tally and the leaderboard for the broadcaster
// and pushes them to subscribers on a fixed cadence or on demand.
package tally

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/onnwee/vote-tender/score"
	"github.com/onnwee/vote-tender/vote"
)

// EventType names the payload carried by an Event.
type EventType string

const (
	EventTally       EventType = "tally"
	EventLeaderboard EventType = "leaderboard"
	EventRound       EventType = "round"
)

// Standing is a ranked leaderboard row. Equal scores share a rank.
type Standing struct {
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	Score    int64  `json:"score"`
}

// Event is the envelope pushed to subscribers.
type Event struct {
	Type        EventType   `json:"type"`
	Tally       *vote.Tally `json:"tally,omitempty"`
	Leaderboard []Standing  `json:"leaderboard,omitempty"`
	Round       *vote.State `json:"round,omitempty"`
	At          time.Time   `json:"at"`
}

// Sink receives events. Publish must not block.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function into a Sink.
type SinkFunc func(Event)

func (f SinkFunc) Publish(e Event) { f(e) }

// TallyEvent wraps a tally snapshot.
func TallyEvent(t vote.Tally) Event {
	return Event{Type: EventTally, Tally: &t, At: time.Now().UTC()}
}

// LeaderboardEvent ranks entries, which must already be ordered by score.
func LeaderboardEvent(entries []score.Entry) Event {
	return Event{Type: EventLeaderboard, Leaderboard: Rank(entries), At: time.Now().UTC()}
}

// RoundEvent announces a round lifecycle change.
func RoundEvent(s vote.State) Event {
	return Event{Type: EventRound, Round: &s, At: time.Now().UTC()}
}

// Rank assigns competition ranks (1, 2, 2, 4) to ordered entries.
func Rank(entries []score.Entry) []Standing {
	rank := 0
	return lo.Map(entries, func(e score.Entry, i int) Standing {
		if i == 0 || entries[i-1].Score != e.Score {
			rank = i + 1
		}
		return Standing{Rank: rank, Username: e.Username, Score: e.Score}
	})
}

// Reporter holds no state of its own; it reads the round and the ledger when asked.
type Reporter struct {
	round  *vote.Round
	ledger score.Ledger
	notify chan struct{}
}

// NewReporter returns a reporter over round and ledger.
func NewReporter(round *vote.Round, ledger score.Ledger) *Reporter {
	return &Reporter{round: round, ledger: ledger, notify: make(chan struct{}, 1)}
}

// ReportNow returns the current tally snapshot.
func (r *Reporter) ReportNow() vote.Tally {
	return r.round.Snapshot()
}

// ReportLeaderboard returns at most limit entries, highest score first.
func (r *Reporter) ReportLeaderboard(ctx context.Context, limit int) ([]score.Entry, error) {
	if limit <= 0 {
		return []score.Entry{}, nil
	}
	entries, err := r.ledger.TopScores(ctx, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []score.Entry{}
	}
	return entries, nil
}

// Notify asks Run for an out-of-cadence tally publish. Requests coalesce while one is pending.
func (r *Reporter) Notify() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Run publishes a tally and a leaderboard every interval, and a tally after each Notify,
// until ctx is cancelled.
func (r *Reporter) Run(ctx context.Context, interval time.Duration, limit int, sink Sink) error {
	logger := slog.Default().With(slog.String("component", "tally"))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	publishLeaderboard := func() {
		lctx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		entries, err := r.ReportLeaderboard(lctx, limit)
		if err != nil {
			logger.Warn("leaderboard read failed", slog.Any("err", err))
			return
		}
		sink.Publish(LeaderboardEvent(entries))
	}

	sink.Publish(TallyEvent(r.ReportNow()))
	publishLeaderboard()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.notify:
			sink.Publish(TallyEvent(r.ReportNow()))
		case <-ticker.C:
			sink.Publish(TallyEvent(r.ReportNow()))
			publishLeaderboard()
		}
	}
}
