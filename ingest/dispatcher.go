package ingest

import (
	"context"
	"log/slog"

	"github.com/onnwee/vote-tender/telemetry"
	"github.com/onnwee/vote-tender/vote"
)

// Accepter is the round operation the dispatcher drives. Submissions are
// decided against the round number current when they were submitted.
type Accepter interface {
	Number() uint64
	AcceptVoteIn(number uint64, s vote.Submission) (bool, vote.Reason)
}

type queued struct {
	sub   vote.Submission
	round uint64
}

// Decision is called after every submission the dispatcher processed.
type Decision func(s vote.Submission, accepted bool, reason vote.Reason)

// Dispatcher buffers submissions from all sources and applies them in arrival order.
type Dispatcher struct {
	round      Accepter
	in         chan queued
	onDecision Decision
}

// NewDispatcher returns a dispatcher with room for size pending submissions.
func NewDispatcher(round Accepter, size int, onDecision Decision) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	return &Dispatcher{round: round, in: make(chan queued, size), onDecision: onDecision}
}

// Submit enqueues s without blocking, stamped with the current round. It reports
// false when the buffer was full and s was dropped.
func (d *Dispatcher) Submit(s vote.Submission) bool {
	select {
	case d.in <- queued{sub: s, round: d.round.Number()}:
		return true
	default:
		telemetry.ObserveDrop(s.Source)
		slog.Debug("ingest buffer full; dropping submission", slog.String("source", s.Source), slog.String("user", s.Username))
		return false
	}
}

// Pending returns the number of buffered submissions.
func (d *Dispatcher) Pending() int { return len(d.in) }

// Run drains the buffer until ctx is cancelled. Only one Run may be active.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case q := <-d.in:
			d.apply(q)
		}
	}
}

func (d *Dispatcher) apply(q queued) {
	s := q.sub
	accepted, reason := d.round.AcceptVoteIn(q.round, s)
	telemetry.ObserveVote(s.Source, reason.String())
	if accepted {
		slog.Debug("vote accepted", slog.String("source", s.Source), slog.String("user", s.Username))
	}
	if d.onDecision != nil {
		d.onDecision(s, accepted, reason)
	}
}
