package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/onnwee/vote-tender/score"
	"github.com/onnwee/vote-tender/tally"
	"github.com/onnwee/vote-tender/telemetry"
	"github.com/onnwee/vote-tender/vote"
)

// Controller applies orchestrator commands to the round and announces the result.
// It is shared by the admin endpoints and the chat "!reset" command.
type Controller struct {
	round    *vote.Round
	ledger   score.Ledger
	reporter *tally.Reporter
	hub      *Hub
	limit    int
}

// NewController wires round lifecycle commands to the ledger and the event hub.
// limit bounds the leaderboard pushed after an award.
func NewController(round *vote.Round, ledger score.Ledger, reporter *tally.Reporter, hub *Hub, limit int) *Controller {
	if limit <= 0 || limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	return &Controller{round: round, ledger: ledger, reporter: reporter, hub: hub, limit: limit}
}

// Open starts accepting votes.
func (c *Controller) Open() vote.State {
	st := c.round.Open()
	c.announce("open", st)
	return st
}

// Close stops accepting votes; the tally is kept for awarding.
func (c *Controller) Close() vote.State {
	st := c.round.Close()
	c.announce("close", st)
	return st
}

// Reset starts a new question.
func (c *Controller) Reset() vote.State {
	st, expired := c.round.Reset()
	if telemetry.MessageIDsExpired != nil {
		telemetry.MessageIDsExpired.Add(float64(expired))
	}
	c.announce("reset", st)
	return st
}

// Award gives points to every voter of label in the current round and returns how many
// voters were awarded. Storage failures are returned unchanged so callers can tell them
// apart from bad input.
func (c *Controller) Award(ctx context.Context, label vote.Label, points int) (int, error) {
	voters := c.round.VotersForLabel(label)
	var err error
	telemetry.TimeFunc(telemetry.AwardDuration, func() {
		err = c.ledger.Award(ctx, voters, points)
	})
	if err != nil {
		if telemetry.AwardsFailed != nil {
			telemetry.AwardsFailed.Inc()
		}
		telemetry.LoggerWithCorr(ctx).Error("award failed",
			slog.String("label", string(label)), slog.Int("voters", len(voters)), slog.Any("err", err))
		return 0, err
	}
	if telemetry.PointsAwarded != nil {
		telemetry.PointsAwarded.Add(float64(points * len(voters)))
	}
	telemetry.LoggerWithCorr(ctx).Info("points awarded",
		slog.String("label", string(label)), slog.Int("points", points), slog.Int("voters", len(voters)))
	c.publishLeaderboard(ctx)
	return len(voters), nil
}

// Voted is called after every accepted submission so subscribers see the new tally promptly.
func (c *Controller) Voted() {
	if c.reporter != nil {
		c.reporter.Notify()
	}
}

func (c *Controller) announce(action string, st vote.State) {
	telemetry.SetRoundState(st.Number, st.Open, st.Total)
	slog.Info("round "+action, slog.Uint64("round", st.Number), slog.Bool("open", st.Open), slog.Int("votes", st.Total))
	if c.hub != nil {
		c.hub.Publish(tally.RoundEvent(st))
	}
	c.Voted()
}

func (c *Controller) publishLeaderboard(ctx context.Context) {
	if c.hub == nil || c.reporter == nil {
		return
	}
	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	entries, err := c.reporter.ReportLeaderboard(lctx, c.limit)
	if err != nil {
		slog.Warn("leaderboard refresh failed", slog.Any("err", err))
		return
	}
	c.hub.Publish(tally.LeaderboardEvent(entries))
}
