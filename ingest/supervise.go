package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/onnwee/vote-tender/telemetry"
	"github.com/onnwee/vote-tender/vote"
)

// RestartPolicy holds the delays applied between source runs.
type RestartPolicy struct {
	// Base is the first retryable delay; it doubles up to Max.
	Base time.Duration
	Max  time.Duration
	// RateLimited is the fixed delay after a rate-limit error.
	RateLimited time.Duration
	// Offline delays apply to consecutive offline results: [0] for the first two,
	// [1] up to the ninth, [2] afterwards.
	Offline [3]time.Duration
	// Healthy is the run length after which accumulated backoff is forgotten.
	Healthy time.Duration
}

// DefaultRestartPolicy matches the pacing chat platforms tolerate from a reconnecting client.
var DefaultRestartPolicy = RestartPolicy{
	Base:        5 * time.Second,
	Max:         5 * time.Minute,
	RateLimited: 10 * time.Minute,
	Offline:     [3]time.Duration{time.Minute, 3 * time.Minute, 10 * time.Minute},
	Healthy:     10 * time.Second,
}

type restartState struct {
	backoff time.Duration
	offline int
}

// next returns the delay before the following run, or false when the source must stop.
func (p RestartPolicy) next(st *restartState, class ErrorClass, ranFor time.Duration) (time.Duration, bool) {
	if ranFor >= p.Healthy {
		st.backoff = 0
	}
	switch class {
	case ErrorClassFatal:
		return 0, false
	case ErrorClassRateLimited:
		st.offline = 0
		return p.RateLimited, true
	case ErrorClassOffline:
		st.offline++
		switch {
		case st.offline < 3:
			return p.Offline[0], true
		case st.offline < 10:
			return p.Offline[1], true
		default:
			return p.Offline[2], true
		}
	default:
		st.offline = 0
		if st.backoff == 0 {
			st.backoff = p.Base
		} else {
			st.backoff *= 2
		}
		if st.backoff > p.Max {
			st.backoff = p.Max
		}
		return st.backoff, true
	}
}

// Supervisor runs sources and restarts them when they exit.
type Supervisor struct {
	Policy RestartPolicy
	Emit   Emit
}

// Supervise runs every source against d with the default restart policy until ctx is cancelled.
func Supervise(ctx context.Context, d *Dispatcher, sources ...Source) error {
	s := &Supervisor{Policy: DefaultRestartPolicy, Emit: func(sub vote.Submission) { d.Submit(sub) }}
	return s.Run(ctx, sources...)
}

// Run blocks until ctx is cancelled or every source stopped on a fatal error.
func (s *Supervisor) Run(ctx context.Context, sources ...Source) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		g.Go(func() error {
			s.runSource(gctx, src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *Supervisor) runSource(ctx context.Context, src Source) {
	logger := slog.Default().With(slog.String("component", "ingest"), slog.String("source", src.Name()))
	var st restartState
	for {
		started := time.Now()
		logger.Info("source starting")
		err := src.Run(ctx, s.Emit)
		if ctx.Err() != nil {
			logger.Info("source stopped")
			return
		}
		class := ClassifySourceError(err)
		delay, ok := s.Policy.next(&st, class, time.Since(started))
		telemetry.ObserveRestart(src.Name(), class.String())
		if !ok {
			logger.Error("source failed permanently", slog.Any("err", err), slog.String("class", class.String()))
			return
		}
		if err != nil && !errors.Is(err, ErrOffline) {
			logger.Warn("source exited", slog.Any("err", err), slog.String("class", class.String()), slog.Duration("retry_in", delay))
		} else {
			logger.Info("source idle", slog.String("class", class.String()), slog.Duration("retry_in", delay))
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			logger.Info("source stopped")
			return
		case <-t.C:
		}
	}
}
