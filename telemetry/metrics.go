// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	VotesTotal         *prometheus.CounterVec // labels: source, result
	SubmissionsDropped *prometheus.CounterVec // labels: source
	SourceRestarts     *prometheus.CounterVec // labels: source, class
	PointsAwarded      prometheus.Counter
	AwardsFailed       prometheus.Counter
	MessageIDsExpired  prometheus.Counter

	// Histograms (seconds)
	AwardDuration prometheus.Observer

	// Gauges
	RoundNumber    prometheus.Gauge
	RoundOpen      prometheus.Gauge // 1=open,0=closed
	RoundVotes     prometheus.Gauge
	SSESubscribers prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		VotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{Name: "vote_submissions_total", Help: "Vote submissions by source and decision"}, []string{"source", "result"})
		SubmissionsDropped = promauto.NewCounterVec(prometheus.CounterOpts{Name: "vote_submissions_dropped_total", Help: "Submissions dropped because the dispatch buffer was full"}, []string{"source"})
		SourceRestarts = promauto.NewCounterVec(prometheus.CounterOpts{Name: "vote_source_restarts_total", Help: "Ingestion source restarts by error class"}, []string{"source", "class"})
		PointsAwarded = promauto.NewCounter(prometheus.CounterOpts{Name: "vote_points_awarded_total", Help: "Points written to the score ledger"})
		AwardsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "vote_awards_failed_total", Help: "Award calls that failed in storage"})
		MessageIDsExpired = promauto.NewCounter(prometheus.CounterOpts{Name: "vote_message_ids_expired_total", Help: "Message ids dropped from the dedup registry"})
		AwardDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "vote_award_duration_seconds", Help: "Score ledger award duration seconds", Buckets: prometheus.DefBuckets})
		RoundNumber = promauto.NewGauge(prometheus.GaugeOpts{Name: "vote_round_number", Help: "Current round number"})
		RoundOpen = promauto.NewGauge(prometheus.GaugeOpts{Name: "vote_round_open", Help: "Round open=1 closed=0"})
		RoundVotes = promauto.NewGauge(prometheus.GaugeOpts{Name: "vote_round_votes", Help: "Accepted votes in the current round"})
		SSESubscribers = promauto.NewGauge(prometheus.GaugeOpts{Name: "vote_sse_subscribers", Help: "Connected event stream subscribers"})
	})
}

// knownSources are the provider tags exported as their own label value.
var knownSources = map[string]struct{}{
	"twitch":  {},
	"youtube": {},
	"tiktok":  {},
}

// SourceLabel bounds the cardinality of the free-form source tag: known
// providers keep their name and every other tag is reported as "other".
func SourceLabel(source string) string {
	s := strings.ToLower(strings.TrimSpace(source))
	if s == "" {
		return "unknown"
	}
	if _, ok := knownSources[s]; ok {
		return s
	}
	return "other"
}

// ObserveVote counts a submission decision.
func ObserveVote(source, result string) {
	if VotesTotal != nil {
		VotesTotal.WithLabelValues(SourceLabel(source), result).Inc()
	}
}

// ObserveDrop counts a submission lost to back-pressure.
func ObserveDrop(source string) {
	if SubmissionsDropped != nil {
		SubmissionsDropped.WithLabelValues(SourceLabel(source)).Inc()
	}
}

// ObserveRestart counts an ingestion source restart.
func ObserveRestart(source, class string) {
	if SourceRestarts != nil {
		SourceRestarts.WithLabelValues(SourceLabel(source), class).Inc()
	}
}

// SetRoundState mirrors the round lifecycle into gauges.
func SetRoundState(number uint64, open bool, votes int) {
	if RoundNumber == nil {
		return
	}
	RoundNumber.Set(float64(number))
	if open {
		RoundOpen.Set(1)
	} else {
		RoundOpen.Set(0)
	}
	RoundVotes.Set(float64(votes))
}

// AddSSESubscribers moves the subscriber gauge by delta.
func AddSSESubscribers(delta int) {
	if SSESubscribers != nil {
		SSESubscribers.Add(float64(delta))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
