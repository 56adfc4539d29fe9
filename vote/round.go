package vote

import (
	"math"
	"slices"
	"strings"
	"sync"
	"time"
)

// Defaults applied when no option overrides them.
const (
	DefaultGrace        = 5 * time.Second
	DefaultDedupWindow  = time.Second
	DefaultMessageIDTTL = time.Hour
)

// Tally is a point-in-time read of the active round.
type Tally struct {
	Round       uint64            `json:"round"`
	Counts      map[Label]int     `json:"counts"`
	Percentages map[Label]float64 `json:"percentages"`
	Total       int               `json:"total"`
}

// State describes the round lifecycle without the vote map.
type State struct {
	Number    uint64    `json:"round"`
	Open      bool      `json:"open"`
	StartedAt time.Time `json:"started_at"`
	Total     int       `json:"total"`
}

// Round owns the voting window for one question cycle. All methods are safe
// for concurrent use; they share one mutex so lifecycle commands and
// AcceptVote are applied in a single total order.
type Round struct {
	mu        sync.Mutex
	guard     *Guard
	grace     float64
	now       func() time.Time
	number    uint64
	open      bool
	startedAt float64
	votes     map[string]Label
}

// Option configures a Round.
type Option func(*roundOptions)

type roundOptions struct {
	grace  time.Duration
	window time.Duration
	ttl    time.Duration
	now    func() time.Time
}

// WithGrace sets how far before the round start a submission may be stamped.
func WithGrace(d time.Duration) Option { return func(o *roundOptions) { o.grace = d } }

// WithDedupWindow sets the content-signature time bucket.
func WithDedupWindow(d time.Duration) Option { return func(o *roundOptions) { o.window = d } }

// WithMessageIDTTL sets how long provider message ids are remembered.
func WithMessageIDTTL(d time.Duration) Option { return func(o *roundOptions) { o.ttl = d } }

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option { return func(o *roundOptions) { o.now = now } }

// NewRound returns a closed round stamped with the current time.
func NewRound(opts ...Option) *Round {
	o := roundOptions{grace: DefaultGrace, window: DefaultDedupWindow, ttl: DefaultMessageIDTTL, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.grace < 0 {
		o.grace = 0
	}
	r := &Round{
		guard: NewGuard(o.window, o.ttl),
		grace: o.grace.Seconds(),
		now:   o.now,
		votes: make(map[string]Label),
	}
	r.startedAt = Seconds(r.now())
	return r
}

// Open starts accepting votes and stamps the window start.
func (r *Round) Open() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open = true
	r.startedAt = Seconds(r.now())
	return r.stateLocked()
}

// Close stops accepting votes. Accepted votes are kept until Reset.
func (r *Round) Close() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open = false
	return r.stateLocked()
}

// Reset begins a new round: votes and content signatures are cleared, stale
// message ids are collected and the round number advances. The open flag is
// left untouched. It returns the new state and the number of expired ids.
func (r *Round) Reset() (State, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := Seconds(r.now())
	clear(r.votes)
	expired := r.guard.ResetRound(now)
	r.startedAt = now
	r.number++
	return r.stateLocked(), expired
}

// AcceptVote decides a single submission against the current round. Checks run
// in a fixed order and the first failing check determines the reason.
func (r *Round) AcceptVote(s Submission) (bool, Reason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acceptLocked(r.number, s)
}

// AcceptVoteIn decides s only while round number is still current. A submission
// queued before a Reset is rejected as stale once the next round has begun.
func (r *Round) AcceptVoteIn(number uint64, s Submission) (bool, Reason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acceptLocked(number, s)
}

// Number returns the current round number.
func (r *Round) Number() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.number
}

func (r *Round) acceptLocked(number uint64, s Submission) (bool, Reason) {
	if !r.open {
		return false, ReasonRoundClosed
	}
	if strings.TrimSpace(s.Username) == "" {
		return false, ReasonEmptyUsername
	}
	now := Seconds(r.now())
	// Absent and future stamps both collapse to arrival time.
	ts := NormalizeTimestamp(s.Timestamp)
	if ts <= 0 || ts > now || math.IsNaN(ts) {
		ts = now
	}
	if number != r.number || ts < r.startedAt-r.grace {
		return false, ReasonStale
	}
	if reason := r.guard.CheckAndRecord(s, ts, now); reason != ReasonAccepted {
		return false, reason
	}
	id := s.Identity()
	if _, voted := r.votes[id]; voted {
		return false, ReasonAlreadyVoted
	}
	label, ok := Normalize(s.Message)
	if !ok {
		return false, ReasonInvalidAnswer
	}
	r.votes[id] = label
	return true, ReasonAccepted
}

// Snapshot returns counts and one-decimal percentages for every label.
// Percentages are rounded independently and may not sum to 100.
func (r *Round) Snapshot() Tally {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := Tally{
		Round:       r.number,
		Counts:      make(map[Label]int, len(Labels)),
		Percentages: make(map[Label]float64, len(Labels)),
		Total:       len(r.votes),
	}
	for _, l := range Labels {
		t.Counts[l] = 0
	}
	for _, l := range r.votes {
		t.Counts[l]++
	}
	for _, l := range Labels {
		t.Percentages[l] = percent(t.Counts[l], t.Total)
	}
	return t
}

// VotersForLabel returns the voter identities that picked label, sorted.
func (r *Round) VotersForLabel(label Label) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0)
	for id, l := range r.votes {
		if l == label {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// State returns the current lifecycle state.
func (r *Round) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

func (r *Round) stateLocked() State {
	return State{
		Number:    r.number,
		Open:      r.open,
		StartedAt: FromSeconds(r.startedAt).UTC(),
		Total:     len(r.votes),
	}
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return math.Round(float64(n)*1000/float64(total)) / 10
}
