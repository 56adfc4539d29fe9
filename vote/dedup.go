package vote

import (
	"math"
	"time"
)

type signature struct {
	source   string
	username string
	message  string
	bucket   int64
}

// Guard rejects replays. It keeps a session-wide registry of provider message
// ids (source:messageId -> first seen timestamp) and a per-round set of
// content signatures bucketed by the dedup window.
//
// Guard is not safe for concurrent use; Round serializes access to it.
type Guard struct {
	window float64 // seconds
	ttl    float64 // seconds
	ids    map[string]float64
	sigs   map[signature]struct{}
}

// NewGuard returns a guard with the given signature window and message-id TTL.
func NewGuard(window, ttl time.Duration) *Guard {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	if ttl <= 0 {
		ttl = DefaultMessageIDTTL
	}
	return &Guard{
		window: window.Seconds(),
		ttl:    ttl.Seconds(),
		ids:    make(map[string]float64),
		sigs:   make(map[signature]struct{}),
	}
}

// CheckAndRecord runs the message-id check then the signature check, recording
// the submission in each ledger it passes. ts is the normalized submission time
// and buckets the signature; now is the guard clock and stamps first-seen ids
// so the TTL runs from arrival.
func (g *Guard) CheckAndRecord(s Submission, ts, now float64) Reason {
	if s.MessageID != "" {
		key := s.Source + ":" + s.MessageID
		if _, seen := g.ids[key]; seen {
			return ReasonDuplicateMessageID
		}
		g.ids[key] = now
	}
	sig := signature{
		source:   s.Source,
		username: s.Username,
		message:  canonical(s.Message),
		bucket:   g.bucket(ts),
	}
	if _, seen := g.sigs[sig]; seen {
		return ReasonDuplicateSignature
	}
	g.sigs[sig] = struct{}{}
	return ReasonAccepted
}

// bucket maps ts onto its signature window, saturating instead of overflowing.
func (g *Guard) bucket(ts float64) int64 {
	b := math.Floor(ts / g.window)
	switch {
	case math.IsNaN(b):
		return 0
	case b >= math.MaxInt64:
		return math.MaxInt64
	case b <= math.MinInt64:
		return math.MinInt64
	}
	return int64(b)
}

// ResetRound clears the per-round signatures and drops message ids first seen
// more than the TTL before now. It returns how many ids were collected.
func (g *Guard) ResetRound(now float64) int {
	clear(g.sigs)
	cutoff := now - g.ttl
	expired := 0
	for key, seen := range g.ids {
		if seen < cutoff {
			delete(g.ids, key)
			expired++
		}
	}
	return expired
}

// Len reports the sizes of the message-id registry and the signature set.
func (g *Guard) Len() (ids, signatures int) { return len(g.ids), len(g.sigs) }
