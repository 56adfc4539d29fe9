package vote

import (
	"math"
	"time"
)

// millisThreshold separates second-precision from millisecond-precision epochs.
const millisThreshold = 1e10

// Submission is a normalized chat event handed to the round by an ingestion source.
type Submission struct {
	Source    string  `json:"source"`
	Username  string  `json:"username"`
	Message   string  `json:"message"`
	Timestamp float64 `json:"timestamp,omitempty"` // seconds (or milliseconds) since epoch; 0 = absent
	MessageID string  `json:"message_id,omitempty"`
}

// Identity returns the voter identity for the submission.
func (s Submission) Identity() string { return Identity(s.Source, s.Username) }

// Identity builds the per-round dedup key "source:username". A submission
// without a source is keyed by username alone.
func Identity(source, username string) string {
	if source == "" {
		return username
	}
	return source + ":" + username
}

// NormalizeTimestamp converts a millisecond epoch to seconds. Values at or
// below 1e10 are returned unchanged.
func NormalizeTimestamp(ts float64) float64 {
	if ts > millisThreshold {
		return ts / 1000
	}
	return ts
}

// Seconds converts a time to fractional epoch seconds.
func Seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// FromSeconds converts fractional epoch seconds back to a time.
func FromSeconds(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}
