package telemetry

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSourceLabel(t *testing.T) {
	cases := map[string]string{
		"Twitch":                "twitch",
		"  youtube ":            "youtube",
		"TikTok":                "tiktok",
		"":                      "unknown",
		"kick":                  "other",
		"random-1234":           "other",
		strings.Repeat("x", 40): "other",
	}
	for in, want := range cases {
		if got := SourceLabel(in); got != want {
			t.Errorf("SourceLabel(%q)=%q want %q", in, got, want)
		}
	}
}

func TestObserveVoteCounts(t *testing.T) {
	Init()
	before := testutil.ToFloat64(VotesTotal.WithLabelValues("twitch", "accepted"))
	ObserveVote("TWITCH", "accepted")
	ObserveVote("twitch", "accepted")
	after := testutil.ToFloat64(VotesTotal.WithLabelValues("twitch", "accepted"))
	if after-before != 2 {
		t.Fatalf("expected +2, got %v", after-before)
	}
}

func TestSetRoundState(t *testing.T) {
	Init()
	SetRoundState(7, true, 12)
	if v := testutil.ToFloat64(RoundNumber); v != 7 {
		t.Errorf("round number %v", v)
	}
	if v := testutil.ToFloat64(RoundOpen); v != 1 {
		t.Errorf("round open %v", v)
	}
	SetRoundState(7, false, 0)
	if v := testutil.ToFloat64(RoundOpen); v != 0 {
		t.Errorf("round open after close %v", v)
	}
	if v := testutil.ToFloat64(RoundVotes); v != 0 {
		t.Errorf("round votes %v", v)
	}
}

func TestCorrelationRoundTrip(t *testing.T) {
	ctx := WithCorrelation(context.Background(), "abc")
	if got := GetCorrelation(ctx); got != "abc" {
		t.Fatalf("got %q", got)
	}
	if got := GetCorrelation(context.Background()); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
