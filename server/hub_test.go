package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/onnwee/vote-tender/tally"
	"github.com/onnwee/vote-tender/vote"
)

func TestHubReplaysLatestAndFansOut(t *testing.T) {
	hub := NewHub()
	round := vote.NewRound()
	hub.Publish(tally.TallyEvent(round.Snapshot()))
	hub.Publish(tally.RoundEvent(round.State()))

	ch, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	// Round first, then tally.
	for _, want := range []tally.EventType{tally.EventRound, tally.EventTally} {
		var e tally.Event
		if err := json.Unmarshal(<-ch, &e); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if e.Type != want {
			t.Fatalf("got %q want %q", e.Type, want)
		}
	}

	hub.Publish(tally.LeaderboardEvent(nil))
	select {
	case b := <-ch:
		if !strings.Contains(string(b), `"type":"leaderboard"`) {
			t.Fatalf("unexpected event %s", b)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
	if hub.Subscribers() != 1 {
		t.Fatalf("subscribers = %d", hub.Subscribers())
	}
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub()
	_, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*4; i++ {
			hub.Publish(tally.TallyEvent(vote.Tally{}))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub()
	_, unsubscribe := hub.Subscribe()
	unsubscribe()
	if hub.Subscribers() != 0 {
		t.Fatalf("subscribers = %d", hub.Subscribers())
	}
}

func TestEventsStream(t *testing.T) {
	deps := newTestDeps(t, newTestLedger(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := httptest.NewServer(NewMux(ctx, deps))
	defer srv.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get /events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type %q", ct)
	}

	// Wait for the subscription before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for deps.Hub.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	deps.Control.Open()

	lines := make(chan string, 64)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatal("stream closed before round event")
			}
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var e tally.Event
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &e); err != nil {
				t.Fatalf("bad event %q: %v", line, err)
			}
			if e.Type == tally.EventRound && e.Round != nil && e.Round.Open {
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for round event")
		}
	}
}
