package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"SCORE_BACKEND", "ROUND_GRACE", "DEDUP_WINDOW", "MESSAGE_ID_TTL", "TALLY_INTERVAL", "LEADERBOARD_LIMIT", "INGEST_BUFFER", "BADGER_DIR"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ScoreBackend != BackendBadger {
		t.Errorf("backend = %q", cfg.ScoreBackend)
	}
	if cfg.RoundGrace != 5*time.Second || cfg.DedupWindow != time.Second || cfg.MessageIDTTL != time.Hour {
		t.Errorf("unexpected round defaults: %+v", cfg)
	}
	if cfg.LeaderboardLimit != 10 || cfg.IngestBuffer != 1024 {
		t.Errorf("unexpected int defaults: %+v", cfg)
	}
	if cfg.BadgerDir != "data/scores" {
		t.Errorf("badger dir = %q", cfg.BadgerDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestDurationForms(t *testing.T) {
	t.Setenv("ROUND_GRACE", "2.5")
	t.Setenv("DEDUP_WINDOW", "750ms")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.RoundGrace != 2500*time.Millisecond {
		t.Errorf("grace = %v", cfg.RoundGrace)
	}
	if cfg.DedupWindow != 750*time.Millisecond {
		t.Errorf("window = %v", cfg.DedupWindow)
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	t.Setenv("MESSAGE_ID_TTL", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed MESSAGE_ID_TTL")
	}
	t.Setenv("MESSAGE_ID_TTL", "")
	t.Setenv("INGEST_BUFFER", "lots")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed INGEST_BUFFER")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		t.Setenv("SCORE_BACKEND", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		return cfg
	}
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.ScoreBackend = "sqlite" }},
		{"zero window", func(c *Config) { c.DedupWindow = 0 }},
		{"negative grace", func(c *Config) { c.RoundGrace = -time.Second }},
		{"zero buffer", func(c *Config) { c.IngestBuffer = 0 }},
		{"token without bot", func(c *Config) { c.TwitchOAuthToken = "oauth:x"; c.TwitchBotUsername = "" }},
		{"refresh without client", func(c *Config) { c.YTRefreshToken = "r"; c.YTClientID = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestMemoryBadgerDir(t *testing.T) {
	t.Setenv("BADGER_DIR", ":memory:")
	cfg, _ := Load()
	if cfg.BadgerDir != "" {
		t.Errorf("expected in-memory dir, got %q", cfg.BadgerDir)
	}
}

func TestSourceEnablement(t *testing.T) {
	t.Setenv("TWITCH_CHANNEL", "#SomeChannel")
	t.Setenv("YOUTUBE_VIDEO_ID", "vid123")
	t.Setenv("YT_API_KEY", "")
	t.Setenv("YT_REFRESH_TOKEN", "")
	cfg, _ := Load()
	if cfg.TwitchChannel != "somechannel" || !cfg.TwitchEnabled() {
		t.Errorf("twitch channel = %q", cfg.TwitchChannel)
	}
	if cfg.YouTubeEnabled() {
		t.Errorf("youtube should need a credential")
	}
	cfg.YTAPIKey = "key"
	if !cfg.YouTubeEnabled() {
		t.Errorf("youtube should be enabled with api key")
	}
}
