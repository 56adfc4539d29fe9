// Command vote-tender runs the live chat vote aggregator.
// It:
//   - Loads configuration and initializes structured logging.
//   - Opens the score ledger (Badger by default, Postgres with migrations).
//   - Starts the ingest dispatcher and supervised chat sources (Twitch, YouTube).
//   - Publishes tally and leaderboard events on a fixed cadence.
//   - Exposes the HTTP API for the broadcaster overlay and the quiz orchestrator.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/onnwee/vote-tender/config"
	"github.com/onnwee/vote-tender/ingest"
	"github.com/onnwee/vote-tender/score"
	"github.com/onnwee/vote-tender/server"
	"github.com/onnwee/vote-tender/tally"
	"github.com/onnwee/vote-tender/telemetry"
	"github.com/onnwee/vote-tender/vote"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("vote-tender", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := score.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open score ledger", slog.Any("err", err), slog.String("backend", cfg.ScoreBackend))
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("failed to close score ledger", slog.Any("err", err))
		}
	}()

	round := vote.NewRound(
		vote.WithGrace(cfg.RoundGrace),
		vote.WithDedupWindow(cfg.DedupWindow),
		vote.WithMessageIDTTL(cfg.MessageIDTTL),
	)
	hub := server.NewHub()
	reporter := tally.NewReporter(round, store)
	control := server.NewController(round, store, reporter, hub, cfg.LeaderboardLimit)

	dispatcher := ingest.NewDispatcher(round, cfg.IngestBuffer, func(s vote.Submission, accepted bool, reason vote.Reason) {
		if accepted {
			control.Voted()
			return
		}
		slog.Debug("vote rejected", slog.String("source", s.Source), slog.String("user", s.Username), slog.String("reason", reason.String()))
	})

	sources, err := buildSources(ctx, cfg, control)
	if err != nil {
		slog.Error("failed to configure chat sources", slog.Any("err", err))
		os.Exit(1)
	}

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error { return reporter.Run(gctx, cfg.TallyInterval, cfg.LeaderboardLimit, hub) })
	if len(sources) > 0 {
		g.Go(func() error { return ingest.Supervise(gctx, dispatcher, sources...) })
	} else {
		slog.Info("no chat sources configured; accepting votes from POST /votes only")
	}
	g.Go(func() error {
		return server.Start(gctx, server.Deps{
			Config:   cfg,
			Round:    round,
			Ledger:   store,
			Reporter: reporter,
			Hub:      hub,
			Control:  control,
		}, cfg.HTTPAddr)
	})

	slog.Info("vote-tender started",
		slog.String("addr", cfg.HTTPAddr),
		slog.String("backend", cfg.ScoreBackend),
		slog.Int("sources", len(sources)))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("vote-tender exited with error", slog.Any("err", err))
		if cerr := store.Close(); cerr != nil {
			slog.Error("failed to close score ledger", slog.Any("err", cerr))
		}
		shutdown()
		os.Exit(1)
	}
	slog.Info("shutting down")
}

// buildSources returns the chat sources enabled by configuration.
func buildSources(ctx context.Context, cfg *config.Config, control *server.Controller) ([]ingest.Source, error) {
	var sources []ingest.Source
	if cfg.TwitchEnabled() {
		sources = append(sources, &ingest.TwitchSource{
			Channel:     cfg.TwitchChannel,
			BotUsername: cfg.TwitchBotUsername,
			OAuthToken:  cfg.TwitchOAuthToken,
			OnCommand: func(_ context.Context, command, user string) {
				if command != "reset" {
					return
				}
				st := control.Reset()
				slog.Info("round reset from chat", slog.String("user", user), slog.Uint64("round", st.Number))
			},
		})
	}
	if cfg.YouTubeEnabled() {
		svc, err := ingest.NewYouTubeService(ctx, cfg)
		if err != nil {
			return nil, err
		}
		sources = append(sources, &ingest.YouTubeSource{
			Service:   svc,
			VideoID:   cfg.YouTubeVideoID,
			ChannelID: cfg.YouTubeChannelID,
		})
	}
	return sources, nil
}
