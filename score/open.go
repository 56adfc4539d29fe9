package score

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/onnwee/vote-tender/config"
	"github.com/onnwee/vote-tender/db"
)

// Store is a ledger together with the resources it holds open.
type Store interface {
	Ledger
	io.Closer
}

type postgresStore struct {
	*PostgresLedger
	closer io.Closer
}

func (s postgresStore) Close() error { return s.closer.Close() }

// Open selects and opens the ledger backend named by cfg.ScoreBackend.
//
// The Postgres path runs database migrations using the dual-system approach:
// versioned migrations (golang-migrate) first, then the embedded idempotent
// schema when the versioned run fails.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.ScoreBackend {
	case config.BackendPostgres:
		database, err := db.Connect(ctx, cfg.DBDsn)
		if err != nil {
			return nil, err
		}
		slog.Info("running database migrations", slog.String("component", "db_migrate"))
		if err := db.RunMigrations(database); err != nil {
			slog.Warn("versioned migrations failed, attempting fallback to embedded SQL",
				slog.Any("err", err),
				slog.String("component", "db_migrate"))
			if err := db.Migrate(ctx, database); err != nil {
				_ = database.Close()
				return nil, fmt.Errorf("migrate score schema: %w", err)
			}
		}
		return postgresStore{PostgresLedger: NewPostgresLedger(database), closer: database}, nil
	case config.BackendBadger, "":
		l, err := OpenBadger(cfg.BadgerDir)
		if err != nil {
			return nil, err
		}
		if cfg.BadgerDir == "" {
			slog.Warn("badger score store is in-memory; scores are lost on restart", slog.String("component", "score"))
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unknown score backend %q", cfg.ScoreBackend)
	}
}
