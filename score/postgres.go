package score

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// PostgresLedger stores scores in the scores table (see db.Migrate).
type PostgresLedger struct {
	db *sql.DB
}

// NewPostgresLedger wraps an open pgx-backed *sql.DB.
func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

const upsertScore = `INSERT INTO scores (username, score, updated_at) VALUES ($1, $2, NOW())
	ON CONFLICT (username) DO UPDATE SET score = scores.score + EXCLUDED.score, updated_at = NOW()`

// Award increments all voters inside one transaction.
func (l *PostgresLedger) Award(ctx context.Context, voters []string, points int) error {
	users, err := awardSet(voters, points)
	if err != nil || len(users) == 0 {
		return err
	}
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("award begin", err)
	}
	for _, u := range users {
		if _, err := tx.ExecContext(ctx, upsertScore, u, points); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Warn("score rollback failed", slog.Any("err", rbErr), slog.String("component", "score"))
			}
			return storageErr("award "+u, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return storageErr("award commit", err)
	}
	return nil
}

// TopScores reads the leaderboard with the tie-break done by the query.
func (l *PostgresLedger) TopScores(ctx context.Context, limit int) ([]Entry, error) {
	out := make([]Entry, 0)
	if limit <= 0 {
		return out, nil
	}
	rows, err := l.db.QueryContext(ctx, `SELECT username, score FROM scores ORDER BY score DESC, username ASC LIMIT $1`, limit)
	if err != nil {
		return nil, storageErr("top scores", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", slog.Any("err", err))
		}
	}()
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Username, &e.Score); err != nil {
			return nil, storageErr("top scores scan", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("top scores", err)
	}
	return out, nil
}

// Score returns the stored score for username.
func (l *PostgresLedger) Score(ctx context.Context, username string) (int64, error) {
	var s int64
	err := l.db.QueryRowContext(ctx, `SELECT score FROM scores WHERE username = $1`, username).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, storageErr(fmt.Sprintf("score %s", username), err)
	}
	return s, nil
}

// Ping checks database connectivity.
func (l *PostgresLedger) Ping(ctx context.Context) error {
	return storageErr("ping", l.db.PingContext(ctx))
}
