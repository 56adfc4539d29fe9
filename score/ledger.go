// Package score implements the durable per-user point ledger behind the
// leaderboard. Scores only ever grow. Two backends are provided: Postgres
// (shared deployments) and an embedded Badger keyspace (single host).
//
// Every Award call is applied atomically: either every named user gains the
// points or, on a storage failure, none of them do. The ledger does not guard
// against the same round being awarded twice; callers award each round once.
package score

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// ErrNegativePoints is returned when an award would lower a score.
var ErrNegativePoints = errors.New("score: points must not be negative")

// Entry is one leaderboard row.
type Entry struct {
	Username string `json:"username"`
	Score    int64  `json:"score"`
}

// Ledger is the storage-neutral score store.
type Ledger interface {
	// Award adds points to every voter. Duplicate and empty names are ignored.
	Award(ctx context.Context, voters []string, points int) error
	// TopScores returns at most limit entries, highest score first and ties
	// ordered by username.
	TopScores(ctx context.Context, limit int) ([]Entry, error)
	// Score returns a single user's score, zero when unknown.
	Score(ctx context.Context, username string) (int64, error)
	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}

// StorageError wraps a failure of the backing store. It is distinct from
// validation errors such as ErrNegativePoints.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "score: " + e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError reports whether err came from the backing store.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// awardSet validates points and returns the distinct non-empty voter names.
func awardSet(voters []string, points int) ([]string, error) {
	if points < 0 {
		return nil, ErrNegativePoints
	}
	if points == 0 {
		return nil, nil
	}
	names := lo.Map(voters, func(v string, _ int) string { return strings.TrimSpace(v) })
	return lo.Uniq(lo.Compact(names)), nil
}

func sortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Username, b.Username)
	})
}
