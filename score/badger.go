package score

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

var scorePrefix = []byte("score:")

// BadgerLedger stores scores in an embedded Badger keyspace as
// "score:<username>" -> 8 byte big-endian uint64.
type BadgerLedger struct {
	db *badger.DB
	// Award is read-modify-write; serializing it avoids badger.ErrConflict
	// between concurrent award calls.
	mu    sync.Mutex
	owned bool
}

// NewBadgerLedger wraps an already opened database. Close leaves it open.
func NewBadgerLedger(db *badger.DB) *BadgerLedger {
	return &BadgerLedger{db: db}
}

// OpenBadger opens (or creates) a ledger under dir. An empty dir opens an
// in-memory store that is lost on Close.
func OpenBadger(dir string) (*BadgerLedger, error) {
	opts := badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger score store: %w", err)
	}
	return &BadgerLedger{db: db, owned: true}, nil
}

// Close releases the database when the ledger opened it.
func (l *BadgerLedger) Close() error {
	if !l.owned {
		return nil
	}
	return l.db.Close()
}

func scoreKey(username string) []byte {
	return append(append([]byte{}, scorePrefix...), username...)
}

func readScore(txn *badger.Txn, key []byte) (int64, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var s int64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("corrupt score value for %q", key)
		}
		s = int64(binary.BigEndian.Uint64(val))
		return nil
	})
	return s, err
}

// Award increments all voters in a single Badger transaction.
func (l *BadgerLedger) Award(_ context.Context, voters []string, points int) error {
	users, err := awardSet(voters, points)
	if err != nil || len(users) == 0 {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	err = l.db.Update(func(txn *badger.Txn) error {
		for _, u := range users {
			key := scoreKey(u)
			cur, err := readScore(txn, key)
			if err != nil {
				return err
			}
			val := make([]byte, 8)
			binary.BigEndian.PutUint64(val, uint64(cur+int64(points)))
			if err := txn.Set(key, val); err != nil {
				return err
			}
		}
		return nil
	})
	return storageErr("award", err)
}

// TopScores scans every score and sorts in memory.
func (l *BadgerLedger) TopScores(_ context.Context, limit int) ([]Entry, error) {
	out := make([]Entry, 0)
	if limit <= 0 {
		return out, nil
	}
	err := l.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(scorePrefix); it.ValidForPrefix(scorePrefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			s, err := readScore(txn, key)
			if err != nil {
				return err
			}
			out = append(out, Entry{Username: string(key[len(scorePrefix):]), Score: s})
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("top scores", err)
	}
	sortEntries(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Score returns the stored score for username.
func (l *BadgerLedger) Score(_ context.Context, username string) (int64, error) {
	var s int64
	err := l.db.View(func(txn *badger.Txn) error {
		var err error
		s, err = readScore(txn, scoreKey(username))
		return err
	})
	return s, storageErr("score "+username, err)
}

// Ping fails once the database has been closed.
func (l *BadgerLedger) Ping(context.Context) error {
	if l.db.IsClosed() {
		return storageErr("ping", errors.New("badger closed"))
	}
	return nil
}
