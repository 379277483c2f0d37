package dedup

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"squeeze/internal/hashing"
	"squeeze/internal/services"
)

// ErrLocked indicates another process holds the store.
var ErrLocked = errors.New("store is in use by another run")

// Options configures Open.
type Options struct {
	// Path is the SQLite database file.
	Path string
	// Root is the absolute directory whose files the store indexes.
	Root string
	// Algorithm names the digest used for fingerprints.
	Algorithm string
}

// Store persists fingerprint → path-set entries backed by SQLite.
//
// Every logical operation runs under mu inside one immediate transaction, so
// lookup-then-register sequences issued through Claim are atomic with
// respect to other goroutines and other connections.
type Store struct {
	db        *sql.DB
	path      string
	root      string
	algorithm string
	lock      *flock.Flock
	mu        sync.Mutex
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	timeLayout              = "2006-01-02T15:04:05.000000000Z07:00"
)

// Open initializes or connects to the dedup database, taking an exclusive
// advisory lock on "<path>.lock" for the lifetime of the Store.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, storeErr("open", "store path not configured", nil)
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, storeErr("open", "resolve root", err)
	}
	algorithm := opts.Algorithm
	if algorithm == "" {
		algorithm = hashing.AlgorithmSHA256
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, storeErr("open", "create store directory", err)
	}

	lock := flock.New(opts.Path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, storeErr("open", "acquire lock", err)
	}
	if !locked {
		return nil, storeErr("open", opts.Path, ErrLocked)
	}

	db, err := sql.Open("sqlite", dsn(opts.Path))
	if err != nil {
		_ = lock.Unlock()
		return nil, storeErr("open", "open sqlite db", err)
	}

	store := &Store{db: db, path: opts.Path, root: root, algorithm: algorithm, lock: lock}
	if err := store.initSchema(ctx); err != nil {
		_ = store.Close()
		return nil, storeErr("open", "initialize schema", err)
	}
	return store, nil
}

// dsn applies the pragmas to every pooled connection rather than only the first.
func dsn(path string) string {
	params := url.Values{}
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "busy_timeout(5000)")
	params.Add("_pragma", "synchronous(NORMAL)")
	params.Set("_txlock", "immediate")
	return path + "?" + params.Encode()
}

// Close closes the database connection and releases the lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var err error
	if s.db != nil {
		err = s.db.Close()
	}
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
			err = unlockErr
		}
	}
	return err
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Root returns the directory the store indexes.
func (s *Store) Root() string { return s.root }

// Algorithm returns the digest bound to the store.
func (s *Store) Algorithm() string { return s.algorithm }

func storeErr(operation, message string, err error) error {
	return services.Wrap(services.ErrStore, "dedup", operation, message, err)
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// withTx runs fn inside one transaction under the store mutex, retrying the
// whole transaction while SQLite reports the database busy.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

func now() string {
	return time.Now().UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
