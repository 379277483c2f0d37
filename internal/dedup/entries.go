package dedup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"squeeze/internal/hashing"
)

// Entry is one stored fingerprint and the files known to carry it.
type Entry struct {
	Fingerprint hashing.Fingerprint
	Paths       PathSet
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Summary reports aggregate store contents.
type Summary struct {
	Path      string
	Root      string
	Algorithm string
	Entries   int
	Paths     int
	Runs      int
}

func checkFingerprint(fp hashing.Fingerprint) error {
	if !hashing.Valid(fp.String()) {
		return fmt.Errorf("invalid fingerprint %q", fp)
	}
	return nil
}

func selectPaths(ctx context.Context, tx *sql.Tx, fp hashing.Fingerprint) (PathSet, bool, error) {
	var raw []byte
	err := tx.QueryRowContext(ctx, `SELECT paths FROM entries WHERE fingerprint = ?`, fp.String()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	set, err := decodePathSet(raw)
	if err != nil {
		return nil, false, fmt.Errorf("decode paths for %s: %w", fp.Short(), err)
	}
	return set, true, nil
}

func insertEntry(ctx context.Context, tx *sql.Tx, fp hashing.Fingerprint, set PathSet) error {
	ts := now()
	_, err := tx.ExecContext(ctx,
		`INSERT INTO entries (fingerprint, paths, path_count, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		fp.String(), set.encode(), len(set), ts, ts,
	)
	return err
}

func updateEntry(ctx context.Context, tx *sql.Tx, fp hashing.Fingerprint, set PathSet) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE entries SET paths = ?, path_count = ?, updated_at = ? WHERE fingerprint = ?`,
		set.encode(), len(set), now(), fp.String(),
	)
	return err
}

func deleteEntry(ctx context.Context, tx *sql.Tx, fp hashing.Fingerprint) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE fingerprint = ?`, fp.String())
	return err
}

// Lookup returns the paths stored for fp and whether an entry exists.
func (s *Store) Lookup(ctx context.Context, fp hashing.Fingerprint) (PathSet, bool, error) {
	if err := checkFingerprint(fp); err != nil {
		return nil, false, storeErr("lookup", "validate fingerprint", err)
	}
	var (
		set   PathSet
		found bool
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		set, found, err = selectPaths(ctx, tx, fp)
		return err
	})
	if err != nil {
		return nil, false, storeErr("lookup", fp.Short(), err)
	}
	return set, found, nil
}

// Register merges relPath into the entry for fp, creating the entry when
// absent. Registering an already present path is a no-op.
func (s *Store) Register(ctx context.Context, fp hashing.Fingerprint, relPath string) error {
	_, _, err := s.upsert(ctx, "register", fp, relPath)
	return err
}

// Claim atomically looks fp up and registers relPath. On a hit the path is
// merged into the existing entry and the paths stored before the merge are
// returned; on a miss a new entry holding only relPath is created.
func (s *Store) Claim(ctx context.Context, fp hashing.Fingerprint, relPath string) (bool, PathSet, error) {
	return s.upsert(ctx, "claim", fp, relPath)
}

func (s *Store) upsert(ctx context.Context, operation string, fp hashing.Fingerprint, relPath string) (bool, PathSet, error) {
	if err := checkFingerprint(fp); err != nil {
		return false, nil, storeErr(operation, "validate fingerprint", err)
	}
	normalized, err := NormalizePath(relPath)
	if err != nil {
		return false, nil, storeErr(operation, "validate path", err)
	}

	var (
		hit      bool
		existing PathSet
	)
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		existing, hit, err = selectPaths(ctx, tx, fp)
		if err != nil {
			return err
		}
		if !hit {
			return insertEntry(ctx, tx, fp, NewPathSet(normalized))
		}
		merged, changed := existing.Add(normalized)
		if !changed {
			return nil
		}
		return updateEntry(ctx, tx, fp, merged)
	})
	if err != nil {
		return false, nil, storeErr(operation, fp.Short(), err)
	}
	return hit, existing, nil
}

// Release undoes a claim whose file failed transiently so the content is
// retried by the next run. Only relPath is removed; paths merged by other
// workers survive, and the entry is deleted once no path remains.
func (s *Store) Release(ctx context.Context, fp hashing.Fingerprint, relPath string) error {
	if err := checkFingerprint(fp); err != nil {
		return storeErr("release", "validate fingerprint", err)
	}
	normalized, err := NormalizePath(relPath)
	if err != nil {
		return storeErr("release", "validate path", err)
	}
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		existing, found, err := selectPaths(ctx, tx, fp)
		if err != nil || !found {
			return err
		}
		remaining, removed := existing.Remove(normalized)
		switch {
		case !removed:
			return nil
		case len(remaining) == 0:
			return deleteEntry(ctx, tx, fp)
		default:
			return updateEntry(ctx, tx, fp, remaining)
		}
	})
	if err != nil {
		return storeErr("release", fp.Short(), err)
	}
	return nil
}

// Entries returns every stored entry ordered by fingerprint.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		entries = entries[:0]
		rows, err := tx.QueryContext(ctx,
			`SELECT fingerprint, paths, created_at, updated_at FROM entries ORDER BY fingerprint`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				fp, created, updated string
				raw                  []byte
			)
			if err := rows.Scan(&fp, &raw, &created, &updated); err != nil {
				return err
			}
			set, err := decodePathSet(raw)
			if err != nil {
				return fmt.Errorf("decode paths for %s: %w", fp, err)
			}
			entries = append(entries, Entry{
				Fingerprint: hashing.Fingerprint(fp),
				Paths:       set,
				CreatedAt:   parseTime(created),
				UpdatedAt:   parseTime(updated),
			})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, storeErr("entries", "list entries", err)
	}
	return entries, nil
}

// Stats returns aggregate counts for diagnostic output.
func (s *Store) Stats(ctx context.Context) (Summary, error) {
	summary := Summary{Path: s.path, Root: s.root, Algorithm: s.algorithm}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1), COALESCE(SUM(path_count), 0) FROM entries`,
		).Scan(&summary.Entries, &summary.Paths); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM runs`).Scan(&summary.Runs)
	})
	if err != nil {
		return Summary{}, storeErr("stats", "aggregate", err)
	}
	return summary, nil
}
