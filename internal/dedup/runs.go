package dedup

import (
	"context"
	"database/sql"
	"time"
)

// RunRecord captures the outcome of one completed run.
type RunRecord struct {
	ID               string
	Root             string
	StartedAt        time.Time
	FinishedAt       time.Time
	DryRun           bool
	Cancelled        bool
	Processed        int
	SkippedDuplicate int
	SkippedSmall     int
	Errored          int
	OriginalBytes    int64
	FinalBytes       int64
	Reconciled       bool
	EntriesDeleted   int
}

// RecordRun stores a run summary.
func (s *Store) RecordRun(ctx context.Context, run RunRecord) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO runs (
			id, root, started_at, finished_at, dry_run, cancelled,
			processed, skipped_duplicate, skipped_small, errored,
			original_bytes, final_bytes, reconciled, entries_deleted
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.Root,
			run.StartedAt.UTC().Format(timeLayout), run.FinishedAt.UTC().Format(timeLayout),
			run.DryRun, run.Cancelled,
			run.Processed, run.SkippedDuplicate, run.SkippedSmall, run.Errored,
			run.OriginalBytes, run.FinalBytes, run.Reconciled, run.EntriesDeleted,
		)
		return err
	})
	if err != nil {
		return storeErr("record run", run.ID, err)
	}
	return nil
}

// Runs returns up to limit run summaries, newest first. A limit <= 0 returns all.
func (s *Store) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	var runs []RunRecord
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		runs = runs[:0]
		rows, err := tx.QueryContext(ctx, `SELECT
			id, root, started_at, finished_at, dry_run, cancelled,
			processed, skipped_duplicate, skipped_small, errored,
			original_bytes, final_bytes, reconciled, entries_deleted
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				run               RunRecord
				started, finished string
			)
			if err := rows.Scan(
				&run.ID, &run.Root, &started, &finished, &run.DryRun, &run.Cancelled,
				&run.Processed, &run.SkippedDuplicate, &run.SkippedSmall, &run.Errored,
				&run.OriginalBytes, &run.FinalBytes, &run.Reconciled, &run.EntriesDeleted,
			); err != nil {
				return err
			}
			run.StartedAt = parseTime(started)
			run.FinishedAt = parseTime(finished)
			runs = append(runs, run)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, storeErr("runs", "list runs", err)
	}
	return runs, nil
}
