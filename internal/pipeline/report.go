package pipeline

import (
	"time"

	"squeeze/internal/dedup"
)

// Report summarises one run.
type Report struct {
	RunID      string
	Root       string
	DryRun     bool
	Workers    int
	Discovered int
	// StaleRemoved counts abandoned temporary candidates swept before discovery.
	StaleRemoved int
	Cancelled    bool
	// Aborted is set when a run-fatal error stopped the pool.
	Aborted    bool
	StartedAt  time.Time
	FinishedAt time.Time
	Stats      StatsSnapshot
	// Reconcile is nil when reconciliation was skipped.
	Reconcile *dedup.ReconcileReport
}

// Duration is the wall-clock time of the run.
func (r Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunRecord converts the report into its persisted form.
func (r Report) RunRecord() dedup.RunRecord {
	rec := dedup.RunRecord{
		ID:               r.RunID,
		Root:             r.Root,
		StartedAt:        r.StartedAt,
		FinishedAt:       r.FinishedAt,
		DryRun:           r.DryRun,
		Cancelled:        r.Cancelled || r.Aborted,
		Processed:        r.Stats.Processed,
		SkippedDuplicate: r.Stats.SkippedDuplicate,
		SkippedSmall:     r.Stats.SkippedSmall,
		Errored:          r.Stats.Errored,
		OriginalBytes:    r.Stats.OriginalBytes,
		FinalBytes:       r.Stats.FinalBytes,
	}
	if r.Reconcile != nil {
		rec.Reconciled = true
		rec.EntriesDeleted = r.Reconcile.Deleted
	}
	return rec
}
