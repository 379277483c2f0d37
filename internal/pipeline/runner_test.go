package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"squeeze/internal/pipeline"
	"squeeze/internal/services"
	"squeeze/internal/testsupport"
)

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(t, testsupport.WithWorkers(4))
	for i := range 6 {
		testsupport.WriteRandomFile(t, filepath.Join(f.root, fmt.Sprintf("dir%d", i%2), fmt.Sprintf("img%d.jpg", i)), 3*mb, uint64(100+i))
	}
	// Candidates land between min size and the original so the second run
	// has to rely on dedup rather than the size threshold.
	enc := newShrinkEncoder("external", fixedRatio(0.9))
	runner := f.runner(t, enc, nil)

	first, err := runner.Run(context.Background(), f.root, pipeline.RunOptions{})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Stats.Processed != 6 || first.Stats.Errored != 0 {
		t.Fatalf("first run stats %+v", first.Stats)
	}
	if first.Reconcile == nil || first.Reconcile.Deleted != 6 {
		t.Fatalf("expected the six pre-compression claims to be pruned, got %+v", first.Reconcile)
	}
	calls := enc.callCount()

	second, err := runner.Run(context.Background(), f.root, pipeline.RunOptions{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Stats.Processed != 0 || second.Stats.SkippedDuplicate != 6 {
		t.Fatalf("second run stats %+v", second.Stats)
	}
	if enc.callCount() != calls {
		t.Fatal("second run invoked the encoder")
	}
	if second.Reconcile == nil || second.Reconcile.Kept != 6 || second.Reconcile.Deleted != 0 {
		t.Fatalf("second reconcile %+v", second.Reconcile)
	}
	if second.RunID == first.RunID {
		t.Fatal("run ids must differ")
	}
}

func TestRunSizeMonotonicity(t *testing.T) {
	f := newFixture(t)
	for i := range 5 {
		testsupport.WriteRandomFile(t, filepath.Join(f.root, fmt.Sprintf("%d.png", i)), int64(2*mb+i*200_000), uint64(200+i))
	}
	var mu sync.Mutex
	var results []pipeline.FileResult
	enc := newShrinkEncoder("external", func(q int) float64 { return 0.6 + float64(q)/200 })

	report, err := f.runner(t, enc, nil).Run(context.Background(), f.root, pipeline.RunOptions{
		Progress: func(res pipeline.FileResult) {
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 5 || report.Discovered != 5 {
		t.Fatalf("expected 5 progress callbacks, got %d", len(results))
	}
	var original, final int64
	for _, res := range results {
		if res.Action != pipeline.ActionCompressed {
			continue
		}
		if res.FinalSize >= res.OriginalSize {
			t.Fatalf("%s grew: %d -> %d", res.RelPath, res.OriginalSize, res.FinalSize)
		}
		if got := fileSize(t, filepath.Join(f.root, res.RelPath)); got != res.FinalSize {
			t.Fatalf("%s on disk %d, reported %d", res.RelPath, got, res.FinalSize)
		}
		original += res.OriginalSize
		final += res.FinalSize
	}
	if report.Stats.OriginalBytes != original || report.Stats.FinalBytes != final {
		t.Fatalf("stats %+v disagree with results (%d, %d)", report.Stats, original, final)
	}
	if report.Stats.PercentSaved() <= 0 {
		t.Fatalf("expected savings, got %.2f", report.Stats.PercentSaved())
	}
}

func TestRunConcurrentDuplicatesShareOneEntry(t *testing.T) {
	f := newFixture(t, testsupport.WithWorkers(8))
	src := filepath.Join(t.TempDir(), "src.jpg")
	testsupport.WriteRandomFile(t, src, 3*mb, 300)
	const copies = 10
	for i := range copies {
		testsupport.CopyFile(t, src, filepath.Join(f.root, fmt.Sprintf("c%02d", i), "same.jpg"))
	}
	fp := f.hash(t, src)

	enc := newShrinkEncoder("external", fixedRatio(0.5))
	report, err := f.runner(t, enc, nil).Run(context.Background(), f.root, pipeline.RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if report.Stats.Processed != 1 || report.Stats.SkippedDuplicate != copies-1 {
		t.Fatalf("stats %+v", report.Stats)
	}
	if enc.callCount() != 1 {
		t.Fatalf("content encoded %d times", enc.callCount())
	}

	// The compressed copy no longer hashes to the shared key and is pruned;
	// every untouched copy stays registered.
	paths, ok := f.lookup(t, fp)
	if !ok || len(paths) != copies-1 {
		t.Fatalf("shared entry paths = %v", paths)
	}
	for _, p := range paths {
		if fileSize(t, filepath.Join(f.root, p)) != 3*mb {
			t.Fatalf("%s listed under the original fingerprint but was modified", p)
		}
	}
}

func TestRunReconcilesDeletedFiles(t *testing.T) {
	f := newFixture(t)
	keep := filepath.Join(f.root, "keep.jpg")
	gone := filepath.Join(f.root, "gone.jpg")
	testsupport.WriteRandomFile(t, keep, 3*mb, 400)
	testsupport.WriteRandomFile(t, gone, 3*mb, 401)

	runner := f.runner(t, newShrinkEncoder("external", fixedRatio(0.9)), nil)
	if _, err := runner.Run(context.Background(), f.root, pipeline.RunOptions{}); err != nil {
		t.Fatal(err)
	}
	goneFP := f.hash(t, gone)
	keepFP := f.hash(t, keep)
	if err := os.Remove(gone); err != nil {
		t.Fatal(err)
	}

	report, err := runner.Run(context.Background(), f.root, pipeline.RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := f.lookup(t, goneFP); ok {
		t.Fatal("entry for deleted file survived reconciliation")
	}
	if paths, ok := f.lookup(t, keepFP); !ok || !paths.Contains("keep.jpg") {
		t.Fatalf("entry for unchanged file lost: %v", paths)
	}
	if report.Reconcile.Deleted != 1 || report.Reconcile.Kept != 1 {
		t.Fatalf("reconcile %+v", report.Reconcile)
	}
}

func TestRunCancelledSkipsReconcile(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteRandomFile(t, filepath.Join(f.root, "a.jpg"), 3*mb, 500)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.runner(t, newShrinkEncoder("external", fixedRatio(0.5)), nil).Run(ctx, f.root, pipeline.RunOptions{})
	if err != nil {
		t.Fatalf("cancellation is not a run error: %v", err)
	}
	if !report.Cancelled || report.Reconcile != nil {
		t.Fatalf("unexpected report %+v", report)
	}
	runs, err := f.store.Runs(context.Background(), 10)
	if err != nil || len(runs) != 1 || !runs[0].Cancelled || runs[0].Reconciled {
		t.Fatalf("run history %+v (%v)", runs, err)
	}
}

func TestRunDryRunLeavesStoreEmpty(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteRandomFile(t, filepath.Join(f.root, "a.jpg"), 3*mb, 600)
	testsupport.WriteRandomFile(t, filepath.Join(f.root, "small.jpg"), 1_000, 601)

	report, err := f.runner(t, newShrinkEncoder("external", fixedRatio(0.5)), nil).Run(context.Background(), f.root, pipeline.RunOptions{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if report.Stats.WouldCompress != 1 || report.Stats.SkippedSmall != 1 || report.Reconcile != nil {
		t.Fatalf("unexpected report %+v", report)
	}
	summary, err := f.store.Stats(context.Background())
	if err != nil || summary.Entries != 0 {
		t.Fatalf("dry run registered entries: %+v (%v)", summary, err)
	}
}

func TestRunMissingRoot(t *testing.T) {
	f := newFixture(t)
	_, err := f.runner(t, newShrinkEncoder("external", fixedRatio(0.5)), nil).Run(context.Background(), filepath.Join(f.root, "missing"), pipeline.RunOptions{})
	if !errors.Is(err, pipeline.ErrRootUnreadable) {
		t.Fatalf("expected ErrRootUnreadable, got %v", err)
	}
}

func TestRunSweepsStaleCandidates(t *testing.T) {
	f := newFixture(t)
	stale := filepath.Join(f.root, ".a.jpg.squeeze-77.tmp")
	testsupport.WriteBytes(t, stale, []byte("partial"))
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	enc := newShrinkEncoder("external", fixedRatio(0.5))
	report, err := f.runner(t, enc, nil).Run(context.Background(), f.root, pipeline.RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.StaleRemoved != 1 {
		t.Fatalf("expected 1 stale candidate removed, got %d", report.StaleRemoved)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale candidate still present: %v", err)
	}
}

func TestRunStoreFailureAborts(t *testing.T) {
	f := newFixture(t, testsupport.WithWorkers(1))
	sizes := map[string]int64{}
	for i := range 5 {
		path := filepath.Join(f.root, fmt.Sprintf("img%d.jpg", i))
		testsupport.WriteRandomFile(t, path, 3*mb, uint64(300+i))
		sizes[path] = 3 * mb
	}
	enc := newShrinkEncoder("external", fixedRatio(0.5))
	runner := f.runner(t, enc, nil)
	if err := f.store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	report, err := runner.Run(context.Background(), f.root, pipeline.RunOptions{Workers: 1})
	if !errors.Is(err, services.ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}
	if !report.Aborted {
		t.Fatal("expected the run to be marked aborted")
	}
	if report.Reconcile != nil {
		t.Fatalf("aborted run must not reconcile, got %+v", report.Reconcile)
	}
	if report.Discovered >= 5 {
		t.Fatalf("expected discovery to stop early, discovered %d", report.Discovered)
	}
	if enc.callCount() != 0 {
		t.Fatalf("encoder ran %d times after the store failed", enc.callCount())
	}
	for path, size := range sizes {
		if got := fileSize(t, path); got != size {
			t.Fatalf("%s changed size: %d", path, got)
		}
	}
}
