package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"squeeze/internal/config"
	"squeeze/internal/logging"
)

func writeAged(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q, got %+v", dir, result)
		}
	}
}

func TestCleanStaleRemovesOldCandidates(t *testing.T) {
	root := t.TempDir()

	old := filepath.Join(root, "album", ".a.jpg.squeeze-123.tmp")
	recent := filepath.Join(root, ".b.jpg.squeeze-456.tmp")
	photo := filepath.Join(root, "album", "a.jpg")
	lookalike := filepath.Join(root, "notes.squeeze-1.tmp")
	inStore := filepath.Join(root, config.StoreDirName, ".index.db.squeeze-9.tmp")

	writeAged(t, old, 2*time.Hour)
	writeAged(t, recent, time.Minute)
	writeAged(t, photo, 2*time.Hour)
	writeAged(t, lookalike, 2*time.Hour)
	writeAged(t, inStore, 2*time.Hour)

	result := CleanStale(context.Background(), root, time.Hour, logging.NewNop())

	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != old {
		t.Fatalf("expected only %s removed, got %v", old, result.Removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("stale candidate should be gone")
	}
	for _, keep := range []string{recent, photo, lookalike, inStore} {
		if _, err := os.Stat(keep); err != nil {
			t.Errorf("%s should still exist: %v", keep, err)
		}
	}
}

func TestCleanStaleStopsOnCancel(t *testing.T) {
	root := t.TempDir()
	stale := filepath.Join(root, ".a.jpg.squeeze-1.tmp")
	writeAged(t, stale, 2*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := CleanStale(ctx, root, time.Hour, logging.NewNop())
	if len(result.Removed) != 0 {
		t.Fatalf("expected nothing removed after cancellation, got %v", result.Removed)
	}
	if _, err := os.Stat(stale); err != nil {
		t.Fatalf("candidate removed despite cancellation: %v", err)
	}
}
