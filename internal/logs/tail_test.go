package logs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"squeeze/internal/logs"
)

func TestLatestPicksNewestRunLog(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"squeeze-20260101-080000.log", "squeeze-20260102-070000.log", "notes.log"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	got, err := logs.Latest(dir)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if want := filepath.Join(dir, "squeeze-20260102-070000.log"); got != want {
		t.Fatalf("Latest = %s, want %s", got, want)
	}

	if _, err := logs.Latest(t.TempDir()); !errors.Is(err, logs.ErrNoLogs) {
		t.Fatalf("expected ErrNoLogs, got %v", err)
	}
}

func TestLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "squeeze-run.log")
	content := "a\nb\nc\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	lines, offset, err := logs.LastLines(path, 2)
	if err != nil {
		t.Fatalf("LastLines: %v", err)
	}
	if len(lines) != 2 || lines[0] != "b" || lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if offset != int64(len(content)) {
		t.Fatalf("offset = %d, want %d", offset, len(content))
	}

	lines, _, err = logs.LastLines(path, 0)
	if err != nil || len(lines) != 0 {
		t.Fatalf("expected no lines for zero limit, got %#v (%v)", lines, err)
	}
}

func TestFollowEmitsCompleteLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "squeeze-run.log")
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	_, offset, err := logs.LastLines(path, 1)
	if err != nil {
		t.Fatalf("LastLines: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var (
		mu   sync.Mutex
		seen []string
	)
	got := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, 20*time.Millisecond, func(line string) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, line)
			if line == "later" {
				close(got)
			}
		})
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("lat"); err != nil {
		t.Fatalf("append partial: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if _, err := f.WriteString("er\n"); err != nil {
		t.Fatalf("append rest: %v", err)
	}
	_ = f.Close()

	select {
	case <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not see appended line")
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != "later" {
		t.Fatalf("unexpected lines: %#v", seen)
	}
}
