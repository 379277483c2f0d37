package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"squeeze/internal/logging"
)

// ErrNoLogs is returned by Latest when the directory holds no run logs.
var ErrNoLogs = errors.New("no run logs found")

const maxLineBytes = 1024 * 1024

// Latest returns the most recent run log in dir. Run log names embed a
// fixed-width timestamp, so lexical order is chronological.
func Latest(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, logging.RunLogPattern))
	if err != nil {
		return "", fmt.Errorf("list run logs: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoLogs, dir)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// LastLines returns up to limit trailing lines of path and the offset of the
// end of the file. A limit <= 0 returns no lines, only the offset.
func LastLines(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	var ring []string
	if limit > 0 {
		ring = make([]string, 0, limit)
	}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if limit <= 0 {
			continue
		}
		if len(ring) == limit {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	offset, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}
	return ring, offset, nil
}

// Follow polls path every interval and calls emit for each complete line
// written after offset. A trailing partial line is held back until its
// newline arrives. It returns the context's error when ctx ends.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, emit func(string)) error {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		next, err := readComplete(path, offset, emit)
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// readComplete emits the whole lines between offset and the end of path and
// returns the offset after the last one. A truncated file restarts at zero.
func readComplete(path string, offset int64, emit func(string)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < offset {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return offset, nil
			}
			return offset, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		emit(line[:len(line)-1])
	}
}
