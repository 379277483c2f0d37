package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// pruneRunLogs deletes run logs in dir last modified more than retentionDays
// ago, never touching keep. Zero retention keeps everything. It returns the
// number of files removed.
func pruneRunLogs(logger *slog.Logger, dir string, retentionDays int, keep string) int {
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	matches, err := filepath.Glob(filepath.Join(dir, RunLogPattern))
	if err != nil {
		return 0
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	keep = filepath.Clean(keep)
	removed := 0
	for _, path := range matches {
		if filepath.Clean(path) == keep {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "old run log not removed", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check permissions on the log directory"),
				String(FieldImpact, "old run log stays on disk"),
			)
			continue
		}
		removed++
	}
	if removed > 0 && logger != nil {
		logger.Debug("run logs pruned",
			Int("removed", removed),
			Int("retention_days", retentionDays),
			String(FieldEventType, "log_pruned"),
		)
	}
	return removed
}
