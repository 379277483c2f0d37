package staging

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"squeeze/internal/config"
	"squeeze/internal/fileutil"
	"squeeze/internal/logging"
)

// CleanStaleResult contains the outcome of a sweep.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes squeeze temporary files under root whose modification
// time is older than maxAge. The store directory is not entered. A missing
// root yields an empty result.
func CleanStale(ctx context.Context, root string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	root = strings.TrimSpace(root)
	if root == "" {
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path != root {
				result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && d.Name() == config.StoreDirName {
				return fs.SkipDir
			}
			return nil
		}
		if !fileutil.IsTempName(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			return nil
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}

		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale candidate", "staging_cleanup_failed",
				logging.String(logging.FieldFile, path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check directory permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			return nil
		}
		result.Removed = append(result.Removed, path)
		if logger != nil {
			logger.Info("removed stale candidate",
				logging.String(logging.FieldFile, path),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, "staging_cleanup"),
			)
		}
		return nil
	})
	if err != nil && ctx.Err() == nil && !os.IsNotExist(err) {
		result.Errors = append(result.Errors, CleanupError{Path: root, Error: err})
	}
	return result
}
