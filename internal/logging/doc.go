// Package logging assembles structured slog loggers and formatting helpers used
// across squeeze.
//
// It owns the console and JSON handlers, the tee that mirrors CLI output into
// per-run JSON log files, and context-aware helpers that tag records with the
// run ID, the file being processed, and its quality search state.
package logging
