// Package services defines shared utilities consumed by the compression
// pipeline and its collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, file paths, and per-file states for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into per-file errors (transient, encode, tool) versus run-fatal ones
//     (store, configuration).
//
// Use these helpers when wiring new components so operational behaviour (error
// handling, observability) stays uniform across the pipeline.
package services
