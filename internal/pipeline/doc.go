// Package pipeline drives a compression run: it discovers images under a
// root, processes each through the per-file state machine on a bounded
// worker pool, aggregates statistics, and reconciles the dedup store once
// all workers have joined.
//
// The Orchestrator owns the per-file decisions (skip, dedup, search,
// validate, commit). The Runner owns concurrency, run identity and the
// post-run reconciliation.
package pipeline
