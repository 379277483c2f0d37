package dedup

import (
	"context"
	"database/sql"
	"path/filepath"

	"squeeze/internal/hashing"
)

// FingerprintSet answers membership queries for fingerprints confirmed during a run.
type FingerprintSet interface {
	Has(fp hashing.Fingerprint) bool
}

// VerifyFunc reports the current fingerprint of a root-relative path.
type VerifyFunc func(ctx context.Context, relPath string) (hashing.Fingerprint, error)

// ReconcileOptions configures Reconcile.
type ReconcileOptions struct {
	// Confirmed holds the fingerprints seen by the completed run. Entries
	// outside it are deleted. Nil disables the rule.
	Confirmed FingerprintSet
	// Root overrides the directory stored paths are resolved against.
	Root string
	// Verify re-fingerprints a stored path. Nil hashes the file with the
	// store's algorithm.
	Verify VerifyFunc
}

// ReconcileReport summarises a reconciliation pass.
type ReconcileReport struct {
	Checked     int
	Kept        int
	Rewritten   int
	Deleted     int
	Unconfirmed int
	PathsPruned int
}

// Reconcile drops stored paths that no longer exist or no longer hash to
// their entry's fingerprint. Entries left without a valid path, and entries
// not in opts.Confirmed, are deleted. Entries whose paths all verify are left
// untouched. Afterwards every entry names at least one file that currently
// hashes to its key.
func (s *Store) Reconcile(ctx context.Context, opts ReconcileOptions) (ReconcileReport, error) {
	var report ReconcileReport

	root := opts.Root
	if root == "" {
		root = s.root
	}
	verify := opts.Verify
	if verify == nil {
		hasher, err := hashing.New(s.algorithm)
		if err != nil {
			return report, err
		}
		verify = func(ctx context.Context, relPath string) (hashing.Fingerprint, error) {
			return hasher.HashFile(ctx, filepath.Join(root, filepath.FromSlash(relPath)))
		}
	}

	entries, err := s.Entries(ctx)
	if err != nil {
		return report, err
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++

		if opts.Confirmed != nil && !opts.Confirmed.Has(entry.Fingerprint) {
			if err := s.deleteIfUnchanged(ctx, entry); err != nil {
				return report, err
			}
			report.Unconfirmed++
			report.Deleted++
			continue
		}

		valid := make(PathSet, 0, len(entry.Paths))
		for _, rel := range entry.Paths {
			fp, err := verify(ctx, rel)
			if err != nil && ctx.Err() != nil {
				return report, ctx.Err()
			}
			if err == nil && fp == entry.Fingerprint {
				valid = append(valid, rel)
			}
		}
		report.PathsPruned += len(entry.Paths) - len(valid)

		switch {
		case len(valid) == 0:
			if err := s.deleteIfUnchanged(ctx, entry); err != nil {
				return report, err
			}
			report.Deleted++
		case len(valid) < len(entry.Paths):
			if err := s.rewriteIfUnchanged(ctx, entry, valid); err != nil {
				return report, err
			}
			report.Rewritten++
		default:
			report.Kept++
		}
	}
	return report, nil
}

// deleteIfUnchanged removes entry unless it was modified after the snapshot was taken.
func (s *Store) deleteIfUnchanged(ctx context.Context, entry Entry) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, found, err := selectPaths(ctx, tx, entry.Fingerprint)
		if err != nil || !found || !current.Equal(entry.Paths) {
			return err
		}
		return deleteEntry(ctx, tx, entry.Fingerprint)
	})
	if err != nil {
		return storeErr("reconcile", "delete "+entry.Fingerprint.Short(), err)
	}
	return nil
}

// rewriteIfUnchanged replaces entry's paths with valid, keeping paths added concurrently.
func (s *Store) rewriteIfUnchanged(ctx context.Context, entry Entry, valid PathSet) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, found, err := selectPaths(ctx, tx, entry.Fingerprint)
		if err != nil || !found {
			return err
		}
		next := valid
		for _, p := range current {
			if !entry.Paths.Contains(p) {
				next, _ = next.Add(p)
			}
		}
		return updateEntry(ctx, tx, entry.Fingerprint, next)
	})
	if err != nil {
		return storeErr("reconcile", "rewrite "+entry.Fingerprint.Short(), err)
	}
	return nil
}
