// Package dedup persists content fingerprints in SQLite so files that were
// already compressed, or already proven incompressible, are never processed
// again.
//
// Each entry maps a fingerprint to the set of root-relative paths known to
// carry those bytes. Claim performs lookup and registration atomically so
// concurrent workers hashing identical content never both compress it.
// Reconcile prunes paths that moved or changed and drops entries the latest
// run did not confirm, restoring the invariant that every entry names at
// least one file that currently hashes to its key.
//
// A store is bound to one root and one digest algorithm, recorded in
// store_meta, and is guarded by an advisory file lock so only one run uses it
// at a time. Schema changes bump schemaVersion in schema.go; users delete the
// database to adopt the new schema.
package dedup
