// Package hashing computes content fingerprints for image files.
//
// Fingerprints are 32-byte digests (sha256 by default, blake3 optionally)
// rendered as 64 lowercase hex characters. They key the dedup store, so the
// algorithm is fixed per store.
package hashing
