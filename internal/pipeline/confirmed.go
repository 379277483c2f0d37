package pipeline

import (
	"github.com/puzpuzpuz/xsync/v3"

	"squeeze/internal/hashing"
)

// FingerprintSet is a concurrent set of fingerprints confirmed by a run.
type FingerprintSet struct {
	m *xsync.MapOf[hashing.Fingerprint, struct{}]
}

// NewFingerprintSet returns an empty set.
func NewFingerprintSet() *FingerprintSet {
	return &FingerprintSet{m: xsync.NewMapOf[hashing.Fingerprint, struct{}]()}
}

// Add inserts fp.
func (s *FingerprintSet) Add(fp hashing.Fingerprint) {
	if fp == "" {
		return
	}
	s.m.Store(fp, struct{}{})
}

// Has implements dedup.FingerprintSet.
func (s *FingerprintSet) Has(fp hashing.Fingerprint) bool {
	_, ok := s.m.Load(fp)
	return ok
}

// Len returns the number of fingerprints.
func (s *FingerprintSet) Len() int {
	return s.m.Size()
}

// observedHashes remembers the latest fingerprint computed for each
// root-relative path during a run so reconciliation can skip re-hashing.
type observedHashes struct {
	m *xsync.MapOf[string, hashing.Fingerprint]
}

func newObservedHashes() *observedHashes {
	return &observedHashes{m: xsync.NewMapOf[string, hashing.Fingerprint]()}
}

func (o *observedHashes) store(rel string, fp hashing.Fingerprint) {
	if o == nil || fp == "" {
		return
	}
	o.m.Store(rel, fp)
}

func (o *observedHashes) load(rel string) (hashing.Fingerprint, bool) {
	if o == nil {
		return "", false
	}
	return o.m.Load(rel)
}

func (o *observedHashes) forget(rel string) {
	if o == nil {
		return
	}
	o.m.Delete(rel)
}
