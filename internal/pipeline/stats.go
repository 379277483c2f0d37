package pipeline

import "sync"

// Stats aggregates per-file outcomes from concurrent workers. Counters only
// grow, so the totals do not depend on completion order.
type Stats struct {
	mu sync.Mutex
	s  StatsSnapshot
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Processed        int
	SkippedDuplicate int
	SkippedSmall     int
	Errored          int
	// WouldCompress counts dry-run misses.
	WouldCompress int
	OriginalBytes int64
	FinalBytes    int64
}

// Record folds one file result into the totals.
func (st *Stats) Record(res FileResult) {
	st.mu.Lock()
	defer st.mu.Unlock()
	switch res.Action {
	case ActionCompressed:
		st.s.Processed++
		st.s.OriginalBytes += res.OriginalSize
		st.s.FinalBytes += res.FinalSize
	case ActionSkippedDuplicate:
		st.s.SkippedDuplicate++
	case ActionSkippedSmall:
		st.s.SkippedSmall++
	case ActionFailed:
		st.s.Errored++
	case ActionWouldCompress:
		st.s.WouldCompress++
	}
}

// Snapshot returns the current totals.
func (st *Stats) Snapshot() StatsSnapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s
}

// SavedBytes is the byte reduction over processed files.
func (s StatsSnapshot) SavedBytes() int64 {
	return s.OriginalBytes - s.FinalBytes
}

// PercentSaved is (original-final)/original*100, or 0 when nothing was processed.
func (s StatsSnapshot) PercentSaved() float64 {
	if s.OriginalBytes <= 0 {
		return 0
	}
	return float64(s.OriginalBytes-s.FinalBytes) / float64(s.OriginalBytes) * 100
}

// Total counts every file that reached a decision.
func (s StatsSnapshot) Total() int {
	return s.Processed + s.SkippedDuplicate + s.SkippedSmall + s.Errored + s.WouldCompress
}
