package pipeline_test

import (
	"fmt"
	"sync"
	"testing"

	"squeeze/internal/hashing"
	"squeeze/internal/pipeline"
)

func TestFingerprintSetConcurrentAdd(t *testing.T) {
	set := pipeline.NewFingerprintSet()
	var wg sync.WaitGroup
	for i := range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Pairs of workers confirm the same content.
			set.Add(hashing.Fingerprint(fmt.Sprintf("%064x", i/2)))
		}()
	}
	wg.Wait()
	set.Add("")

	if got := set.Len(); got != 32 {
		t.Fatalf("expected 32 fingerprints, got %d", got)
	}
	if !set.Has(hashing.Fingerprint(fmt.Sprintf("%064x", 31))) {
		t.Fatal("missing fingerprint")
	}
	if set.Has("") {
		t.Fatal("empty fingerprint must not be stored")
	}
}
