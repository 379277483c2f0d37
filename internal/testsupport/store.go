package testsupport

import (
	"context"
	"testing"

	"squeeze/internal/config"
	"squeeze/internal/dedup"
)

// MustOpenStore opens the dedup store cfg selects for root and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, root string) *dedup.Store {
	t.Helper()

	store, err := dedup.Open(context.Background(), dedup.Options{
		Path:      cfg.StorePath(root),
		Root:      root,
		Algorithm: cfg.Store.HashAlgorithm,
	})
	if err != nil {
		t.Fatalf("dedup.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
