package pipeline_test

import (
	"context"
	"os"
	"sync"
	"testing"

	"squeeze/internal/codec"
	"squeeze/internal/config"
	"squeeze/internal/dedup"
	"squeeze/internal/fileutil"
	"squeeze/internal/hashing"
	"squeeze/internal/imagefmt"
	"squeeze/internal/pipeline"
	"squeeze/internal/search"
	"squeeze/internal/services"
	"squeeze/internal/testsupport"
)

const mb = 1_000_000

// shrinkEncoder writes a prefix of the source whose length is a
// quality-dependent fraction of the original.
type shrinkEncoder struct {
	name  string
	ratio func(quality int) float64
	err   error
	// during runs inside the first Encode call, before err is returned.
	during func()

	mu    sync.Mutex
	once  sync.Once
	calls []string
}

func newShrinkEncoder(name string, ratio func(int) float64) *shrinkEncoder {
	return &shrinkEncoder{name: name, ratio: ratio}
}

// fixedRatio shrinks every candidate to r of the source.
func fixedRatio(r float64) func(int) float64 { return func(int) float64 { return r } }

func (e *shrinkEncoder) Name() string { return e.name }

func (e *shrinkEncoder) Convert(context.Context, string, imagefmt.Format) (codec.Candidate, error) {
	return codec.Candidate{}, services.Wrap(services.ErrEncodeFailure, e.name, "convert", "", codec.ErrUnsupported)
}

func (e *shrinkEncoder) Encode(_ context.Context, src string, _ imagefmt.Format, quality int) (codec.Candidate, error) {
	e.mu.Lock()
	e.calls = append(e.calls, src)
	e.mu.Unlock()
	if e.during != nil {
		e.once.Do(e.during)
	}
	if e.err != nil {
		return codec.Candidate{}, e.err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return codec.Candidate{}, err
	}
	n := int(float64(len(data)) * e.ratio(quality))
	out := make([]byte, n)
	copy(out, data)
	for i := len(data); i < n; i++ {
		out[i] = byte(quality)
	}
	path, err := fileutil.TempSibling(src)
	if err != nil {
		return codec.Candidate{}, err
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return codec.Candidate{}, err
	}
	return codec.Candidate{Path: path, Size: int64(n), Quality: quality, Encoder: e.name}, nil
}

func (e *shrinkEncoder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

type fixture struct {
	cfg    *config.Config
	root   string
	store  *dedup.Store
	hasher *hashing.Hasher
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithSizes(2*mb, 2*mb)}, opts...)...)
	root := t.TempDir()
	store := testsupport.MustOpenStore(t, cfg, root)
	hasher, err := hashing.New(cfg.Store.HashAlgorithm)
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{cfg: cfg, root: root, store: store, hasher: hasher}
}

func (f *fixture) orchestrator(external, fallback codec.Encoder, dryRun bool) *pipeline.Orchestrator {
	return pipeline.NewOrchestrator(pipeline.OrchestratorOptions{
		Index:    f.store,
		Hasher:   f.hasher,
		Engine:   search.NewEngine(search.LaddersFromConfig(f.cfg), f.cfg.Compression.TargetSizeBytes, nil),
		External: external,
		Fallback: fallback,
		MinSize:  f.cfg.Compression.MinSizeBytes,
		DryRun:   dryRun,
	})
}

func (f *fixture) runner(t *testing.T, external, fallback codec.Encoder) *pipeline.Runner {
	t.Helper()
	r, err := pipeline.NewRunner(f.cfg, f.store, nil, pipeline.WithEncoders(external, fallback))
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r
}

func (f *fixture) record(t *testing.T, path string) *pipeline.FileRecord {
	t.Helper()
	rec, err := pipeline.NewFileRecord(f.root, path)
	if err != nil {
		t.Fatalf("NewFileRecord: %v", err)
	}
	return rec
}

func (f *fixture) lookup(t *testing.T, fp hashing.Fingerprint) (dedup.PathSet, bool) {
	t.Helper()
	paths, ok, err := f.store.Lookup(context.Background(), fp)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	return paths, ok
}

func (f *fixture) hash(t *testing.T, path string) hashing.Fingerprint {
	t.Helper()
	fp, err := f.hasher.HashFile(context.Background(), path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	return fp
}

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	return info.Size()
}
