package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"squeeze/internal/codec"
	"squeeze/internal/config"
	"squeeze/internal/dedup"
	"squeeze/internal/hashing"
	"squeeze/internal/logging"
	"squeeze/internal/search"
	"squeeze/internal/services"
	"squeeze/internal/staging"
)

// staleCandidateAge is how old an abandoned temporary candidate must be
// before a run removes it.
const staleCandidateAge = time.Hour

// RunOptions tunes a single run.
type RunOptions struct {
	DryRun bool
	// Workers overrides the configured pool size when positive.
	Workers int
	// Progress is called once per finished file from worker goroutines.
	Progress func(FileResult)
}

// Runner executes compression runs against one store.
type Runner struct {
	cfg      *config.Config
	store    *dedup.Store
	hasher   *hashing.Hasher
	engine   *search.Engine
	external codec.Encoder
	fallback codec.Encoder
	logger   *slog.Logger
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithEncoders replaces the encoders built from configuration. A nil
// fallback disables it.
func WithEncoders(external, fallback codec.Encoder) RunnerOption {
	return func(r *Runner) {
		r.external = external
		r.fallback = fallback
	}
}

// NewRunner wires the hasher, search engine and encoders from cfg.
func NewRunner(cfg *config.Config, store *dedup.Store, logger *slog.Logger, opts ...RunnerOption) (*Runner, error) {
	hasher, err := hashing.New(store.Algorithm())
	if err != nil {
		return nil, err
	}
	r := &Runner{
		cfg:      cfg,
		store:    store,
		hasher:   hasher,
		engine:   search.NewEngine(search.LaddersFromConfig(cfg), cfg.Compression.TargetSizeBytes, logger),
		external: codec.ExternalFromConfig(cfg, logger),
		logger:   logging.NewComponentLogger(logger, "runner"),
	}
	if cfg.Compression.Fallback {
		r.fallback = codec.NewFallback()
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run processes every image under root on a bounded pool and reconciles the
// store once all workers have joined. Reconciliation is skipped for dry runs
// and for runs that were cancelled or aborted, since their confirmed set is
// incomplete. A run-fatal store error stops new files from starting and is
// returned alongside the partial report.
func (r *Runner) Run(ctx context.Context, root string, opts RunOptions) (Report, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return Report{}, services.Wrap(services.ErrConfiguration, "runner", "resolve root", root, err)
	}

	report := Report{
		RunID:     uuid.NewString(),
		Root:      absRoot,
		DryRun:    opts.DryRun,
		Workers:   opts.Workers,
		StartedAt: time.Now(),
	}
	if report.Workers <= 0 {
		report.Workers = r.cfg.WorkerCount()
	}
	ctx = services.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, r.logger)

	stats := &Stats{}
	observed := newObservedHashes()
	orch := NewOrchestrator(OrchestratorOptions{
		Index:     r.store,
		Hasher:    r.hasher,
		Engine:    r.engine,
		External:  r.external,
		Fallback:  r.fallback,
		MinSize:   r.cfg.Compression.MinSizeBytes,
		DryRun:    opts.DryRun,
		Confirmed: NewFingerprintSet(),
		Logger:    r.logger,
	})
	orch.observed = observed

	if !opts.DryRun {
		sweep := staging.CleanStale(ctx, absRoot, staleCandidateAge, logger)
		report.StaleRemoved = len(sweep.Removed)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(report.Workers)

	files, err := Discover(gctx, absRoot, DiscoverOptionsFromConfig(r.cfg, absRoot))
	if err != nil {
		return report, services.Wrap(services.ErrConfiguration, "runner", "discover", absRoot, err)
	}

	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("root", absRoot),
		logging.Int("workers", report.Workers),
		logging.Bool("dry_run", opts.DryRun),
	)

	var walkErr error
	for path, err := range files {
		if gctx.Err() != nil {
			break
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}
			if errors.Is(err, ErrRootUnreadable) {
				walkErr = err
				break
			}
			logging.WarnWithContext(logger, "directory walk error", "discover_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "entries below this path were skipped"),
			)
			stats.Record(FileResult{Action: ActionFailed, Err: err})
			continue
		}
		report.Discovered++
		g.Go(func() error {
			res := r.processPath(gctx, orch, absRoot, path)
			stats.Record(res)
			if opts.Progress != nil {
				opts.Progress(res)
			}
			if services.IsFatal(res.Err) {
				return res.Err
			}
			return nil
		})
	}
	runErr := g.Wait()
	if runErr == nil && walkErr != nil {
		runErr = services.Wrap(services.ErrConfiguration, "runner", "discover", absRoot, walkErr)
	}

	report.Stats = stats.Snapshot()
	report.Cancelled = ctx.Err() != nil
	report.Aborted = runErr != nil

	if !report.Aborted && !report.Cancelled && !opts.DryRun {
		confirmed := orch.Confirmed()
		logger.Debug("reconciling store",
			logging.Int("confirmed_fingerprints", confirmed.Len()),
		)
		rec, err := r.store.Reconcile(ctx, dedup.ReconcileOptions{
			Confirmed: confirmed,
			Root:      absRoot,
			Verify:    r.verifier(absRoot, observed),
		})
		switch {
		case err == nil:
			report.Reconcile = &rec
		case ctx.Err() != nil:
			report.Cancelled = true
		default:
			runErr = err
			report.Aborted = true
		}
	}
	report.FinishedAt = time.Now()

	if err := r.store.RecordRun(context.WithoutCancel(ctx), report.RunRecord()); err != nil {
		logging.WarnWithContext(logger, "run history not recorded", "run_record",
			logging.Error(err),
			logging.String(logging.FieldImpact, "squeeze history will not list this run"),
		)
	}

	logger.Info("run finished",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("processed", report.Stats.Processed),
		logging.Int("skipped_duplicate", report.Stats.SkippedDuplicate),
		logging.Int("skipped_small", report.Stats.SkippedSmall),
		logging.Int("errored", report.Stats.Errored),
		logging.Int64("original_bytes", report.Stats.OriginalBytes),
		logging.Int64("final_bytes", report.Stats.FinalBytes),
		logging.Bool("cancelled", report.Cancelled),
		logging.Duration("elapsed", report.Duration()),
	)
	return report, runErr
}

func (r *Runner) processPath(ctx context.Context, orch *Orchestrator, root, path string) FileResult {
	rec, err := NewFileRecord(root, path)
	if err != nil {
		rel, _ := filepath.Rel(root, path)
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "file vanished before processing", "file_failed",
			logging.Error(err),
			logging.String(logging.FieldFile, filepath.ToSlash(rel)),
		)
		return FileResult{RelPath: filepath.ToSlash(rel), Action: ActionFailed, Err: err}
	}
	return orch.Process(ctx, rec)
}

// verifier reuses fingerprints computed during the run and hashes any other
// stored path from disk.
func (r *Runner) verifier(root string, observed *observedHashes) dedup.VerifyFunc {
	return func(ctx context.Context, rel string) (hashing.Fingerprint, error) {
		if fp, ok := observed.load(rel); ok {
			return fp, nil
		}
		return r.hasher.HashFile(ctx, filepath.Join(root, filepath.FromSlash(rel)))
	}
}
