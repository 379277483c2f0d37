package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"squeeze/internal/codec"
	"squeeze/internal/dedup"
	"squeeze/internal/fileutil"
	"squeeze/internal/hashing"
	"squeeze/internal/imagefmt"
	"squeeze/internal/logging"
	"squeeze/internal/metadata"
	"squeeze/internal/search"
	"squeeze/internal/services"
)

// ErrNotSmaller reports that no encoder produced a file smaller than the original.
var ErrNotSmaller = errors.New("no candidate smaller than the original")

// Action is the final disposition of one file.
type Action string

const (
	ActionCompressed       Action = "compressed"
	ActionSkippedSmall     Action = "skipped_small"
	ActionSkippedDuplicate Action = "skipped_duplicate"
	ActionFailed           Action = "failed"
	ActionWouldCompress    Action = "would_compress"
	ActionCancelled        Action = "cancelled"
)

// Attempt tracks the compression of one file within one run.
type Attempt struct {
	OriginalSize  int64
	CandidateSize int64
	Quality       int
	Metadata      []byte
	State         search.State
	Outcome       search.Outcome
	Encoder       string
	Invocations   int
}

// FileResult is the outcome of Orchestrator.Process.
type FileResult struct {
	RelPath      string
	Action       Action
	Format       imagefmt.Format
	Fingerprint  hashing.Fingerprint
	OriginalSize int64
	FinalSize    int64
	// Duplicates lists the paths already stored for the fingerprint on a dedup hit.
	Duplicates dedup.PathSet
	Attempt    Attempt
	Err        error
}

// Index is the part of the dedup store the orchestrator needs.
type Index interface {
	Lookup(ctx context.Context, fp hashing.Fingerprint) (dedup.PathSet, bool, error)
	Claim(ctx context.Context, fp hashing.Fingerprint, relPath string) (bool, dedup.PathSet, error)
	Register(ctx context.Context, fp hashing.Fingerprint, relPath string) error
	Release(ctx context.Context, fp hashing.Fingerprint, relPath string) error
}

// OrchestratorOptions wires an Orchestrator.
type OrchestratorOptions struct {
	Index    Index
	Hasher   *hashing.Hasher
	Engine   *search.Engine
	External codec.Encoder
	// Fallback runs when External reports its tool unavailable. Nil disables it.
	Fallback  codec.Encoder
	MinSize   int64
	DryRun    bool
	Confirmed *FingerprintSet
	Logger    *slog.Logger
}

// Orchestrator runs the per-file state machine.
type Orchestrator struct {
	index     Index
	hasher    *hashing.Hasher
	engine    *search.Engine
	external  codec.Encoder
	fallback  codec.Encoder
	minSize   int64
	dryRun    bool
	confirmed *FingerprintSet
	observed  *observedHashes
	logger    *slog.Logger
}

// NewOrchestrator builds an Orchestrator from opts.
func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	confirmed := opts.Confirmed
	if confirmed == nil {
		confirmed = NewFingerprintSet()
	}
	return &Orchestrator{
		index:     opts.Index,
		hasher:    opts.Hasher,
		engine:    opts.Engine,
		external:  opts.External,
		fallback:  opts.Fallback,
		minSize:   opts.MinSize,
		dryRun:    opts.DryRun,
		confirmed: confirmed,
		logger:    logging.NewComponentLogger(opts.Logger, "pipeline"),
	}
}

// Confirmed returns the fingerprints confirmed so far.
func (o *Orchestrator) Confirmed() *FingerprintSet { return o.confirmed }

// Process takes rec through skip, dedup, search, validate and commit.
// Cancellation is observed between those steps only. Errors isolated to the
// file come back in FileResult.Err with ActionFailed; run-fatal store errors
// are reported the same way and recognised with services.IsFatal.
func (o *Orchestrator) Process(ctx context.Context, rec *FileRecord) FileResult {
	res := FileResult{
		RelPath:      rec.RelPath,
		Format:       rec.Format,
		OriginalSize: rec.Size,
		FinalSize:    rec.Size,
		Attempt:      Attempt{OriginalSize: rec.Size, State: search.StateStart},
	}
	ctx = services.WithFile(ctx, rec.RelPath)
	logger := logging.WithContext(ctx, o.logger)

	if rec.Size < o.minSize {
		res.Action = ActionSkippedSmall
		logger.Debug("below minimum size", logging.Int64("original_bytes", rec.Size))
		return res
	}
	if err := ctx.Err(); err != nil {
		return cancelled(res, err)
	}

	format, err := imagefmt.Detect(rec.Path)
	if err != nil {
		return o.fail(logger, res, services.Wrap(services.ErrTransientFile, "pipeline", "detect format", rec.RelPath, err))
	}
	rec.Format, res.Format = format, format

	fp, err := rec.Fingerprint(ctx, o.hasher)
	if err != nil {
		return o.fail(logger, res, err)
	}
	res.Fingerprint = fp
	o.observed.store(rec.RelPath, fp)

	if o.dryRun {
		return o.preview(ctx, logger, res)
	}
	if err := ctx.Err(); err != nil {
		return cancelled(res, err)
	}

	hit, existing, err := o.index.Claim(ctx, fp, rec.RelPath)
	if err != nil {
		return o.fail(logger, res, err)
	}
	o.confirmed.Add(fp)
	if hit {
		res.Action = ActionSkippedDuplicate
		res.Duplicates = existing
		logger.Debug("duplicate content",
			logging.String("fingerprint", fp.String()),
			logging.Int("known_paths", len(existing)),
		)
		return res
	}

	return o.compress(ctx, logger, rec, res)
}

func (o *Orchestrator) preview(ctx context.Context, logger *slog.Logger, res FileResult) FileResult {
	paths, hit, err := o.index.Lookup(ctx, res.Fingerprint)
	if err != nil {
		return o.fail(logger, res, err)
	}
	if hit {
		res.Action = ActionSkippedDuplicate
		res.Duplicates = paths
		return res
	}
	res.Action = ActionWouldCompress
	logger.Info("would compress",
		logging.String(logging.FieldEventType, "dry_run"),
		logging.Int64("original_bytes", res.OriginalSize),
	)
	return res
}

func (o *Orchestrator) compress(ctx context.Context, logger *slog.Logger, rec *FileRecord, res FileResult) FileResult {
	blob, err := metadata.Extract(rec.Path, rec.Format)
	if err != nil {
		logging.WarnWithContext(logger, "metadata extraction failed", "metadata_extract",
			logging.Error(err),
			logging.String(logging.FieldImpact, "output may lack exif or color profile"),
		)
		blob = nil
	}
	res.Attempt.Metadata = blob

	target := search.Target{Path: rec.Path, Format: rec.Format, Size: rec.Size}
	found, err := o.runSearch(ctx, logger, &res.Attempt, target)
	if err != nil {
		return o.abandon(ctx, logger, res, err)
	}
	switch found.Outcome {
	case search.OutcomeToolUnavailable:
		return o.abandon(ctx, logger, res,
			services.Wrap(services.ErrToolUnavailable, "pipeline", "search", "no encoder could run", nil))
	case search.OutcomeNotSmaller:
		return o.notSmaller(logger, res)
	}

	cand := found.Candidate
	res.Attempt.State = search.StateValidate
	if err := ctx.Err(); err != nil {
		_ = cand.Discard()
		return o.abandon(ctx, logger, res, err)
	}
	if len(blob) > 0 {
		if err := metadata.Inject(cand.Path, rec.Format, blob); err != nil {
			logging.WarnWithContext(logger, "metadata injection failed", "metadata_inject",
				logging.Error(err),
				logging.String(logging.FieldImpact, "output written without original metadata"),
			)
		}
	}
	info, err := os.Stat(cand.Path)
	if err != nil {
		_ = cand.Discard()
		return o.abandon(ctx, logger, res, services.Wrap(services.ErrTransientFile, "pipeline", "validate", cand.Path, err))
	}
	res.Attempt.CandidateSize = info.Size()
	if info.Size() >= rec.Size {
		_ = cand.Discard()
		return o.notSmaller(logger, res)
	}

	if err := fileutil.ReplaceFile(cand.Path, rec.Path); err != nil {
		_ = cand.Discard()
		return o.abandon(ctx, logger, res, services.Wrap(services.ErrTransientFile, "pipeline", "commit", rec.RelPath, err))
	}
	res.Attempt.State = search.StateDone
	res.Action = ActionCompressed
	res.FinalSize = info.Size()

	// The file is committed; finish bookkeeping even if a stop was requested.
	commitCtx := context.WithoutCancel(ctx)
	newFP, err := o.hasher.HashFile(commitCtx, rec.Path)
	if err != nil {
		logging.WarnWithContext(logger, "committed file could not be re-hashed", "rehash",
			logging.Error(err),
			logging.String(logging.FieldImpact, "file will be hashed again next run"),
		)
		o.observed.forget(rec.RelPath)
	} else {
		if err := o.index.Register(commitCtx, newFP, rec.RelPath); err != nil {
			res.Err = err
			return res
		}
		o.confirmed.Add(newFP)
		o.observed.store(rec.RelPath, newFP)
	}

	logger.Info("compressed",
		logging.String(logging.FieldEventType, "file_compressed"),
		logging.String("encoder", res.Attempt.Encoder),
		logging.Int("quality", res.Attempt.Quality),
		logging.Int64("original_bytes", rec.Size),
		logging.Int64("final_bytes", res.FinalSize),
	)
	return res
}

// runSearch tries the external encoder, then the fallback when the external
// tool is unavailable.
func (o *Orchestrator) runSearch(ctx context.Context, logger *slog.Logger, att *Attempt, target search.Target) (search.Result, error) {
	var (
		found search.Result
		err   error
	)
	found.Outcome = search.OutcomeToolUnavailable
	if o.external != nil {
		att.State = search.StateTryExternal
		found, err = o.engine.Search(services.WithState(ctx, att.State.String()), o.external, target)
		att.Invocations += found.Attempts
	}
	if err == nil && found.Outcome == search.OutcomeToolUnavailable && o.fallback != nil {
		if err := ctx.Err(); err != nil {
			return found, err
		}
		logger.Info("external encoder unavailable, using fallback",
			logging.String(logging.FieldEventType, "fallback"),
		)
		att.State = search.StateTryFallback
		found, err = o.engine.Search(services.WithState(ctx, att.State.String()), o.fallback, target)
		att.Invocations += found.Attempts
	}
	att.Outcome = found.Outcome
	att.Encoder = found.Encoder
	att.Quality = found.Quality
	if found.Outcome == search.OutcomeCompressed {
		att.CandidateSize = found.Candidate.Size
	}
	return found, err
}

// notSmaller keeps the claim so content that cannot shrink is not retried.
func (o *Orchestrator) notSmaller(logger *slog.Logger, res FileResult) FileResult {
	res.Attempt.State = search.StateFailed
	res.Attempt.Outcome = search.OutcomeNotSmaller
	return o.fail(logger, res, services.Wrap(services.ErrEncodeFailure, "pipeline", "search", res.RelPath, ErrNotSmaller))
}

// abandon releases the claim so the content is retried next run.
func (o *Orchestrator) abandon(ctx context.Context, logger *slog.Logger, res FileResult, err error) FileResult {
	res.Attempt.State = search.StateFailed
	if relErr := o.index.Release(context.WithoutCancel(ctx), res.Fingerprint, res.RelPath); relErr != nil {
		return o.fail(logger, res, relErr)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return cancelled(res, err)
	}
	return o.fail(logger, res, err)
}

func (o *Orchestrator) fail(logger *slog.Logger, res FileResult, err error) FileResult {
	res.Action = ActionFailed
	res.Err = err
	res.FinalSize = res.OriginalSize
	if services.IsFatal(err) {
		logging.ErrorWithContext(logger, "store failure", "store_error",
			logging.Error(err),
			logging.ErrorKind(err),
			logging.String(logging.FieldErrorHint, "check the store path and disk space"),
		)
		return res
	}
	logging.WarnWithContext(logger, "file not compressed", "file_failed",
		logging.Error(err),
		logging.ErrorKind(err),
		logging.String(logging.FieldImpact, "original left unchanged"),
	)
	return res
}

func cancelled(res FileResult, err error) FileResult {
	res.Action = ActionCancelled
	res.Err = err
	res.FinalSize = res.OriginalSize
	return res
}
