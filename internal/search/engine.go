package search

import (
	"context"
	"errors"
	"log/slog"

	"squeeze/internal/codec"
	"squeeze/internal/imagefmt"
	"squeeze/internal/logging"
)

// Target describes the file being compressed.
type Target struct {
	Path   string
	Format imagefmt.Format
	Size   int64
}

// Result reports a finished search. Candidate is set only for
// OutcomeCompressed and is then owned by the caller.
type Result struct {
	Outcome   Outcome
	Candidate codec.Candidate
	Attempts  int
	Quality   int
	Encoder   string
}

// Engine runs quality ladders against a size ceiling.
type Engine struct {
	ladders Ladders
	ceiling int64
	logger  *slog.Logger
}

// NewEngine builds an engine targeting ceiling bytes.
func NewEngine(ladders Ladders, ceiling int64, logger *slog.Logger) *Engine {
	return &Engine{
		ladders: ladders,
		ceiling: ceiling,
		logger:  logging.NewComponentLogger(logger, "search"),
	}
}

// Search produces at most one candidate for target with enc. PNG sources
// first go through the encoder's lossless conversion; if that already meets
// the ceiling the ladder is skipped. On the ladder the first candidate at or
// under the ceiling wins, otherwise the smallest one produced. The winner is
// kept only when strictly smaller than the original. Every other candidate is
// deleted before Search returns.
//
// A missing tool yields OutcomeToolUnavailable with a nil error. Encode
// failures and cancellation are returned as errors.
func (e *Engine) Search(ctx context.Context, enc codec.Encoder, target Target) (Result, error) {
	logger := logging.WithContext(ctx, e.logger)
	s := &session{ceiling: e.ceiling}
	defer s.cleanup()
	if r, ok := enc.(codec.SourceReleaser); ok {
		defer r.ReleaseSource(target.Path)
	}

	if target.Format == imagefmt.PNG {
		cand, err := enc.Convert(ctx, target.Path, target.Format)
		switch {
		case err == nil:
			s.attempts++
			s.offer(cand)
		case errors.Is(err, codec.ErrUnsupported):
		case errors.Is(err, codec.ErrToolUnavailable):
			return s.unavailable(enc), nil
		default:
			s.attempts++
			return Result{Attempts: s.attempts, Encoder: enc.Name()}, err
		}
		if s.met && s.best.Size < target.Size {
			logger.Debug("conversion met ceiling", logging.Int64("candidate_bytes", s.best.Size))
			return s.accept(target, enc), nil
		}
	}

	ladder, ok := e.ladders[target.Format]
	if !ok {
		return s.accept(target, enc), nil
	}
	for _, quality := range ladder.Qualities() {
		if s.met {
			break
		}
		if err := ctx.Err(); err != nil {
			return Result{Attempts: s.attempts, Encoder: enc.Name()}, err
		}
		cand, err := enc.Encode(ctx, target.Path, target.Format, quality)
		if errors.Is(err, codec.ErrUnsupported) {
			break
		}
		if errors.Is(err, codec.ErrToolUnavailable) {
			return s.unavailable(enc), nil
		}
		s.attempts++
		if err != nil {
			return Result{Attempts: s.attempts, Encoder: enc.Name()}, err
		}
		logger.Debug("ladder step",
			logging.Int("quality", quality),
			logging.Int64("candidate_bytes", cand.Size),
			logging.Int64("ceiling_bytes", e.ceiling),
		)
		s.offer(cand)
	}
	return s.accept(target, enc), nil
}

// session tracks the single surviving candidate of one search.
type session struct {
	ceiling  int64
	best     *codec.Candidate
	met      bool
	attempts int
}

// offer keeps cand if it meets the ceiling first or is the smallest so far,
// deleting whichever candidate loses.
func (s *session) offer(cand codec.Candidate) {
	switch {
	case s.met:
		_ = cand.Discard()
	case cand.Size <= s.ceiling:
		s.replace(cand)
		s.met = true
	case s.best == nil || cand.Size < s.best.Size:
		s.replace(cand)
	default:
		_ = cand.Discard()
	}
}

func (s *session) replace(cand codec.Candidate) {
	if s.best != nil {
		_ = s.best.Discard()
	}
	s.best = &cand
}

func (s *session) accept(target Target, enc codec.Encoder) Result {
	res := Result{Outcome: OutcomeNotSmaller, Attempts: s.attempts, Encoder: enc.Name()}
	if s.best == nil || s.best.Size >= target.Size {
		return res
	}
	res.Outcome = OutcomeCompressed
	res.Candidate = *s.best
	res.Quality = s.best.Quality
	s.best = nil
	return res
}

func (s *session) unavailable(enc codec.Encoder) Result {
	return Result{Outcome: OutcomeToolUnavailable, Attempts: s.attempts, Encoder: enc.Name()}
}

func (s *session) cleanup() {
	if s.best != nil {
		_ = s.best.Discard()
		s.best = nil
	}
}
