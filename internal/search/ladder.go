package search

import (
	"squeeze/internal/config"
	"squeeze/internal/imagefmt"
)

// Ladder is a descending quality sequence: Start, Start-Step, ... while the
// quality stays at or above Floor.
type Ladder struct {
	Start int
	Step  int
	Floor int
}

// Qualities lists the ladder's quality levels in order.
func (l Ladder) Qualities() []int {
	if l.Step <= 0 || l.Start < 1 {
		return nil
	}
	floor := max(l.Floor, 1)
	out := make([]int, 0, l.MaxAttempts())
	for q := l.Start; q >= floor; q -= l.Step {
		out = append(out, q)
	}
	return out
}

// MaxAttempts bounds encoder invocations on the ladder: (start-floor)/step+1.
func (l Ladder) MaxAttempts() int {
	if l.Step <= 0 || l.Start < max(l.Floor, 1) {
		return 0
	}
	return (l.Start-max(l.Floor, 1))/l.Step + 1
}

// Ladders maps formats to their quality ladders.
type Ladders map[imagefmt.Format]Ladder

// LaddersFromConfig builds the per-format ladders from cfg.
func LaddersFromConfig(cfg *config.Config) Ladders {
	conv := func(l config.Ladder) Ladder { return Ladder{Start: l.Start, Step: l.Step, Floor: l.Floor} }
	return Ladders{
		imagefmt.JPEG: conv(cfg.Ladder.JPEG),
		imagefmt.WEBP: conv(cfg.Ladder.WEBP),
		imagefmt.PNG:  conv(cfg.Ladder.PNG),
	}
}
