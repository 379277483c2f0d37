package search

// State names a step of the per-file compression state machine.
type State int

const (
	StateStart State = iota
	StateTryExternal
	StateTryFallback
	StateValidate
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateTryExternal:
		return "try_external"
	case StateTryFallback:
		return "try_fallback"
	case StateValidate:
		return "validate"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome tags the result of a search.
type Outcome int

const (
	// OutcomeNotSmaller means no candidate beat the original; nothing is kept.
	OutcomeNotSmaller Outcome = iota
	// OutcomeCompressed means Result.Candidate is smaller than the original.
	OutcomeCompressed
	// OutcomeToolUnavailable means the encoder could not run; the file is
	// undecided and another encoder may try.
	OutcomeToolUnavailable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompressed:
		return "compressed"
	case OutcomeNotSmaller:
		return "not_smaller"
	case OutcomeToolUnavailable:
		return "tool_unavailable"
	default:
		return "unknown"
	}
}
