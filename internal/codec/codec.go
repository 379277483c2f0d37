package codec

import (
	"context"
	"errors"

	"squeeze/internal/fileutil"
	"squeeze/internal/imagefmt"
	"squeeze/internal/services"
)

var (
	// ErrToolUnavailable marks an encoder whose binary cannot be resolved or started.
	ErrToolUnavailable = services.ErrToolUnavailable
	// ErrEncodeFailed marks a tool that ran but produced no usable output.
	ErrEncodeFailed = services.ErrEncodeFailure
	// ErrUnsupported marks an operation the encoder does not offer for a format.
	ErrUnsupported = errors.New("operation unsupported by encoder")
)

// Candidate is an encoded file written next to its source, awaiting a
// commit or discard decision.
type Candidate struct {
	Path    string
	Size    int64
	Quality int
	Encoder string
}

// Discard removes the candidate file.
func (c Candidate) Discard() error {
	return fileutil.RemoveQuietly(c.Path)
}

// Encoder produces candidates from a source image without modifying it.
type Encoder interface {
	// Name identifies the encoder in logs and reports.
	Name() string
	// Convert runs the lossless step that prepares format for its quality
	// ladder. Formats without one return ErrUnsupported.
	Convert(ctx context.Context, src string, format imagefmt.Format) (Candidate, error)
	// Encode re-encodes src at quality, 1..100.
	Encode(ctx context.Context, src string, format imagefmt.Format, quality int) (Candidate, error)
}

// SourceReleaser is implemented by encoders that keep per-source state
// between calls. ReleaseSource is called once no further calls for src follow.
type SourceReleaser interface {
	ReleaseSource(src string)
}

func unsupported(component, operation string, format imagefmt.Format) error {
	return services.Wrap(services.ErrEncodeFailure, component, operation, format.String(), ErrUnsupported)
}
