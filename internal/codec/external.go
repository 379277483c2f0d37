package codec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"squeeze/internal/config"
	"squeeze/internal/deps"
	"squeeze/internal/fileutil"
	"squeeze/internal/imagefmt"
	"squeeze/internal/logging"
	"squeeze/internal/services"
)

var commandContext = exec.CommandContext

const (
	externalName   = "external"
	stderrTailSize = 512
)

// Tools names the binaries used per operation.
type Tools struct {
	JPEG        string
	WEBP        string
	PNGOptimize string
	PNGQuantize string
	OxipngLevel int
}

// External drives the command-line encoders.
type External struct {
	tools    Tools
	toolsDir string
	timeout  time.Duration
	logger   *slog.Logger
}

// ExternalOption customizes External.
type ExternalOption func(*External)

// WithToolsDir sets the directory searched before PATH.
func WithToolsDir(dir string) ExternalOption {
	return func(e *External) { e.toolsDir = dir }
}

// WithTimeout bounds each invocation; zero disables the bound.
func WithTimeout(timeout time.Duration) ExternalOption {
	return func(e *External) { e.timeout = timeout }
}

// WithLogger attaches a logger for tool invocations.
func WithLogger(logger *slog.Logger) ExternalOption {
	return func(e *External) { e.logger = logger }
}

// NewExternal constructs an External encoder.
func NewExternal(tools Tools, opts ...ExternalOption) *External {
	e := &External{tools: tools}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "codec")
	return e
}

// ExternalFromConfig wires tool names, directory, and timeout from cfg.
func ExternalFromConfig(cfg *config.Config, logger *slog.Logger) *External {
	return NewExternal(Tools{
		JPEG:        cfg.Tools.JPEG,
		WEBP:        cfg.Tools.WEBP,
		PNGOptimize: cfg.Tools.PNGOptimize,
		PNGQuantize: cfg.Tools.PNGQuantize,
		OxipngLevel: cfg.Tools.OxipngLevel,
	},
		WithToolsDir(cfg.Paths.ToolsDir),
		WithTimeout(time.Duration(cfg.Tools.TimeoutSeconds)*time.Second),
		WithLogger(logger),
	)
}

// Name implements Encoder.
func (e *External) Name() string { return externalName }

// Convert losslessly recompresses PNG sources with the optimizer.
func (e *External) Convert(ctx context.Context, src string, format imagefmt.Format) (Candidate, error) {
	if format != imagefmt.PNG {
		return Candidate{}, unsupported(externalName, "convert", format)
	}
	level := strconv.Itoa(e.tools.OxipngLevel)
	return e.run(ctx, e.tools.PNGOptimize, src, 0, func(out string) []string {
		return []string{"-o", level, "--strip", "safe", "--out", out, src}
	})
}

// Encode re-encodes src at quality with the format's ladder tool.
func (e *External) Encode(ctx context.Context, src string, format imagefmt.Format, quality int) (Candidate, error) {
	q := strconv.Itoa(quality)
	switch format {
	case imagefmt.JPEG:
		return e.run(ctx, e.tools.JPEG, src, quality, func(out string) []string {
			return []string{"-quality", q, "-outfile", out, src}
		})
	case imagefmt.WEBP:
		return e.run(ctx, e.tools.WEBP, src, quality, func(out string) []string {
			return []string{src, "-o", out, "-m", "6", "-q", q, "-metadata", "all"}
		})
	case imagefmt.PNG:
		return e.run(ctx, e.tools.PNGQuantize, src, quality, func(out string) []string {
			return []string{"--quality", "0-" + q, "--speed", "1", "--force", "--output", out, src}
		})
	default:
		return Candidate{}, unsupported(externalName, "encode", format)
	}
}

// run invokes tool writing into a fresh temp sibling of src. The invocation
// is detached from ctx cancellation so a stop request never kills an encode
// mid-write; only the configured timeout bounds it.
func (e *External) run(ctx context.Context, tool, src string, quality int, argv func(out string) []string) (Candidate, error) {
	operation := "run " + tool
	binary, err := deps.ResolveTool(e.toolsDir, tool)
	if err != nil {
		return Candidate{}, services.Wrap(services.ErrToolUnavailable, externalName, operation, tool, err)
	}

	out, err := fileutil.TempSibling(src)
	if err != nil {
		return Candidate{}, services.Wrap(services.ErrTransientFile, externalName, operation, "create temp output", err)
	}

	runCtx := context.WithoutCancel(ctx)
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, e.timeout)
		defer cancel()
	}

	args := argv(out)
	cmd := commandContext(runCtx, binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	started := time.Now()
	runErr := cmd.Run()

	logging.WithContext(ctx, e.logger).Debug("encoder invoked",
		logging.String("tool", filepath.Base(binary)),
		logging.Int("quality", quality),
		logging.Duration("elapsed", time.Since(started)),
		logging.Bool("ok", runErr == nil),
	)

	if runErr != nil {
		_ = fileutil.RemoveQuietly(out)
		return Candidate{}, classifyRunError(runCtx, operation, e.timeout, runErr, stderr.Bytes())
	}

	info, err := os.Stat(out)
	if err != nil || info.Size() == 0 {
		_ = fileutil.RemoveQuietly(out)
		return Candidate{}, services.Wrap(services.ErrEncodeFailure, externalName, operation, "tool produced no output", err)
	}
	return Candidate{Path: out, Size: info.Size(), Quality: quality, Encoder: externalName}, nil
}

func classifyRunError(runCtx context.Context, operation string, timeout time.Duration, err error, stderr []byte) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return services.Wrap(services.ErrToolUnavailable, externalName, operation, "start tool", err)
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrEncodeFailure, externalName, operation,
			fmt.Sprintf("killed after %s", timeout), services.ErrTimeout)
	}
	return services.Wrap(services.ErrEncodeFailure, externalName, operation, stderrTail(stderr), err)
}

func stderrTail(stderr []byte) string {
	text := strings.TrimSpace(string(stderr))
	if len(text) > stderrTailSize {
		text = "..." + text[len(text)-stderrTailSize:]
	}
	return text
}
