package main

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"squeeze/internal/pipeline"
)

// runProgress shows a spinner with a running file count. Discovery is lazy,
// so the total is unknown up front.
type runProgress struct {
	bar *progressbar.ProgressBar
}

func newRunProgress(w io.Writer, enabled bool) *runProgress {
	if !enabled {
		return &runProgress{}
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("compressing"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
	)
	return &runProgress{bar: bar}
}

// observe is safe to call from worker goroutines.
func (p *runProgress) observe(res pipeline.FileResult) {
	if p.bar == nil {
		return
	}
	_ = p.bar.Add(1)
}

func (p *runProgress) finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}
