package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"squeeze/internal/pipeline"
)

var countPrinter = message.NewPrinter(language.English)

func formatCount(n int) string {
	return countPrinter.Sprintf("%d", n)
}

func formatBytes(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}

func paint(colorize bool, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if colorize {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

func reportHeadline(report pipeline.Report, colorize bool) string {
	switch {
	case report.Aborted:
		return paint(colorize, color.FgRed, color.Bold).Sprint("Run aborted")
	case report.Cancelled:
		return paint(colorize, color.FgYellow, color.Bold).Sprint("Run cancelled")
	case report.DryRun:
		return paint(colorize, color.FgCyan, color.Bold).Sprint("Dry run complete")
	default:
		return paint(colorize, color.FgGreen, color.Bold).Sprint("Run complete")
	}
}

func renderReport(w io.Writer, report pipeline.Report, logPath string, colorize bool) {
	stats := report.Stats
	rows := [][]string{
		{"Directory", report.Root},
		{"Processed", formatCount(stats.Processed)},
		{"Skipped (duplicate)", formatCount(stats.SkippedDuplicate)},
		{"Skipped (small)", formatCount(stats.SkippedSmall)},
		{"Errored", formatCount(stats.Errored)},
	}
	if report.DryRun {
		rows = append(rows, []string{"Would compress", formatCount(stats.WouldCompress)})
	}
	rows = append(rows,
		[]string{"Original size", formatBytes(stats.OriginalBytes)},
		[]string{"Final size", formatBytes(stats.FinalBytes)},
		[]string{"Saved", fmt.Sprintf("%s (%.1f%%)", formatBytes(stats.SavedBytes()), stats.PercentSaved())},
		[]string{"Reconcile", reconcileSummary(report)},
		[]string{"Stale temp files removed", formatCount(report.StaleRemoved)},
		[]string{"Workers", formatCount(report.Workers)},
		[]string{"Duration", report.Duration().Round(time.Millisecond).String()},
		[]string{"Run ID", report.RunID},
	)
	if logPath != "" {
		rows = append(rows, []string{"Log file", logPath})
	}

	fmt.Fprintln(w, reportHeadline(report, colorize))
	fmt.Fprintln(w, renderTable(tableSpec{
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
		Aligns:  []columnAlignment{alignLeft, alignRight},
	}))
}

func reconcileSummary(report pipeline.Report) string {
	if report.Reconcile == nil {
		return "skipped"
	}
	r := report.Reconcile
	return countPrinter.Sprintf("%d checked, %d kept, %d rewritten, %d deleted", r.Checked, r.Kept, r.Rewritten, r.Deleted)
}
