package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"loreline/internal/episode"
)

// consoleProgress prints per-chunk and per-episode lines to the terminal.
type consoleProgress struct {
	out      io.Writer
	colorize bool
}

func newConsoleProgress(out io.Writer, colorize bool) *consoleProgress {
	return &consoleProgress{out: out, colorize: colorize}
}

func (p *consoleProgress) UnitStarted(unit episode.Unit, chars, chunks int) {
	fmt.Fprintf(p.out, "\n%s\n", strings.Repeat("=", 60))
	fmt.Fprintf(p.out, "Processing Episode %d: %s\n", unit.Episode, unit.Title)
	fmt.Fprintf(p.out, "Transcript: %s chars\n", humanize.Comma(int64(chars)))
	fmt.Fprintf(p.out, "Chunks: %d\n", chunks)
}

func (p *consoleProgress) ChunkStarted(_ episode.Unit, chunk episode.Chunk) {
	fmt.Fprintf(p.out, "  Chunk %d/%d... ", chunk.Index, chunk.Count)
}

func (p *consoleProgress) ChunkFinished(_ episode.Unit, _ episode.Chunk, result episode.StepResult) {
	if result.Fallback {
		fmt.Fprintln(p.out, paint("FALLBACK", statusWarn, p.colorize))
		return
	}
	status := fmt.Sprintf("OK (%d segs)", len(result.Segments))
	if result.Salvaged {
		status += " salvaged"
	}
	fmt.Fprintln(p.out, paint(status, statusOK, p.colorize))
}

func (p *consoleProgress) UnitFinished(result episode.UnitResult) {
	if !result.OK() {
		switch {
		case errors.Is(result.Err, episode.ErrSourceMissing):
			fmt.Fprintf(p.out, "ERROR: %s not found. Run transcript extraction first.\n", result.InputPath)
		case errors.Is(result.Err, episode.ErrEmptySource):
			fmt.Fprintf(p.out, "ERROR: Empty transcript for episode %d\n", result.Episode)
		case result.Err != nil:
			fmt.Fprintf(p.out, "\nERROR: %v\n", result.Err)
		}
		fmt.Fprintf(p.out, "\n--- Episode %d %s ---\n", result.Episode, paint("FAILED", statusError, p.colorize))
		return
	}

	r := result.Report
	fmt.Fprintf(p.out, "\nEpisode %d complete!\n", result.Episode)
	fmt.Fprintf(p.out, "  Segments: %d\n", r.Segments)
	fmt.Fprintf(p.out, "  Speakers normalized: %d\n", r.Normalized)
	if r.Fallbacks > 0 {
		fmt.Fprintf(p.out, "  Fallback chunks: %s\n", paint(fmt.Sprint(r.Fallbacks), statusWarn, p.colorize))
	}
	fmt.Fprintf(p.out, "  Time: %.1f min\n", r.Elapsed.Minutes())
	fmt.Fprintf(p.out, "  Saved: %s\n", result.OutputPath)
	fmt.Fprintf(p.out, "\n--- Episode %d done: %d segments in %.1f min ---\n", result.Episode, r.Segments, r.Elapsed.Minutes())
}

func renderBatchSummary(results []episode.UnitResult, colorize bool) string {
	headers := []string{"Episode", "Title", "Status", "Segments", "Chars", "Chunks", "Minutes"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight}

	rows := make([][]string, 0, len(results))
	var segments, chars, completed int
	for _, r := range results {
		status := paint("OK", statusOK, colorize)
		if !r.OK() {
			status = paint("FAILED", statusError, colorize)
		} else {
			completed++
			segments += r.Report.Segments
			chars += r.Report.Chars
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", r.Episode),
			r.Title,
			status,
			fmt.Sprintf("%d", r.Report.Segments),
			humanize.Comma(int64(r.Report.Chars)),
			fmt.Sprintf("%d", r.Report.Chunks),
			fmt.Sprintf("%.1f", r.Report.Elapsed.Minutes()),
		})
	}
	footer := []string{
		"Total",
		fmt.Sprintf("%d of %d episodes", completed, len(results)),
		"",
		fmt.Sprintf("%d", segments),
		humanize.Comma(int64(chars)),
		"",
		"",
	}
	return "=== Batch Summary ===\n" + renderTableWithFooter(headers, rows, footer, aligns)
}
