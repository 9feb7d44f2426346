package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	"loreline/internal/episode"
	"loreline/internal/history"
)

func TestRenderStatusLine(t *testing.T) {
	plain := renderStatusLine("Input directory", statusOK, "/data (read ok)", false)
	if plain != "  Input directory:     [OK] /data (read ok)" {
		t.Fatalf("unexpected line %q", plain)
	}
	colored := renderStatusLine("Input directory", statusError, "", true)
	if !strings.HasPrefix(colored, "\x1b[31m") || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected red line, got %q", colored)
	}
}

func TestRenderBatchSummaryTotals(t *testing.T) {
	results := []episode.UnitResult{
		{Episode: 1, Title: "One", Status: history.StatusCompleted, Report: episode.Report{Segments: 40, Chars: 25000, Chunks: 3, Elapsed: 90 * time.Second}},
		{Episode: 2, Title: "Two", Status: history.StatusFailed, Err: errors.New("missing")},
		{Episode: 3, Title: "Three", Status: history.StatusCompleted, Report: episode.Report{Segments: 2, Chars: 1000, Chunks: 1}},
	}
	out := renderBatchSummary(results, false)
	for _, want := range []string{"Batch Summary", "FAILED", "25,000", "2 of 3 episodes", "42", "26,000", "1.5"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestTruncateAndShortRunID(t *testing.T) {
	if got := truncate("héllo world", 5); got != "héllo..." {
		t.Fatalf("unexpected truncate %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("unexpected truncate %q", got)
	}
	if got := shortRunID("0123456789abcdef"); got != "01234567" {
		t.Fatalf("unexpected run id %q", got)
	}
}
