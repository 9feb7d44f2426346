package episode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"loreline/internal/extract"
	"loreline/internal/history"
)

type dirLocator struct {
	in, out string
}

func (l dirLocator) InputPath(ep int) string {
	return filepath.Join(l.in, fmt.Sprintf("campaign4-raw-ep%d.json", ep))
}

func (l dirLocator) OutputPath(ep int) string {
	return filepath.Join(l.out, fmt.Sprintf("campaign4-episode%d.json", ep))
}

type memoryRecorder struct {
	entries []history.Entry
	err     error
}

func (m *memoryRecorder) Record(_ context.Context, entry history.Entry) error {
	m.entries = append(m.entries, entry)
	return m.err
}

type finishedProgress struct {
	NopProgress
	finished []UnitResult
}

func (p *finishedProgress) UnitFinished(result UnitResult) {
	p.finished = append(p.finished, result)
}

func newTestRunner(t *testing.T, locator Locator, opts ...RunnerOption) *Runner {
	t.Helper()
	ex := extractFunc(func(_ context.Context, req extract.Request) (extract.Result, error) {
		return extract.Result{Segments: numberedRecords(req, 2, "LAURA"), Attempts: 1}, nil
	})
	asm := NewAssembler(ex, loadProfile(t), WithSleeper(func(time.Duration) {}))
	return NewRunner(asm, loadProfile(t), locator, opts...)
}

func TestRunnerContinuesPastMissingInput(t *testing.T) {
	locator := dirLocator{in: t.TempDir(), out: filepath.Join(t.TempDir(), "campaigns")}
	if err := os.WriteFile(locator.InputPath(3), []byte(`{"fullText":"Hello there.","publishDate":"2025-10-30"}`), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	recorder := &memoryRecorder{}
	progress := &finishedProgress{}
	runner := newTestRunner(t, locator, WithRecorder(recorder), WithRunProgress(progress), WithRunID("run-1"))

	results, err := runner.Run(context.Background(), []int{2, 3})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 2 || len(progress.finished) != 2 {
		t.Fatalf("expected two results, got %d/%d", len(results), len(progress.finished))
	}

	missing := results[0]
	if missing.OK() || !errors.Is(missing.Err, ErrSourceMissing) {
		t.Fatalf("expected missing-input failure, got %+v", missing)
	}
	if _, err := os.Stat(locator.OutputPath(2)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("no output expected for failed episode, stat err=%v", err)
	}

	done := results[1]
	if !done.OK() || done.Title != "The Snipping of Shears" || done.Report.Segments != 2 {
		t.Fatalf("unexpected result %+v", done)
	}
	data, err := os.ReadFile(locator.OutputPath(3))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	ep := doc["episode"].(map[string]any)
	if ep["air_date"] != "2025-10-30" || ep["duration_seconds"] != nil || ep["total_segments"].(float64) != 2 {
		t.Fatalf("unexpected episode header %v", ep)
	}
	if !strings.Contains(string(data), "\n  \"campaign\": {") {
		t.Fatalf("expected two-space indentation:\n%s", data)
	}

	if len(recorder.entries) != 2 {
		t.Fatalf("expected two history rows, got %d", len(recorder.entries))
	}
	if recorder.entries[0].Status != history.StatusFailed || recorder.entries[0].Error == "" || recorder.entries[0].OutputPath != "" {
		t.Fatalf("unexpected failure row %+v", recorder.entries[0])
	}
	if recorder.entries[1].Status != history.StatusCompleted || recorder.entries[1].RunID != "run-1" || recorder.entries[1].Normalized != 2 {
		t.Fatalf("unexpected success row %+v", recorder.entries[1])
	}
}

func TestRunnerIgnoresRecorderFailure(t *testing.T) {
	locator := dirLocator{in: t.TempDir(), out: t.TempDir()}
	if err := os.WriteFile(locator.InputPath(1), []byte(`{"fullText":"x"}`), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	runner := newTestRunner(t, locator, WithRecorder(&memoryRecorder{err: errors.New("disk full")}))
	results, err := runner.Run(context.Background(), []int{1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !results[0].OK() {
		t.Fatalf("recorder failure must not fail the episode: %+v", results[0])
	}
}

func TestRunnerGeneratesRunID(t *testing.T) {
	a := newTestRunner(t, dirLocator{})
	b := newTestRunner(t, dirLocator{})
	if a.RunID() == "" || a.RunID() == b.RunID() {
		t.Fatalf("expected distinct run ids, got %q and %q", a.RunID(), b.RunID())
	}
}

func TestRunnerStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := newTestRunner(t, dirLocator{in: t.TempDir(), out: t.TempDir()}).Run(ctx, []int{1, 2})
	if !errors.Is(err, context.Canceled) || len(results) != 0 {
		t.Fatalf("expected immediate cancellation, got %v results=%d", err, len(results))
	}
}

func TestWriteDocumentDisablesHTMLEscaping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "doc.json")
	doc := BuildDocument(loadProfile(t), Unit{Episode: 1, Title: "A & B <c>"}, Source{}, nil, 1)
	if err := WriteDocument(path, doc); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `"title": "A & B <c>"`) {
		t.Fatalf("expected unescaped title:\n%s", data)
	}
	if !strings.Contains(string(data), `"segments": []`) || !strings.Contains(string(data), `"air_date": null`) {
		t.Fatalf("expected empty segments and null air date:\n%s", data)
	}
}
