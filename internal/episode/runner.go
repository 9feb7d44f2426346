package episode

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"loreline/internal/campaign"
	"loreline/internal/history"
	"loreline/internal/logging"
)

// Locator resolves per-episode file locations.
type Locator interface {
	InputPath(episode int) string
	OutputPath(episode int) string
}

// Recorder persists per-episode outcomes.
type Recorder interface {
	Record(ctx context.Context, entry history.Entry) error
}

// UnitResult is the outcome of one episode in a batch.
type UnitResult struct {
	RunID      string
	Episode    int
	Title      string
	Status     history.Status
	Report     Report
	InputPath  string
	OutputPath string
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// OK reports whether the episode document was written.
func (r UnitResult) OK() bool {
	return r.Status == history.StatusCompleted
}

// Runner processes a batch of episodes one after another.
type Runner struct {
	assembler *Assembler
	profile   *campaign.Profile
	locator   Locator
	recorder  Recorder
	progress  Progress
	logger    *slog.Logger
	runID     string
	now       func() time.Time
}

// RunnerOption customizes the runner.
type RunnerOption func(*Runner)

// WithRecorder attaches a history recorder.
func WithRecorder(recorder Recorder) RunnerOption {
	return func(r *Runner) {
		r.recorder = recorder
	}
}

// WithRunProgress attaches a progress observer for unit completion events.
func WithRunProgress(progress Progress) RunnerOption {
	return func(r *Runner) {
		if progress != nil {
			r.progress = progress
		}
	}
}

// WithRunLogger attaches a logger.
func WithRunLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logging.NewComponentLogger(logger, "runner")
		}
	}
}

// WithRunID fixes the batch identifier instead of generating one.
func WithRunID(id string) RunnerOption {
	return func(r *Runner) {
		if id != "" {
			r.runID = id
		}
	}
}

// WithRunClock overrides the wall clock used for timestamps.
func WithRunClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRunner constructs a batch runner.
func NewRunner(assembler *Assembler, profile *campaign.Profile, locator Locator, opts ...RunnerOption) *Runner {
	r := &Runner{
		assembler: assembler,
		profile:   profile,
		locator:   locator,
		progress:  NopProgress{},
		logger:    logging.NewNop(),
		runID:     uuid.NewString(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunID returns the batch identifier attached to logs and history rows.
func (r *Runner) RunID() string {
	return r.runID
}

// Run processes episodes in order. A failing episode is reported and the
// batch moves on; only context cancellation stops the batch early, in which
// case the results gathered so far are returned with the context error.
func (r *Runner) Run(ctx context.Context, episodes []int) ([]UnitResult, error) {
	ctx = logging.WithRunID(ctx, r.runID)
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("batch started", logging.Int("episodes", len(episodes)))

	results := make([]UnitResult, 0, len(episodes))
	for _, ep := range episodes {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result := r.runUnit(logging.WithEpisode(ctx, ep), ep)
		results = append(results, result)
		r.progress.UnitFinished(result)
		if err := ctx.Err(); err != nil {
			return results, err
		}
	}

	completed := 0
	for _, result := range results {
		if result.OK() {
			completed++
		}
	}
	logger.Info("batch finished",
		logging.Int("completed", completed),
		logging.Int("failed", len(results)-completed),
	)
	return results, nil
}

func (r *Runner) runUnit(ctx context.Context, ep int) UnitResult {
	logger := logging.WithContext(ctx, r.logger)
	result := UnitResult{
		RunID:      r.runID,
		Episode:    ep,
		Title:      r.profile.EpisodeTitle(ep),
		InputPath:  r.locator.InputPath(ep),
		OutputPath: r.locator.OutputPath(ep),
		StartedAt:  r.now(),
	}

	err := r.process(ctx, &result)
	result.FinishedAt = r.now()
	if err != nil {
		result.Status = history.StatusFailed
		result.Err = err
		logging.ErrorWithContext(logger, "episode failed", "episode_failed",
			logging.Error(err),
			logging.String("input", result.InputPath),
			logging.String(logging.FieldErrorHint, "check the transcript file and rerun this episode"),
		)
	} else {
		result.Status = history.StatusCompleted
		logger.Info("episode written",
			logging.String("output", result.OutputPath),
			logging.Int("segments", result.Report.Segments),
		)
	}
	r.record(ctx, result)
	return result
}

func (r *Runner) process(ctx context.Context, result *UnitResult) error {
	src, err := LoadSource(result.InputPath)
	if err != nil {
		return err
	}
	doc, report, err := r.assembler.Assemble(ctx, Unit{Episode: result.Episode, Title: result.Title}, src)
	result.Report = report
	if err != nil {
		return err
	}
	if err := WriteDocument(result.OutputPath, doc); err != nil {
		return fmt.Errorf("episode %d: %w", result.Episode, err)
	}
	return nil
}

func (r *Runner) record(ctx context.Context, result UnitResult) {
	if r.recorder == nil {
		return
	}
	entry := history.Entry{
		RunID:      result.RunID,
		Episode:    result.Episode,
		Title:      result.Title,
		Status:     result.Status,
		Segments:   result.Report.Segments,
		Chunks:     result.Report.Chunks,
		Fallbacks:  result.Report.Fallbacks,
		Normalized: result.Report.Normalized,
		Chars:      result.Report.Chars,
		Elapsed:    result.FinishedAt.Sub(result.StartedAt),
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
	}
	if result.OK() {
		entry.OutputPath = result.OutputPath
	}
	if result.Err != nil {
		entry.Error = result.Err.Error()
	}
	// A cancelled batch still gets its failure row.
	if err := r.recorder.Record(context.WithoutCancel(ctx), entry); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "history record failed", "history_record_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check state_dir permissions or delete the history database"),
			logging.String(logging.FieldImpact, "episode missing from loreline history"),
		)
	}
}
