package episode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"loreline/internal/campaign"
	"loreline/internal/extract"
	"loreline/internal/logging"
	"loreline/internal/segment"
	"loreline/internal/textutil"
)

const (
	defaultChunkSize     = 12000
	defaultChunkDelay    = time.Second
	defaultExcerptChars  = 500
	fallbackContentTrail = "..."
)

// Extractor produces segment records for one chunk.
type Extractor interface {
	Extract(ctx context.Context, req extract.Request) (extract.Result, error)
}

// Unit identifies the episode being assembled.
type Unit struct {
	Episode int
	Title   string
}

// Chunk is one ordered slice of a transcript. Index is 1-based.
type Chunk struct {
	Index int
	Count int
	Text  string
}

// StepResult is the outcome of one chunk. Fallback is set when the records
// are the single substitute record; Err then carries the extraction failure,
// if any.
type StepResult struct {
	Segments []segment.Segment
	Fallback bool
	Salvaged bool
	Attempts int
	Err      error
}

// Report summarizes one assembled episode.
type Report struct {
	Segments   int
	Chunks     int
	Fallbacks  int
	Salvaged   int
	Normalized int
	Chars      int
	Elapsed    time.Duration
}

// Assembler drives the extractor over every chunk of an episode and builds
// the output document.
type Assembler struct {
	extractor    Extractor
	profile      *campaign.Profile
	logger       *slog.Logger
	progress     Progress
	chunkSize    int
	chunkDelay   time.Duration
	excerptChars int
	sleeper      func(time.Duration)
	now          func() time.Time
}

// AssemblerOption customizes the assembler.
type AssemblerOption func(*Assembler)

// WithChunkSize sets the chunk length in characters.
func WithChunkSize(size int) AssemblerOption {
	return func(a *Assembler) {
		if size > 0 {
			a.chunkSize = size
		}
	}
}

// WithChunkDelay sets the pause between consecutive chunk requests.
func WithChunkDelay(delay time.Duration) AssemblerOption {
	return func(a *Assembler) {
		if delay >= 0 {
			a.chunkDelay = delay
		}
	}
}

// WithExcerptChars sets how much chunk text a fallback record keeps.
func WithExcerptChars(chars int) AssemblerOption {
	return func(a *Assembler) {
		if chars > 0 {
			a.excerptChars = chars
		}
	}
}

// WithSleeper overrides how pauses are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) AssemblerOption {
	return func(a *Assembler) {
		a.sleeper = sleeper
	}
}

// WithClock overrides the wall clock used for elapsed time.
func WithClock(now func() time.Time) AssemblerOption {
	return func(a *Assembler) {
		if now != nil {
			a.now = now
		}
	}
}

// WithProgress attaches a progress observer.
func WithProgress(progress Progress) AssemblerOption {
	return func(a *Assembler) {
		if progress != nil {
			a.progress = progress
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) AssemblerOption {
	return func(a *Assembler) {
		if logger != nil {
			a.logger = logging.NewComponentLogger(logger, "assembler")
		}
	}
}

// NewAssembler constructs an assembler.
func NewAssembler(extractor Extractor, profile *campaign.Profile, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		extractor:    extractor,
		profile:      profile,
		logger:       logging.NewNop(),
		progress:     NopProgress{},
		chunkSize:    defaultChunkSize,
		chunkDelay:   defaultChunkDelay,
		excerptChars: defaultExcerptChars,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Step processes one chunk. A failed or empty extraction is replaced by one
// fallback record. Only context cancellation is returned as an error.
func (a *Assembler) Step(ctx context.Context, unit Unit, chunk Chunk, state State) (StepResult, State, error) {
	res, err := a.extractor.Extract(ctx, extract.Request{
		Episode:    unit.Episode,
		Title:      unit.Title,
		ChunkIndex: chunk.Index,
		ChunkCount: chunk.Count,
		Text:       chunk.Text,
		Chapter:    state.Chapter,
		Segment:    state.Segment,
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return StepResult{}, state, ctxErr
	}
	if err == nil && len(res.Segments) > 0 {
		return StepResult{Segments: res.Segments, Salvaged: res.Salvaged, Attempts: res.Attempts}, state.Next(res.Segments), nil
	}

	if err == nil {
		err = errors.New("service returned no records")
	}
	logger := logging.WithChunk(logging.WithContext(ctx, a.logger), chunk.Index, chunk.Count)
	logging.WarnWithContext(logger, "chunk replaced by fallback record", "chunk_fallback",
		logging.String("segment_id", state.ID(unit.Episode)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "rerun the episode to replace the excerpt"),
		logging.String(logging.FieldImpact, "chunk kept as an unsegmented excerpt"),
	)
	return StepResult{
		Segments: []segment.Segment{a.fallbackRecord(unit, chunk, state)},
		Fallback: true,
		Attempts: res.Attempts,
		Err:      err,
	}, state.AfterFallback(), nil
}

func (a *Assembler) fallbackRecord(unit Unit, chunk Chunk, state State) segment.Segment {
	return segment.Segment{
		ID:                state.ID(unit.Episode),
		Type:              segment.TypeNarration,
		Speaker:           a.profile.Narrator,
		Content:           textutil.Excerpt(chunk.Text, a.excerptChars) + fallbackContentTrail,
		CharactersPresent: []string{},
		Metadata:          map[string]any{},
	}
}

// Assemble chunks the source, steps through every chunk in order, normalizes
// speakers once over the collected records and builds the document.
func (a *Assembler) Assemble(ctx context.Context, unit Unit, src Source) (Document, Report, error) {
	if a.extractor == nil || a.profile == nil {
		return Document{}, Report{}, errors.New("assemble: extractor and profile are required")
	}
	chunks := textutil.Chunk(src.Text, a.chunkSize)
	if len(chunks) == 0 {
		return Document{}, Report{}, fmt.Errorf("assemble episode %d: %w", unit.Episode, ErrEmptySource)
	}

	logger := logging.WithContext(ctx, a.logger)
	report := Report{Chunks: len(chunks), Chars: len([]rune(src.Text))}
	a.progress.UnitStarted(unit, report.Chars, report.Chunks)
	logger.Info("assembling episode",
		logging.String("title", unit.Title),
		logging.Int("chars", report.Chars),
		logging.Int(logging.FieldChunkCount, report.Chunks),
	)

	start := a.now()
	state := Initial()
	maxChapter := state.Chapter
	var records []segment.Segment

	for i, text := range chunks {
		if i > 0 {
			if err := a.sleep(ctx, a.chunkDelay); err != nil {
				return Document{}, Report{}, err
			}
		}
		chunk := Chunk{Index: i + 1, Count: len(chunks), Text: text}
		a.progress.ChunkStarted(unit, chunk)

		result, next, err := a.Step(ctx, unit, chunk, state)
		if err != nil {
			return Document{}, Report{}, err
		}
		a.progress.ChunkFinished(unit, chunk, result)

		records = append(records, result.Segments...)
		if result.Fallback {
			report.Fallbacks++
		}
		if result.Salvaged {
			report.Salvaged++
		}
		state = next
		if state.Chapter > maxChapter {
			maxChapter = state.Chapter
		}
	}

	report.Normalized = segment.NormalizeSpeakers(records, a.profile.AliasTable())
	report.Segments = len(records)
	report.Elapsed = a.now().Sub(start)

	logger.Info("episode assembled",
		logging.Int("segments", report.Segments),
		logging.Int("fallbacks", report.Fallbacks),
		logging.Int("normalized", report.Normalized),
		logging.Duration("elapsed", report.Elapsed),
	)
	return BuildDocument(a.profile, unit, src, records, maxChapter), report, nil
}

func (a *Assembler) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if a.sleeper != nil {
		a.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
