package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"loreline/internal/campaign"
	"loreline/internal/logging"
	"loreline/internal/segment"
)

// ErrExhausted reports that a chunk produced no usable records after every
// allowed attempt.
var ErrExhausted = errors.New("segment extraction exhausted")

const (
	defaultParseRetries    = 2
	defaultParseRetryDelay = 2 * time.Second
)

// Completer abstracts the text-generation call for testability.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Request identifies one chunk of one episode. Chapter and Segment are the
// advisory numbering counters passed to the model.
type Request struct {
	Episode    int
	Title      string
	ChunkIndex int
	ChunkCount int
	Text       string
	Chapter    int
	Segment    int
}

// Result carries the records decoded for one chunk. Segments may be empty.
type Result struct {
	Segments []segment.Segment
	Attempts int
	Salvaged bool
}

// Extractor turns a transcript chunk into segment records.
type Extractor struct {
	completer    Completer
	profile      *campaign.Profile
	logger       *slog.Logger
	parseRetries int
	parseDelay   time.Duration
	sleeper      func(time.Duration)
}

// Option customizes the extractor.
type Option func(*Extractor)

// WithParseRetries sets how many additional calls are made after an unparseable response.
func WithParseRetries(retries int) Option {
	return func(e *Extractor) {
		if retries >= 0 {
			e.parseRetries = retries
		}
	}
}

// WithParseRetryDelay sets the fixed pause before a parse retry.
func WithParseRetryDelay(delay time.Duration) Option {
	return func(e *Extractor) {
		if delay >= 0 {
			e.parseDelay = delay
		}
	}
}

// WithSleeper overrides how retry pauses are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(e *Extractor) {
		e.sleeper = sleeper
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logging.NewComponentLogger(logger, "extractor")
		}
	}
}

// New constructs an extractor bound to a completer and campaign profile.
func New(completer Completer, profile *campaign.Profile, opts ...Option) *Extractor {
	e := &Extractor{
		completer:    completer,
		profile:      profile,
		logger:       logging.NewNop(),
		parseRetries: defaultParseRetries,
		parseDelay:   defaultParseRetryDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract asks the model to segment one chunk. Unparseable responses are
// retried; a transport failure ends extraction at once. Both exhaust with an
// error wrapping ErrExhausted. Context cancellation is returned unwrapped.
// Speaker labels are returned exactly as the model produced them.
func (e *Extractor) Extract(ctx context.Context, req Request) (Result, error) {
	if e.completer == nil {
		return Result{}, errors.New("extract: completer not configured")
	}
	if e.profile == nil {
		return Result{}, errors.New("extract: campaign profile not configured")
	}

	logger := logging.WithChunk(logging.WithContext(ctx, e.logger), req.ChunkIndex, req.ChunkCount)
	systemPrompt := SystemPrompt(e.profile, req.Episode, req.Title)
	userPrompt := UserPrompt(e.profile, req)

	attempts := e.parseRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		raw, err := e.completer.Complete(ctx, systemPrompt, userPrompt)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			return Result{Attempts: attempt}, fmt.Errorf("%w: chunk %d/%d: %w", ErrExhausted, req.ChunkIndex, req.ChunkCount, err)
		}

		parsed, err := segment.ParseRecords(raw)
		if err == nil {
			if parsed.Salvaged {
				logging.WarnWithContext(logger, "salvaged truncated response", "response_salvaged",
					logging.Int(logging.FieldAttempt, attempt),
					logging.Int("records", len(parsed.Segments)),
					logging.String(logging.FieldErrorHint, "raise max_tokens or lower chunk_size"),
					logging.String(logging.FieldImpact, "trailing records of this chunk were dropped"),
				)
			}
			if unknown := segment.UnknownTypes(parsed.Segments); len(unknown) > 0 {
				logging.WarnWithContext(logger, "records carry unknown segment types", "unknown_segment_type",
					logging.String("types", strings.Join(unknown, ",")),
					logging.String(logging.FieldErrorHint, "the model ignored the type enumeration in the prompt"),
					logging.String(logging.FieldImpact, "records kept with the type as returned"),
				)
			}
			logger.Debug("chunk extracted",
				logging.Int(logging.FieldAttempt, attempt),
				logging.Int("records", len(parsed.Segments)),
			)
			return Result{Segments: parsed.Segments, Attempts: attempt, Salvaged: parsed.Salvaged}, nil
		}

		lastErr = err
		if attempt == attempts {
			break
		}
		logging.WarnWithContext(logger, "unparseable response; retrying", "parse_retry",
			logging.Int(logging.FieldAttempt, attempt),
			logging.Int("max_attempts", attempts),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "model returned malformed JSON"),
			logging.String(logging.FieldImpact, "chunk request repeated"),
		)
		if err := e.sleep(ctx, e.parseDelay); err != nil {
			return Result{}, err
		}
	}

	return Result{Attempts: attempts}, fmt.Errorf("%w: chunk %d/%d after %d attempts: %w", ErrExhausted, req.ChunkIndex, req.ChunkCount, attempts, lastErr)
}

func (e *Extractor) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if e.sleeper != nil {
		e.sleeper(delay)
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
