package logging

import (
	"context"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID identifies one batch invocation.
	FieldRunID = "run_id"
	// FieldEpisode is the episode number being processed.
	FieldEpisode = "episode"
	// FieldChunkIndex is the 1-based chunk position within an episode.
	FieldChunkIndex = "chunk_index"
	// FieldChunkCount is the total number of chunks for an episode.
	FieldChunkCount = "chunk_count"
	// FieldAttempt is the 1-based attempt number of a retried operation.
	FieldAttempt = "attempt"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step to an operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

type contextKey int

const (
	runIDKey contextKey = iota
	episodeKey
)

// WithRunID stores the batch run identifier on ctx.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithEpisode stores the episode number on ctx.
func WithEpisode(ctx context.Context, episode int) context.Context {
	return context.WithValue(ctx, episodeKey, episode)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := ctx.Value(runIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if ep, ok := ctx.Value(episodeKey).(int); ok {
		fields = append(fields, slog.Int(FieldEpisode, ep))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}

func runtimeFrame(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if frame.File == "" {
		return ""
	}
	return filepath.Base(frame.File) + ":" + strconv.Itoa(frame.Line)
}
