// Package logging assembles structured slog loggers and formatting helpers used
// across loreline.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context helpers so pipeline code can tag log lines with the
// batch run id and episode number. A no-op logger is provided for tests and
// wiring code that cannot fail.
package logging
