package preflight

import (
	"context"

	"loreline/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every readiness check for the given config. The LLM check
// is skipped when skipLLM is set so offline checks stay fast.
func RunAll(ctx context.Context, cfg *config.Config, skipLLM bool) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckReadableDirectory("Input directory", cfg.Paths.InputDir),
		CheckWritableDirectory("Output directory", cfg.Paths.OutputDir),
		CheckWritableDirectory("State directory", cfg.Paths.StateDir),
	}
	if !skipLLM {
		results = append(results, CheckLLM(ctx, "Generation service", cfg.GetLLM()))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
