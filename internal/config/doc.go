// Package config loads, normalizes, and validates loreline configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// LORELINE_API_KEY, OPENROUTER_API_KEY and ANTHROPIC_API_KEY. The Config type
// centralizes transcript locations, generation service credentials, chunking
// and retry knobs, and logging preferences.
//
// The API key is deliberately not required here: a missing credential shows
// up as an authentication failure from the service, which the pipeline
// already degrades into fallback segments.
package config
