// Package preflight provides readiness checks for the filesystem paths and
// the generation service that loreline depends on.
//
// `loreline check` runs them before a long batch so a missing transcript
// directory or a rejected API key shows up in seconds rather than after the
// first chunk.
package preflight
