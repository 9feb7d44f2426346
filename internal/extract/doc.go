// Package extract asks the generation service to split one transcript chunk
// into typed segment records.
//
// The Extractor builds the system and user prompts from the campaign profile
// and the current numbering state, calls the Completer, and decodes the reply
// with segment.ParseRecords. Malformed replies are retried a fixed number of
// times; once attempts run out, or when the Completer itself fails, the error
// wraps ErrExhausted so the caller can substitute a fallback record.
package extract
