// Package episode turns one raw transcript into one structured document.
//
// The Assembler splits the transcript into fixed-size chunks, asks the
// Extractor for records chunk by chunk while threading a State of chapter and
// segment counters, substitutes a single fallback record for any chunk that
// yields nothing, normalizes speakers once at the end and builds the Document.
// The Runner repeats this for every requested episode, writes each document
// atomically and records the outcome in the history ledger. A failed episode
// never stops the batch.
package episode
