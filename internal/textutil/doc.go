// Package textutil splits transcripts into fixed-width chunks and builds
// bounded excerpts and error snippets. Lengths are counted in runes so
// multi-byte text is never cut mid-character.
package textutil
