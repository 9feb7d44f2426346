package textutil

import (
	"strings"
	"unicode/utf8"
)

// Chunk splits text into consecutive pieces of at most size runes. Every piece
// except possibly the last holds exactly size runes, and joining the pieces
// reproduces text. Empty text or a non-positive size yields nil.
func Chunk(text string, size int) []string {
	if text == "" || size <= 0 {
		return nil
	}
	count := (utf8.RuneCountInString(text) + size - 1) / size
	chunks := make([]string, 0, count)
	start, runes := 0, 0
	for i := range text {
		if runes == size {
			chunks = append(chunks, text[start:i])
			start, runes = i, 0
		}
		runes++
	}
	return append(chunks, text[start:])
}

// Excerpt returns the first limit runes of text.
func Excerpt(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := 0
	for i := range text {
		if runes == limit {
			return text[:i]
		}
		runes++
	}
	return text
}

// Snippet flattens whitespace and caps content at 160 runes for error messages.
func Snippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	if cut := Excerpt(clean, 160); len(cut) < len(clean) {
		return cut + "..."
	}
	return clean
}
