package textutil

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunkReconstructsInput(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int
		want int
	}{
		{"exact multiple", strings.Repeat("a", 24), 12, 2},
		{"short tail", strings.Repeat("b", 25), 12, 3},
		{"smaller than size", "hello", 12, 1},
		{"size one", "abc", 1, 3},
		{"multibyte", strings.Repeat("Aramán ", 10), 4, 18},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Chunk(tt.text, tt.size)
			if len(chunks) != tt.want {
				t.Fatalf("Chunk() produced %d chunks, want %d", len(chunks), tt.want)
			}
			if got := strings.Join(chunks, ""); got != tt.text {
				t.Fatalf("joined chunks differ from input: %q", got)
			}
			for i, chunk := range chunks {
				n := utf8.RuneCountInString(chunk)
				if i < len(chunks)-1 && n != tt.size {
					t.Fatalf("chunk %d has %d runes, want %d", i, n, tt.size)
				}
				if n == 0 || n > tt.size {
					t.Fatalf("chunk %d has invalid length %d", i, n)
				}
				if !utf8.ValidString(chunk) {
					t.Fatalf("chunk %d splits a rune", i)
				}
			}
		})
	}
}

func TestChunkTranscriptScale(t *testing.T) {
	chunks := Chunk(strings.Repeat("x", 25000), 12000)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[2]) != 1000 {
		t.Fatalf("expected 1000-char tail, got %d", len(chunks[2]))
	}
}

func TestChunkDegenerateInputs(t *testing.T) {
	if Chunk("", 10) != nil {
		t.Fatal("expected nil for empty text")
	}
	if Chunk("abc", 0) != nil {
		t.Fatal("expected nil for zero size")
	}
}

func TestExcerpt(t *testing.T) {
	if got := Excerpt("Aramán rises", 6); got != "Aramán" {
		t.Fatalf("Excerpt() = %q", got)
	}
	if got := Excerpt("short", 500); got != "short" {
		t.Fatalf("Excerpt() = %q", got)
	}
	if got := Excerpt("abc", 0); got != "" {
		t.Fatalf("Excerpt() = %q", got)
	}
}

func TestSnippet(t *testing.T) {
	long := strings.Repeat("word ", 100)
	got := Snippet(long)
	if !strings.HasSuffix(got, "...") || len([]rune(got)) != 163 {
		t.Fatalf("unexpected snippet %q", got)
	}
	if got := Snippet("  {\"error\":\n  \"rate limited\"}  "); got != `{"error": "rate limited"}` {
		t.Fatalf("unexpected snippet %q", got)
	}
	if Snippet("  ") != "<empty>" {
		t.Fatal("expected <empty> for blank payload")
	}
}
