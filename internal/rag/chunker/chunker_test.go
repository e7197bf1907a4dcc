package chunker

import (
	"strings"
	"testing"
)

func TestChunk_Deterministic(t *testing.T) {
	c := New(Config{Size: 50, Overlap: 10, MaxChunks: 100})
	input := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 20)

	first := c.Chunk(input)
	second := c.Chunk(input)

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestChunk_NoEmptyChunks(t *testing.T) {
	c := New(Config{Size: 10, Overlap: 2, MaxChunks: 100})
	input := "abc   \n\n\n\n   def   \n\n\n   ghi"

	for i, chunk := range c.Chunk(input) {
		if strings.TrimSpace(chunk) == "" {
			t.Errorf("chunk %d is empty or whitespace-only", i)
		}
	}
}

func TestChunk_EmptyInput(t *testing.T) {
	c := New(DefaultConfig())

	for _, input := range []string{"", "   ", "\n\n\n", "\t \n"} {
		if got := c.Chunk(input); len(got) != 0 {
			t.Errorf("Chunk(%q) = %d chunks, want 0", input, len(got))
		}
	}
}

func TestChunk_RespectsMaxChunks(t *testing.T) {
	c := New(Config{Size: 10, Overlap: 5, MaxChunks: 3})
	input := strings.Repeat("abcdefghij", 100)

	if got := len(c.Chunk(input)); got > 3 {
		t.Errorf("chunk count = %d, want <= 3", got)
	}
}

func TestChunk_OverlapCoversInput(t *testing.T) {
	// Every character of the normalized input must appear in some window:
	// overlap duplicates content, never loses it.
	c := New(Config{Size: 20, Overlap: 5, MaxChunks: 1000})
	input := "abcdefghijklmnopqrstuvwxyz0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	chunks := c.Chunk(input)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}

	step := 20 - 5
	for i, chunk := range chunks {
		start := i * step
		if !strings.Contains(input, chunk) {
			t.Errorf("chunk %d %q not a substring of input", i, chunk)
		}
		if !strings.HasPrefix(input[start:], chunk) {
			t.Errorf("chunk %d does not start at offset %d", i, start)
		}
	}
	last := chunks[len(chunks)-1]
	if !strings.HasSuffix(input, last) {
		t.Errorf("final chunk %q does not reach end of input", last)
	}
}

func TestChunk_NormalizesNewlineRuns(t *testing.T) {
	c := New(Config{Size: 100, Overlap: 10, MaxChunks: 10})
	got := c.Chunk("first\n\n\n\n\nsecond")

	if len(got) != 1 {
		t.Fatalf("chunk count = %d, want 1", len(got))
	}
	if got[0] != "first\n\nsecond" {
		t.Errorf("chunk = %q, want newline runs collapsed to two", got[0])
	}
}

func TestChunk_ShortInputSingleChunk(t *testing.T) {
	c := New(DefaultConfig())
	got := c.Chunk("hello world")

	if len(got) != 1 || got[0] != "hello world" {
		t.Errorf("Chunk(\"hello world\") = %v, want single identical chunk", got)
	}
}

func TestNew_ClampsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero size", Config{Size: 0, Overlap: 10, MaxChunks: 5}},
		{"overlap >= size", Config{Size: 10, Overlap: 10, MaxChunks: 5}},
		{"negative overlap", Config{Size: 10, Overlap: -1, MaxChunks: 5}},
		{"zero max chunks", Config{Size: 10, Overlap: 2, MaxChunks: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.cfg)
			// Must terminate and produce non-empty output for real input.
			if got := c.Chunk(strings.Repeat("x", 100)); len(got) == 0 {
				t.Error("expected chunks from clamped config")
			}
		})
	}
}
