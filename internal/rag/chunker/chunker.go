// Package chunker splits normalized document text into overlapping
// fixed-size windows, the unit of embedding and retrieval.
package chunker

import (
	"regexp"
	"strings"
)

// Config contains chunking parameters.
type Config struct {
	// Size is the window length in characters.
	// Default: 1000
	Size int `yaml:"size"`

	// Overlap is the number of characters shared between consecutive
	// windows. Must be smaller than Size.
	// Default: 200
	Overlap int `yaml:"overlap"`

	// MaxChunks caps the number of windows produced from one document,
	// bounding indexing cost for pathological inputs.
	// Default: 256
	MaxChunks int `yaml:"max_chunks"`
}

// DefaultConfig returns the default chunker configuration.
func DefaultConfig() Config {
	return Config{
		Size:      1000,
		Overlap:   200,
		MaxChunks: 256,
	}
}

// Chunker produces deterministic overlapping windows over document text.
type Chunker struct {
	config Config
}

// New creates a chunker, clamping invalid configuration to safe values.
func New(cfg Config) *Chunker {
	if cfg.Size <= 0 {
		cfg.Size = DefaultConfig().Size
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	if cfg.Overlap >= cfg.Size {
		cfg.Overlap = cfg.Size / 5
	}
	if cfg.MaxChunks <= 0 {
		cfg.MaxChunks = DefaultConfig().MaxChunks
	}
	return &Chunker{config: cfg}
}

var newlineRuns = regexp.MustCompile(`\n{3,}`)

// Chunk splits text into trimmed, non-empty windows of Size characters
// advancing by Size-Overlap. Runs of three or more newlines are collapsed
// to two before windowing. Identical input always yields an identical
// sequence. Empty or whitespace-only input yields nil.
func (c *Chunker) Chunk(text string) []string {
	text = strings.TrimSpace(newlineRuns.ReplaceAllString(text, "\n\n"))
	if text == "" {
		return nil
	}

	runes := []rune(text)
	step := c.config.Size - c.config.Overlap
	if step < 1 {
		step = 1
	}

	var chunks []string
	for start := 0; start < len(runes); start += step {
		if len(chunks) >= c.config.MaxChunks {
			break
		}
		end := start + c.config.Size
		if end > len(runes) {
			end = len(runes)
		}
		window := strings.TrimSpace(string(runes[start:end]))
		if window != "" {
			chunks = append(chunks, window)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}
