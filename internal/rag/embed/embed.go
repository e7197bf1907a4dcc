// Package embed wraps text-embedding capability providers.
package embed

import (
	"context"
	"errors"
	"fmt"
)

// ErrCountMismatch reports a batch embedding call that returned a different
// number of vectors than inputs. Silently misaligning chunk text to the
// wrong vector would corrupt retrieval, so this is always a hard error.
var ErrCountMismatch = errors.New("embedding count mismatch")

// Provider defines the interface for embedding providers.
type Provider interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, one vector per
	// input in input order. Individual entries may be empty when the
	// provider could not embed that input.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Name returns the provider name for logging.
	Name() string

	// Dimension returns the embedding dimension.
	Dimension() int
}

// Client wraps a Provider with the input character cap and the batch
// length invariant. All embedding callers go through a Client.
type Client struct {
	provider Provider
	maxChars int
}

// DefaultMaxChars is the per-text character cap applied before embedding.
const DefaultMaxChars = 8000

// NewClient creates an embedding client. maxChars <= 0 selects the default.
func NewClient(provider Provider, maxChars int) *Client {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Client{provider: provider, maxChars: maxChars}
}

// Truncate caps a single text at the configured character limit.
func (c *Client) Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= c.maxChars {
		return text
	}
	return string(runes[:c.maxChars])
}

// Embed embeds one text, truncated to the character cap.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	return c.provider.Embed(ctx, c.Truncate(text))
}

// EmbedBatch embeds each text, truncated individually to the character
// cap. The result always has exactly one entry per input; a provider
// returning any other count fails with ErrCountMismatch.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	capped := make([]string, len(texts))
	for i, text := range texts {
		capped[i] = c.Truncate(text)
	}

	vectors, err := c.provider.EmbedBatch(ctx, capped)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: %s returned %d vectors for %d inputs",
			ErrCountMismatch, c.provider.Name(), len(vectors), len(texts))
	}
	return vectors, nil
}

// Name returns the underlying provider name.
func (c *Client) Name() string {
	return c.provider.Name()
}

// Dimension returns the underlying provider's embedding dimension.
func (c *Client) Dimension() int {
	return c.provider.Dimension()
}
