// Package llm streams completions from a language model backend.
package llm

import (
	"context"
	"io"

	"github.com/haasonsaas/tome/pkg/models"
)

// Request describes one generation call.
type Request struct {
	// Model is the model identifier to generate with.
	Model string

	// System is the assembled system prompt, including any retrieved
	// context.
	System string

	// Messages is the conversation history, oldest first, ending with the
	// latest user message.
	Messages []models.Message
}

// Generator produces a model reply as a raw newline-delimited JSON
// stream. The caller owns the returned reader and must close it.
type Generator interface {
	Stream(ctx context.Context, req Request) (io.ReadCloser, error)
}
