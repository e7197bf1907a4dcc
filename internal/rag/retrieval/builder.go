// Package retrieval turns a user question into grounding context for the
// model prompt.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/haasonsaas/tome/internal/observability"
	"github.com/haasonsaas/tome/internal/rag/embed"
	"github.com/haasonsaas/tome/internal/rag/store"
	"github.com/haasonsaas/tome/pkg/models"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 4

const contextHeader = "Use the following context to answer the user's question. " +
	"Prefer this material when it is relevant, and fall back to general knowledge when it is not.\n\n"

// Builder retrieves relevant chunks and renders them into a context block.
type Builder struct {
	embedder *embed.Client
	store    store.Store
	topK     int
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// New creates a context builder. topK <= 0 selects the default.
func New(embedder *embed.Client, st store.Store, topK int, logger *observability.Logger, metrics *observability.Metrics) *Builder {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Builder{
		embedder: embedder,
		store:    st,
		topK:     topK,
		logger:   logger,
		metrics:  metrics,
	}
}

// BuildContext embeds the question, queries the vector store, and renders
// the matches into a context block for the system prompt. Retrieval is
// best effort: any failure is logged and yields an empty block so the
// chat turn proceeds ungrounded.
func (b *Builder) BuildContext(ctx context.Context, question string) (string, []models.Snippet) {
	vector, err := b.embedder.Embed(ctx, question)
	if err != nil || len(vector) == 0 {
		// An empty vector scores every record identically, so it would
		// pull arbitrary chunks; treat it like a failed embedding.
		if err != nil {
			b.logger.Warn(ctx, "question embedding failed, answering without context", "error", err)
		} else {
			b.logger.Warn(ctx, "question embedding empty, answering without context")
		}
		b.retrievalFailure("embed")
		return "", nil
	}

	matches, err := b.store.Query(ctx, vector, b.topK)
	if err != nil {
		b.logger.Warn(ctx, "vector query failed, answering without context", "error", err)
		b.retrievalFailure("query")
		return "", nil
	}
	var (
		snippets []models.Snippet
		entries  []string
	)
	for _, m := range matches {
		// A record with no text grounds nothing; skip it.
		if strings.TrimSpace(m.Metadata.Text) == "" {
			continue
		}
		snippets = append(snippets, models.Snippet{
			Title: m.Metadata.Title,
			Text:  m.Metadata.Text,
			Index: m.Metadata.ChunkIndex,
			Score: m.Score,
		})
		entries = append(entries, renderEntry(len(entries)+1, m))
	}
	if len(snippets) == 0 {
		return "", nil
	}

	b.logger.Debug(ctx, "context built", "matches", len(matches))
	return contextHeader + strings.Join(entries, "\n\n"), snippets
}

func (b *Builder) retrievalFailure(stage string) {
	if b.metrics != nil {
		b.metrics.RetrievalFailures.WithLabelValues(stage).Inc()
	}
}

func renderEntry(n int, m models.Match) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Context %d", n)
	if m.Metadata.Title != "" {
		fmt.Fprintf(&sb, " [from %q]", m.Metadata.Title)
	}
	fmt.Fprintf(&sb, " (chunk %d):\n%s", m.Metadata.ChunkIndex, m.Metadata.Text)
	return sb.String()
}
