// Package index implements the document ingestion pipeline: extract,
// normalize, chunk, embed, and store.
package index

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/tome/internal/extract"
	"github.com/haasonsaas/tome/internal/observability"
	"github.com/haasonsaas/tome/internal/rag/chunker"
	"github.com/haasonsaas/tome/internal/rag/embed"
	"github.com/haasonsaas/tome/internal/rag/store"
	"github.com/haasonsaas/tome/pkg/models"
)

var (
	// ErrEmptyDocument reports a request with no file and no text.
	ErrEmptyDocument = errors.New("document has no content")

	// ErrNoIndexableContent reports a document that normalized to nothing.
	ErrNoIndexableContent = errors.New("document has no indexable content")

	// ErrNoVectorsProduced reports a document none of whose chunks could
	// be embedded.
	ErrNoVectorsProduced = errors.New("no vectors produced for document")
)

// DefaultMaxDocumentChars caps normalized document length before
// chunking.
const DefaultMaxDocumentChars = 200000

// File is an uploaded file attached to an indexing request.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Request describes one document to index.
type Request struct {
	// Title is the display title. Empty falls back to the file name, then
	// to a placeholder.
	Title string

	// Text is direct text content, indexed alongside any file.
	Text string

	// File is an optional uploaded file.
	File *File

	// SourceOverride forces the recorded source type regardless of what
	// extraction classified.
	SourceOverride models.SourceType
}

// Result summarizes a completed indexing run.
type Result struct {
	DocID      string
	Title      string
	ChunkCount int
	SourceType models.SourceType
}

// Indexer runs the ingestion pipeline.
type Indexer struct {
	extractor *extract.Extractor
	chunker   *chunker.Chunker
	embedder  *embed.Client
	store     store.Store
	maxChars  int
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// Config assembles an Indexer from its collaborators.
type Config struct {
	Extractor *extract.Extractor
	Chunker   *chunker.Chunker
	Embedder  *embed.Client
	Store     store.Store

	// MaxDocumentChars caps normalized document length. <= 0 selects the
	// default.
	MaxDocumentChars int

	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// New creates an indexer.
func New(cfg Config) *Indexer {
	if cfg.MaxDocumentChars <= 0 {
		cfg.MaxDocumentChars = DefaultMaxDocumentChars
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NewNopLogger()
	}
	return &Indexer{
		extractor: cfg.Extractor,
		chunker:   cfg.Chunker,
		embedder:  cfg.Embedder,
		store:     cfg.Store,
		maxChars:  cfg.MaxDocumentChars,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}
}

// Index runs the full pipeline for one document and returns its summary.
func (ix *Indexer) Index(ctx context.Context, req Request) (*Result, error) {
	if req.File == nil && strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyDocument
	}

	var (
		fileName string
		text     string
		source   = models.SourceManual
	)
	if req.File != nil {
		fileName = req.File.Name
		extracted, err := ix.extractor.Extract(ctx, req.File.Data, req.File.ContentType, req.File.Name)
		if err != nil {
			return nil, err
		}
		text = extracted.Text
		source = extracted.Source
	}
	if direct := strings.TrimSpace(req.Text); direct != "" {
		if text != "" {
			text = text + "\n\n" + direct
		} else {
			text = direct
		}
	}
	if req.SourceOverride != "" {
		source = req.SourceOverride
	}

	text = normalize(text, ix.maxChars)
	if text == "" {
		return nil, ErrNoIndexableContent
	}

	chunks := ix.chunker.Chunk(text)
	if len(chunks) == 0 {
		return nil, ErrNoIndexableContent
	}

	docID := uuid.NewString()
	title := documentTitle(req.Title, fileName)
	uploadedAt := time.Now().UTC()

	vectors, err := ix.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}

	records := make([]models.VectorRecord, 0, len(chunks))
	for i, chunk := range chunks {
		if len(vectors[i]) == 0 {
			ix.logger.Warn(ctx, "chunk produced no embedding, skipping",
				"doc_id", docID, "chunk", i)
			continue
		}
		records = append(records, models.VectorRecord{
			ID:     fmt.Sprintf("%s#%d", docID, i),
			Vector: vectors[i],
			Metadata: models.RecordMetadata{
				Text:             chunk,
				Title:            title,
				DocID:            docID,
				ChunkIndex:       i,
				UploadedAt:       uploadedAt,
				SourceType:       source,
				OriginalFileName: fileName,
			},
		})
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w %s", ErrNoVectorsProduced, docID)
	}

	if err := ix.store.Upsert(ctx, records); err != nil {
		return nil, fmt.Errorf("store vectors: %w", err)
	}

	if ix.metrics != nil {
		ix.metrics.DocumentsIndexed.WithLabelValues(string(source)).Inc()
		ix.metrics.ChunksIndexed.Add(float64(len(records)))
	}
	ix.logger.Info(ctx, "document indexed",
		"doc_id", docID, "title", title, "source", string(source), "chunks", len(records))

	return &Result{
		DocID:      docID,
		Title:      title,
		ChunkCount: len(records),
		SourceType: source,
	}, nil
}

// normalize converts line endings, trims, and caps document length.
func normalize(text string, maxChars int) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSpace(text)

	runes := []rune(text)
	if len(runes) > maxChars {
		text = strings.TrimSpace(string(runes[:maxChars]))
	}
	return text
}

func documentTitle(title, fileName string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	if fileName != "" {
		return fileName
	}
	return "Untitled document"
}
