// Package store defines vector store backends for chunk embeddings.
package store

import (
	"context"

	"github.com/haasonsaas/tome/pkg/models"
)

// Store is a vector store holding chunk embeddings and their metadata.
type Store interface {
	// Upsert inserts or replaces records by ID.
	Upsert(ctx context.Context, records []models.VectorRecord) error

	// Query returns up to topK records most similar to the query vector,
	// ordered by descending similarity.
	Query(ctx context.Context, vector []float32, topK int) ([]models.Match, error)

	// Close releases backend resources.
	Close() error
}
