package store

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/haasonsaas/tome/pkg/models"
)

// MemoryStore is an in-process Store using brute-force cosine similarity.
// It is the default backend; contents do not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.VectorRecord
}

var _ Store = (*MemoryStore)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{records: make(map[string]models.VectorRecord)}
}

// Upsert inserts or replaces records by ID.
func (s *MemoryStore) Upsert(ctx context.Context, records []models.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		s.records[rec.ID] = rec
	}
	return nil
}

// Query scores every record against the query vector and returns the topK
// best matches by cosine similarity.
func (s *MemoryStore) Query(ctx context.Context, vector []float32, topK int) ([]models.Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	matches := make([]models.Match, 0, len(s.records))
	for _, rec := range s.records {
		score := cosineSimilarity(vector, rec.Vector)
		matches = append(matches, models.Match{
			ID:       rec.ID,
			Score:    score,
			Metadata: rec.Metadata,
		})
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
