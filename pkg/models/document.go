package models

import "time"

// SourceType classifies where a document's text came from.
type SourceType string

const (
	SourceManual SourceType = "manual"
	SourceText   SourceType = "text"
	SourcePDF    SourceType = "pdf"
	SourceImage  SourceType = "image"
)

// VectorRecord is the persisted unit of retrieval: one embedded chunk.
// Records are created once at ingestion and never updated.
type VectorRecord struct {
	// ID is "<docId>#<chunkIndex>".
	ID string `json:"id"`

	// Vector is the embedding, fixed-dimension for a given embedding model.
	Vector []float32 `json:"vector"`

	Metadata RecordMetadata `json:"metadata"`
}

// RecordMetadata carries the chunk text and document provenance stored
// alongside each vector. Field names are part of the storage contract.
type RecordMetadata struct {
	Text             string     `json:"text"`
	Title            string     `json:"title"`
	DocID            string     `json:"docId"`
	ChunkIndex       int        `json:"chunkIndex"`
	UploadedAt       time.Time  `json:"uploadedAt"`
	SourceType       SourceType `json:"sourceType"`
	OriginalFileName string     `json:"originalFileName,omitempty"`
}

// Match is one ranked result of a similarity query.
type Match struct {
	ID       string
	Score    float32
	Metadata RecordMetadata
}

// Snippet is an ephemeral, per-turn retrieval result surfaced to ground a
// chat response. It is streamed to the client as the leading context line
// and never persisted.
type Snippet struct {
	Title string  `json:"title,omitempty"`
	Text  string  `json:"text"`
	Index int     `json:"index"`
	Score float32 `json:"score"`
}
