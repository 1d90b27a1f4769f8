package model

import "github.com/google/uuid"

// EmbeddingRecord maps one entity to its embedding vector.
type EmbeddingRecord struct {
	EntityID uuid.UUID `json:"entity_id"`
	Vector   []float32 `json:"vector"`
}

// SearchResult is a ranked entity returned by a semantic search.
type SearchResult struct {
	NodeID uuid.UUID `json:"node_id"`
	Score  float64   `json:"score"`
}
