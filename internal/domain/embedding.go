package domain

import (
	"fmt"
	"time"
)

// EmbeddingDimensions is the fixed dimensionality of stored vectors. The
// dimension is locked at model-selection time; changing the embedding model
// requires re-embedding every stored record.
const EmbeddingDimensions = 768

// SourceType identifies the kind of entity an embedding record belongs to
type SourceType string

const (
	SourceTypeContext SourceType = "context"
	SourceTypeIssue   SourceType = "issue"
	SourceTypeInquiry SourceType = "inquiry"
	SourceTypeProduct SourceType = "product"
)

// RecordMetadata carries chunk-level metadata persisted with each embedding
type RecordMetadata struct {
	Summary       string   `json:"summary,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	ChunkIndex    int      `json:"chunk_index"`
	TotalChunks   int      `json:"total_chunks"`
	OriginalTitle string   `json:"original_title,omitempty"`
}

// EmbeddingRecord is a stored chunk embedding, exclusively owned by the
// tenant (ProjectID, UserID) and lifecycle-bound to its source entity.
type EmbeddingRecord struct {
	ID         string
	Content    string
	Embedding  []float32
	Metadata   RecordMetadata
	SourceType SourceType
	SourceID   string
	ProjectID  string
	UserID     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SimilarityResult is a search hit. Similarity is derived at query time as
// 1 - cosineDistance(query, candidate), never stored.
type SimilarityResult struct {
	ID         string         `json:"id"`
	Content    string         `json:"content"`
	Similarity float64        `json:"similarity"`
	Metadata   RecordMetadata `json:"metadata"`
	SourceType SourceType     `json:"source_type"`
	SourceID   string         `json:"source_id"`
}

// NewEmbeddingRecord creates a new EmbeddingRecord instance
func NewEmbeddingRecord(
	id string,
	chunk Chunk,
	embedding []float32,
	sourceType SourceType,
	sourceID, projectID, userID, originalTitle string,
	now time.Time,
) *EmbeddingRecord {
	return &EmbeddingRecord{
		ID:        id,
		Content:   chunk.Content,
		Embedding: embedding,
		Metadata: RecordMetadata{
			Summary:       chunk.Summary,
			Keywords:      chunk.Keywords,
			ChunkIndex:    chunk.ChunkIndex,
			TotalChunks:   chunk.TotalChunks,
			OriginalTitle: originalTitle,
		},
		SourceType: sourceType,
		SourceID:   sourceID,
		ProjectID:  projectID,
		UserID:     userID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ValidateEmbeddingRecord validates an EmbeddingRecord instance
func ValidateEmbeddingRecord(r *EmbeddingRecord) error {
	if r == nil {
		return fmt.Errorf("embedding record cannot be nil")
	}

	if r.ID == "" {
		return fmt.Errorf("embedding record ID is required")
	}

	if r.Content == "" {
		return fmt.Errorf("embedding record Content is required")
	}

	if len(r.Embedding) != EmbeddingDimensions {
		return fmt.Errorf("embedding record has %d dimensions, expected %d", len(r.Embedding), EmbeddingDimensions)
	}

	if !IsValidSourceType(r.SourceType) {
		return fmt.Errorf("embedding record SourceType is invalid: %s", r.SourceType)
	}

	if r.SourceID == "" {
		return fmt.Errorf("embedding record SourceID is required")
	}

	if r.ProjectID == "" {
		return fmt.Errorf("embedding record ProjectID is required")
	}

	if r.UserID == "" {
		return fmt.Errorf("embedding record UserID is required")
	}

	return nil
}

// IsValidSourceType checks if a SourceType is valid
func IsValidSourceType(t SourceType) bool {
	switch t {
	case SourceTypeContext, SourceTypeIssue, SourceTypeInquiry, SourceTypeProduct:
		return true
	}
	return false
}
