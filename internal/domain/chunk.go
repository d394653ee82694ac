package domain

import "fmt"

// MaxChunkKeywords caps the number of representative keywords per chunk.
const MaxChunkKeywords = 5

// Chunk is a bounded, semantically self-contained segment of source content.
// ChunkIndex is 1-based; TotalChunks is identical across all chunks produced
// by one chunking call.
type Chunk struct {
	Content     string   `json:"content"`
	Summary     string   `json:"summary"`
	Keywords    []string `json:"keywords"`
	ChunkIndex  int      `json:"chunk_index"`
	TotalChunks int      `json:"total_chunks"`
}

// ValidateChunk validates a single Chunk instance
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return fmt.Errorf("chunk cannot be nil")
	}

	if c.Content == "" {
		return fmt.Errorf("chunk Content is required")
	}

	if c.ChunkIndex < 1 {
		return fmt.Errorf("chunk ChunkIndex must be 1-based, got %d", c.ChunkIndex)
	}

	if c.TotalChunks < c.ChunkIndex {
		return fmt.Errorf("chunk ChunkIndex %d exceeds TotalChunks %d", c.ChunkIndex, c.TotalChunks)
	}

	if len(c.Keywords) > MaxChunkKeywords {
		return fmt.Errorf("chunk has %d keywords, max is %d", len(c.Keywords), MaxChunkKeywords)
	}

	return nil
}

// ValidateChunkSequence validates that chunks form a complete 1..n sequence
// with a uniform TotalChunks.
func ValidateChunkSequence(chunks []Chunk) error {
	for i := range chunks {
		if err := ValidateChunk(&chunks[i]); err != nil {
			return err
		}
		if chunks[i].ChunkIndex != i+1 {
			return fmt.Errorf("chunk at position %d has ChunkIndex %d", i, chunks[i].ChunkIndex)
		}
		if chunks[i].TotalChunks != len(chunks) {
			return fmt.Errorf("chunk %d has TotalChunks %d, expected %d", i+1, chunks[i].TotalChunks, len(chunks))
		}
	}
	return nil
}
