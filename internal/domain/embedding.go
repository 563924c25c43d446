package domain

import (
	"fmt"
	"time"
)

// EmbeddingRecord is the persisted unit: one chunk of a knowledge source
// together with its embedding vector. For a given source the set of chunk
// indices is contiguous starting at 0 and matches the final chunk list of the
// run that produced it.
type EmbeddingRecord struct {
	ID         string
	SourceID   string
	BotID      string
	ChunkIndex int
	Content    string
	Embedding  []float32
	CreatedAt  time.Time
}

// ValidateEmbeddingRecord validates an EmbeddingRecord instance
func ValidateEmbeddingRecord(r *EmbeddingRecord) error {
	if r == nil {
		return fmt.Errorf("embedding record cannot be nil")
	}

	if r.SourceID == "" {
		return fmt.Errorf("embedding record SourceID is required")
	}

	if r.BotID == "" {
		return fmt.Errorf("embedding record BotID is required")
	}

	if r.ChunkIndex < 0 {
		return fmt.Errorf("embedding record ChunkIndex cannot be negative")
	}

	if r.Content == "" {
		return fmt.Errorf("embedding record Content is required")
	}

	if len(r.Embedding) == 0 {
		return fmt.Errorf("embedding record Embedding is required")
	}

	return nil
}
