package service

import (
	"context"
	"fmt"

	"github.com/quillhq/kbingest/internal/domain"
)

// DefaultBatchSize is the number of chunk texts sent to the embedding
// provider per request.
const DefaultBatchSize = 20

// Embedder generates one vector per input text, in input order.
type Embedder interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedderFactory builds an Embedder bound to a single API key. Keys are
// stored per bot, so the embedder cannot be a process-wide singleton.
type EmbedderFactory interface {
	New(apiKey string) Embedder
}

// EmbeddingBatcher groups chunk texts into fixed-size batches and sends
// them to the provider one batch at a time. Batches are sequential:
// each response is awaited before the next request goes out, which keeps
// a single large document from fanning out into a burst of concurrent
// provider calls.
type EmbeddingBatcher struct {
	batchSize int
}

func NewEmbeddingBatcher(batchSize int) *EmbeddingBatcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &EmbeddingBatcher{batchSize: batchSize}
}

// EmbedChunks returns one vector per chunk, aligned by index. Any batch
// failure aborts the whole run; partial results are never returned.
func (b *EmbeddingBatcher) EmbedChunks(ctx context.Context, embedder Embedder, chunks []domain.Chunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))

	for start := 0; start < len(chunks); start += b.batchSize {
		end := start + b.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		batch, err := embedder.CreateEmbeddings(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d: %w", start/b.batchSize+1, err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("embedding batch %d: expected %d vectors, got %d",
				start/b.batchSize+1, len(texts), len(batch))
		}

		vectors = append(vectors, batch...)
	}

	return vectors, nil
}
