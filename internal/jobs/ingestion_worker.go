package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/quillhq/kbingest/internal/domain"
	"github.com/quillhq/kbingest/internal/service"
)

// DefaultClaimLimit caps how many pending sources one poll picks up
const DefaultClaimLimit = 10

// PendingSourceRepository defines the interface for claiming queued sources
type PendingSourceRepository interface {
	// ClaimPending atomically claims up to limit pending sources
	ClaimPending(ctx context.Context, limit int) ([]*domain.KnowledgeSource, error)
}

// Ingestor runs the ingestion pipeline for one source
type Ingestor interface {
	Ingest(ctx context.Context, input service.IngestInput) (*service.IngestResult, error)
}

// IngestionWorker drains pending knowledge sources through the pipeline
type IngestionWorker struct {
	repo       PendingSourceRepository
	ingestor   Ingestor
	claimLimit int
}

// NewIngestionWorker creates a new IngestionWorker instance
func NewIngestionWorker(repo PendingSourceRepository, ingestor Ingestor) *IngestionWorker {
	return &IngestionWorker{
		repo:       repo,
		ingestor:   ingestor,
		claimLimit: DefaultClaimLimit,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *IngestionWorker) ProcessJobs(ctx context.Context) error {
	sources, err := w.repo.ClaimPending(ctx, w.claimLimit)
	if err != nil {
		return fmt.Errorf("failed to claim pending sources: %w", err)
	}

	if len(sources) == 0 {
		return nil
	}

	log.Printf("Processing %d pending sources", len(sources))

	// Sources are processed one at a time. A failure is already recorded
	// on the source itself, so the loop just moves on.
	for _, src := range sources {
		result, err := w.ingestor.Ingest(ctx, service.IngestInput{
			SourceID: src.ID,
			BotID:    src.BotID,
			Kind:     src.Kind,
		})
		if err != nil {
			log.Printf("Error ingesting source %s: %v", src.ID, err)
			continue
		}
		log.Printf("Ingested source %s: %d chunks, %d chars", src.ID, result.ChunkCount, result.CharCount)
	}

	return nil
}
