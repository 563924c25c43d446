package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/quillhq/kbingest/internal/domain"
	"github.com/quillhq/kbingest/internal/telemetry"
)

// SourceRepositoryInterface defines the repository interface for source persistence
type SourceRepositoryInterface interface {
	GetByID(ctx context.Context, id string) (*domain.KnowledgeSource, error)
	SetStatus(ctx context.Context, id string, status domain.SourceStatus) error
	MarkCompleted(ctx context.Context, id string, charCount int) error
	MarkFailed(ctx context.Context, id string, message string) error
}

// EmbeddingRepositoryInterface defines the repository interface for embedding persistence
type EmbeddingRepositoryInterface interface {
	ReplaceForSource(ctx context.Context, sourceID string, records []domain.EmbeddingRecord) error
}

// CredentialRepositoryInterface defines the repository interface for bot credentials
type CredentialRepositoryInterface interface {
	GetByBot(ctx context.Context, botID string) (*domain.Credential, error)
}

// CredentialDecrypter recovers a plaintext API key from stored ciphertext
type CredentialDecrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// FileStore fetches uploaded source documents by storage key
type FileStore interface {
	DownloadText(ctx context.Context, key string) (string, error)
}

// Chunker splits markdown into token-budgeted chunks
type Chunker interface {
	Chunk(text string) []domain.Chunk
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// IngestInput carries an ingestion request for one knowledge source.
// Content is optional; when empty the service resolves it from the
// stored source record or its uploaded file.
type IngestInput struct {
	SourceID string
	BotID    string
	Kind     domain.SourceKind
	Content  string
}

// IngestResult summarizes a completed ingestion run.
type IngestResult struct {
	ChunkCount int
	CharCount  int
	TokenCount int
}

// IngestionService runs a source through the full pipeline: resolve the
// bot's embedding credential, chunk the content, embed every chunk, and
// replace the stored embedding set.
type IngestionService struct {
	sources     SourceRepositoryInterface
	embeddings  EmbeddingRepositoryInterface
	credentials CredentialRepositoryInterface
	decrypter   CredentialDecrypter
	files       FileStore
	chunker     Chunker
	embedders   EmbedderFactory
	batcher     *EmbeddingBatcher
	uuidGen     UUIDGenerator
}

// NewIngestionService creates a new IngestionService instance. files may
// be nil when no object storage is configured; file-backed sources then
// fail with a storage error.
func NewIngestionService(
	sources SourceRepositoryInterface,
	embeddings EmbeddingRepositoryInterface,
	credentials CredentialRepositoryInterface,
	decrypter CredentialDecrypter,
	files FileStore,
	chunker Chunker,
	embedders EmbedderFactory,
	batcher *EmbeddingBatcher,
) *IngestionService {
	if batcher == nil {
		batcher = NewEmbeddingBatcher(DefaultBatchSize)
	}
	return &IngestionService{
		sources:     sources,
		embeddings:  embeddings,
		credentials: credentials,
		decrypter:   decrypter,
		files:       files,
		chunker:     chunker,
		embedders:   embedders,
		batcher:     batcher,
		uuidGen:     &DefaultUUIDGenerator{},
	}
}

// Ingest processes one source end to end. Any failure after the input is
// validated marks the source failed with the error message; the stored
// embedding set is only touched once every chunk has been embedded.
func (s *IngestionService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	// Input validation happens before any status writes: a request that
	// cannot identify a source must not mutate one.
	if input.SourceID == "" {
		return nil, domain.ErrMissingSourceID
	}
	if input.BotID == "" {
		return nil, domain.ErrMissingBotID
	}

	ctx, span := telemetry.StartSpan(ctx, "IngestionService.Ingest", telemetry.SpanAttributes{
		BotID:     input.BotID,
		SourceID:  input.SourceID,
		Operation: "ingest",
	})
	defer span.End()

	// Resolve the bot's embedding credential up front. Without a key no
	// work can happen, so the source goes straight to failed.
	apiKey, err := s.resolveAPIKey(ctx, input.BotID)
	if err != nil {
		span.SetError(err)
		return nil, s.fail(ctx, input.SourceID, err)
	}

	if err := s.sources.SetStatus(ctx, input.SourceID, domain.SourceStatusProcessing); err != nil {
		span.SetError(err)
		if errors.Is(err, domain.ErrSourceNotFound) {
			return nil, err
		}
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "failed to mark source processing", err)
	}

	content, err := s.resolveContent(ctx, input)
	if err != nil {
		span.SetError(err)
		return nil, s.fail(ctx, input.SourceID, err)
	}

	chunks := s.chunker.Chunk(content)
	if len(chunks) == 0 {
		err := domain.ErrNoChunksProduced
		span.SetError(err)
		return nil, s.fail(ctx, input.SourceID, err)
	}

	vectors, err := s.batcher.EmbedChunks(ctx, s.embedders.New(apiKey), chunks)
	if err != nil {
		err = domain.NewDomainErrorWithCause(domain.ErrCodeProvider, "embedding generation failed", err)
		span.SetError(err)
		return nil, s.fail(ctx, input.SourceID, err)
	}

	now := time.Now().UTC()
	records := make([]domain.EmbeddingRecord, 0, len(chunks))
	for i, chunk := range chunks {
		records = append(records, domain.EmbeddingRecord{
			ID:         s.uuidGen.NewString(),
			SourceID:   input.SourceID,
			BotID:      input.BotID,
			ChunkIndex: chunk.Index,
			Content:    chunk.Text,
			Embedding:  vectors[i],
			CreatedAt:  now,
		})
	}

	if err := s.embeddings.ReplaceForSource(ctx, input.SourceID, records); err != nil {
		err = domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "failed to store embeddings", err)
		span.SetError(err)
		return nil, s.fail(ctx, input.SourceID, err)
	}

	charCount := utf8.RuneCountInString(content)
	if err := s.sources.MarkCompleted(ctx, input.SourceID, charCount); err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "failed to mark source completed", err)
	}

	tokenCount := 0
	for _, chunk := range chunks {
		tokenCount += chunk.TokenCount
	}

	return &IngestResult{
		ChunkCount: len(chunks),
		CharCount:  charCount,
		TokenCount: tokenCount,
	}, nil
}

func (s *IngestionService) resolveAPIKey(ctx context.Context, botID string) (string, error) {
	cred, err := s.credentials.GetByBot(ctx, botID)
	if err != nil {
		return "", err
	}

	apiKey, err := s.decrypter.Decrypt(cred.Ciphertext)
	if err != nil {
		return "", domain.ErrCredentialDecrypt
	}
	return apiKey, nil
}

// resolveContent returns the markdown to ingest. Inline content wins;
// otherwise content comes from the stored record or its uploaded file.
func (s *IngestionService) resolveContent(ctx context.Context, input IngestInput) (string, error) {
	content := input.Content
	if strings.TrimSpace(content) == "" {
		src, err := s.sources.GetByID(ctx, input.SourceID)
		if err != nil {
			return "", err
		}

		switch {
		case src.Content != "":
			content = src.Content
		case src.FileKey != "":
			if s.files == nil {
				return "", domain.NewDomainError(domain.ErrCodeStorage, "no file store configured for uploaded source")
			}
			content, err = s.files.DownloadText(ctx, src.FileKey)
			if err != nil {
				return "", domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "failed to download source file", err)
			}
		}
	}

	if strings.TrimSpace(content) == "" {
		return "", domain.ErrEmptyContent
	}
	return content, nil
}

// fail records the failure on the source and passes the cause through.
// A broken status write is logged rather than masking the original error.
func (s *IngestionService) fail(ctx context.Context, sourceID string, cause error) error {
	if err := s.sources.MarkFailed(ctx, sourceID, cause.Error()); err != nil {
		log.Printf("failed to mark source %s failed: %v", sourceID, err)
		telemetry.CaptureError(ctx, err)
	}
	return cause
}
