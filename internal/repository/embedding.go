package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/quillhq/kbingest/internal/domain"
)

// EmbeddingRepository handles persistence of chunk embeddings.
type EmbeddingRepository struct {
	db dbtx
}

func NewEmbeddingRepository(pool *pgxpool.Pool) *EmbeddingRepository {
	return &EmbeddingRepository{db: pool}
}

func NewEmbeddingRepositoryWithTx(tx pgx.Tx) *EmbeddingRepository {
	return &EmbeddingRepository{db: tx}
}

// ReplaceForSource deletes all embeddings stored for a source and inserts
// the new set. Re-ingesting a source never leaves stale rows behind.
func (r *EmbeddingRepository) ReplaceForSource(ctx context.Context, sourceID string, records []domain.EmbeddingRecord) error {
	_, err := r.db.Exec(ctx, `DELETE FROM knowledge_embeddings WHERE source_id = $1`, sourceID)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		createdAt := rec.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		batch.Queue(
			`INSERT INTO knowledge_embeddings
				(id, source_id, bot_id, chunk_index, content, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rec.ID, rec.SourceID, rec.BotID, rec.ChunkIndex, rec.Content,
			pgvector.NewVector(rec.Embedding), createdAt,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range records {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return results.Close()
}

// ListBySource returns a source's embeddings ordered by chunk index.
func (r *EmbeddingRepository) ListBySource(ctx context.Context, sourceID string) ([]*domain.EmbeddingRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, source_id, bot_id, chunk_index, content, embedding, created_at
		 FROM knowledge_embeddings
		 WHERE source_id = $1
		 ORDER BY chunk_index ASC`,
		sourceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.EmbeddingRecord
	for rows.Next() {
		var rec domain.EmbeddingRecord
		var vec pgvector.Vector
		if err := rows.Scan(&rec.ID, &rec.SourceID, &rec.BotID, &rec.ChunkIndex,
			&rec.Content, &vec, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Embedding = vec.Slice()
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func (r *EmbeddingRepository) CountBySource(ctx context.Context, sourceID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM knowledge_embeddings WHERE source_id = $1`,
		sourceID,
	).Scan(&count)
	return count, err
}
