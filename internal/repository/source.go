package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillhq/kbingest/internal/domain"
)

// SourceRepository handles persistence of knowledge sources and their
// ingestion status transitions.
type SourceRepository struct {
	db dbtx
}

func NewSourceRepository(pool *pgxpool.Pool) *SourceRepository {
	return &SourceRepository{db: pool}
}

func NewSourceRepositoryWithTx(tx pgx.Tx) *SourceRepository {
	return &SourceRepository{db: tx}
}

func (r *SourceRepository) Create(ctx context.Context, src *domain.KnowledgeSource) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_sources
			(id, bot_id, kind, content, file_key, status, error_message, char_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		src.ID, src.BotID, src.Kind, nullableString(src.Content), nullableString(src.FileKey),
		src.Status, nullableString(src.ErrorMessage), src.CharCount, src.CreatedAt, src.UpdatedAt,
	)
	return err
}

func (r *SourceRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeSource, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, bot_id, kind, content, file_key, status, error_message, char_count, created_at, updated_at
		 FROM knowledge_sources WHERE id = $1`,
		id,
	)
	src, err := scanSource(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSourceNotFound
		}
		return nil, err
	}
	return src, nil
}

// ClaimPending atomically moves up to limit pending sources to processing
// and returns them. SKIP LOCKED keeps concurrent workers from claiming the
// same rows.
func (r *SourceRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.KnowledgeSource, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM knowledge_sources
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE knowledge_sources
		 SET status = $3,
		     error_message = NULL,
		     updated_at = NOW()
		 FROM cte
		 WHERE knowledge_sources.id = cte.id
		 RETURNING knowledge_sources.id, knowledge_sources.bot_id, knowledge_sources.kind,
		           knowledge_sources.content, knowledge_sources.file_key, knowledge_sources.status,
		           knowledge_sources.error_message, knowledge_sources.char_count,
		           knowledge_sources.created_at, knowledge_sources.updated_at`,
		domain.SourceStatusPending, limit, domain.SourceStatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*domain.KnowledgeSource
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

func (r *SourceRepository) SetStatus(ctx context.Context, id string, status domain.SourceStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE knowledge_sources SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSourceNotFound
	}
	return nil
}

func (r *SourceRepository) MarkCompleted(ctx context.Context, id string, charCount int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE knowledge_sources
		 SET status = $1, error_message = NULL, char_count = $2, updated_at = NOW()
		 WHERE id = $3`,
		domain.SourceStatusCompleted, charCount, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSourceNotFound
	}
	return nil
}

func (r *SourceRepository) MarkFailed(ctx context.Context, id string, message string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE knowledge_sources
		 SET status = $1, error_message = $2, updated_at = NOW()
		 WHERE id = $3`,
		domain.SourceStatusFailed, nullableString(message), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSourceNotFound
	}
	return nil
}

func scanSource(row pgx.Row) (*domain.KnowledgeSource, error) {
	var src domain.KnowledgeSource
	var content, fileKey, errMsg pgtype.Text
	err := row.Scan(&src.ID, &src.BotID, &src.Kind, &content, &fileKey, &src.Status,
		&errMsg, &src.CharCount, &src.CreatedAt, &src.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if content.Valid {
		src.Content = content.String
	}
	if fileKey.Valid {
		src.FileKey = fileKey.String
	}
	if errMsg.Valid {
		src.ErrorMessage = errMsg.String
	}
	return &src, nil
}
