package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillhq/kbingest/internal/domain"
)

// CredentialRepository stores encrypted embedding API keys per bot.
type CredentialRepository struct {
	db dbtx
}

func NewCredentialRepository(pool *pgxpool.Pool) *CredentialRepository {
	return &CredentialRepository{db: pool}
}

func NewCredentialRepositoryWithTx(tx pgx.Tx) *CredentialRepository {
	return &CredentialRepository{db: tx}
}

func (r *CredentialRepository) GetByBot(ctx context.Context, botID string) (*domain.Credential, error) {
	var cred domain.Credential
	err := r.db.QueryRow(ctx,
		`SELECT id, bot_id, ciphertext, created_at, updated_at
		 FROM bot_credentials WHERE bot_id = $1`,
		botID,
	).Scan(&cred.ID, &cred.BotID, &cred.Ciphertext, &cred.CreatedAt, &cred.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCredentialNotFound
		}
		return nil, err
	}
	return &cred, nil
}

// Upsert inserts a credential for a bot or replaces its ciphertext
// when one is already stored.
func (r *CredentialRepository) Upsert(ctx context.Context, cred *domain.Credential) error {
	now := time.Now().UTC()
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now

	_, err := r.db.Exec(ctx,
		`INSERT INTO bot_credentials (id, bot_id, ciphertext, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (bot_id) DO UPDATE
		 SET ciphertext = EXCLUDED.ciphertext,
		     updated_at = EXCLUDED.updated_at`,
		cred.ID, cred.BotID, cred.Ciphertext, cred.CreatedAt, cred.UpdatedAt,
	)
	return err
}

func (r *CredentialRepository) Delete(ctx context.Context, botID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM bot_credentials WHERE bot_id = $1`, botID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCredentialNotFound
	}
	return nil
}
