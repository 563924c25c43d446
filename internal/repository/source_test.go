//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhq/kbingest/internal/domain"
	"github.com/quillhq/kbingest/internal/testutil"
)

func newTestSource(botID string) *domain.KnowledgeSource {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.KnowledgeSource{
		ID:        uuid.NewString(),
		BotID:     botID,
		Kind:      domain.SourceKindFile,
		Content:   "# Doc\n\nSome markdown body.",
		Status:    domain.SourceStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSourceRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceRepository(pool)
	src := newTestSource(uuid.NewString())

	require.NoError(t, repo.Create(ctx, src))

	got, err := repo.GetByID(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, src.ID, got.ID)
	assert.Equal(t, src.BotID, got.BotID)
	assert.Equal(t, domain.SourceKindFile, got.Kind)
	assert.Equal(t, src.Content, got.Content)
	assert.Equal(t, domain.SourceStatusPending, got.Status)
	assert.Empty(t, got.ErrorMessage)
}

func TestSourceRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceRepository(pool)

	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
}

func TestSourceRepository_StatusTransitions(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceRepository(pool)
	src := newTestSource(uuid.NewString())
	require.NoError(t, repo.Create(ctx, src))

	require.NoError(t, repo.SetStatus(ctx, src.ID, domain.SourceStatusProcessing))
	got, err := repo.GetByID(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceStatusProcessing, got.Status)

	require.NoError(t, repo.MarkCompleted(ctx, src.ID, 1234))
	got, err = repo.GetByID(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceStatusCompleted, got.Status)
	assert.Equal(t, 1234, got.CharCount)
	assert.Empty(t, got.ErrorMessage)
}

func TestSourceRepository_MarkFailed(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceRepository(pool)
	src := newTestSource(uuid.NewString())
	require.NoError(t, repo.Create(ctx, src))

	require.NoError(t, repo.MarkFailed(ctx, src.ID, "provider returned 429"))

	got, err := repo.GetByID(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceStatusFailed, got.Status)
	assert.Equal(t, "provider returned 429", got.ErrorMessage)

	// a later failure updates the message in place
	require.NoError(t, repo.MarkFailed(ctx, src.ID, "empty content"))
	got, err = repo.GetByID(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, "empty content", got.ErrorMessage)
}

func TestSourceRepository_MarkCompleted_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceRepository(pool)
	err := repo.MarkCompleted(ctx, uuid.NewString(), 10)
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
}

func TestSourceRepository_ClaimPending(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceRepository(pool)

	first := newTestSource(uuid.NewString())
	require.NoError(t, repo.Create(ctx, first))
	time.Sleep(10 * time.Millisecond)
	second := newTestSource(uuid.NewString())
	require.NoError(t, repo.Create(ctx, second))

	done := newTestSource(uuid.NewString())
	done.Status = domain.SourceStatusCompleted
	require.NoError(t, repo.Create(ctx, done))

	claimed, err := repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, first.ID, claimed[0].ID)
	assert.Equal(t, second.ID, claimed[1].ID)
	for _, src := range claimed {
		assert.Equal(t, domain.SourceStatusProcessing, src.Status)
	}

	// nothing left to claim
	claimed, err = repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestSourceRepository_ClaimPending_RespectsLimit(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceRepository(pool)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, newTestSource(uuid.NewString())))
	}

	claimed, err := repo.ClaimPending(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, claimed, 2)
}
