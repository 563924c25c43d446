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

func testVector(fill float32) []float32 {
	vec := make([]float32, 1536)
	for i := range vec {
		vec[i] = fill
	}
	return vec
}

func testRecords(sourceID, botID string, n int) []domain.EmbeddingRecord {
	records := make([]domain.EmbeddingRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, domain.EmbeddingRecord{
			ID:         uuid.NewString(),
			SourceID:   sourceID,
			BotID:      botID,
			ChunkIndex: i,
			Content:    "chunk content",
			Embedding:  testVector(float32(i) * 0.1),
			CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
		})
	}
	return records
}

func TestEmbeddingRepository_ReplaceForSource(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	sourceRepo := NewSourceRepository(pool)
	repo := NewEmbeddingRepository(pool)

	src := newTestSource(uuid.NewString())
	require.NoError(t, sourceRepo.Create(ctx, src))

	require.NoError(t, repo.ReplaceForSource(ctx, src.ID, testRecords(src.ID, src.BotID, 3)))

	count, err := repo.CountBySource(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// a second ingest fully replaces the first set
	require.NoError(t, repo.ReplaceForSource(ctx, src.ID, testRecords(src.ID, src.BotID, 2)))

	records, err := repo.ListBySource(ctx, src.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 0, records[0].ChunkIndex)
	assert.Equal(t, 1, records[1].ChunkIndex)
	assert.Len(t, records[0].Embedding, 1536)
}

func TestEmbeddingRepository_ReplaceForSource_Empty(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	sourceRepo := NewSourceRepository(pool)
	repo := NewEmbeddingRepository(pool)

	src := newTestSource(uuid.NewString())
	require.NoError(t, sourceRepo.Create(ctx, src))
	require.NoError(t, repo.ReplaceForSource(ctx, src.ID, testRecords(src.ID, src.BotID, 2)))

	// replacing with nothing clears the stored set
	require.NoError(t, repo.ReplaceForSource(ctx, src.ID, nil))

	count, err := repo.CountBySource(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestEmbeddingRepository_ReplaceForSource_IsolatedPerSource(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	sourceRepo := NewSourceRepository(pool)
	repo := NewEmbeddingRepository(pool)

	botID := uuid.NewString()
	a := newTestSource(botID)
	b := newTestSource(botID)
	require.NoError(t, sourceRepo.Create(ctx, a))
	require.NoError(t, sourceRepo.Create(ctx, b))

	require.NoError(t, repo.ReplaceForSource(ctx, a.ID, testRecords(a.ID, botID, 2)))
	require.NoError(t, repo.ReplaceForSource(ctx, b.ID, testRecords(b.ID, botID, 4)))

	// re-ingesting a must not touch b
	require.NoError(t, repo.ReplaceForSource(ctx, a.ID, testRecords(a.ID, botID, 1)))

	countA, err := repo.CountBySource(ctx, a.ID)
	require.NoError(t, err)
	countB, err := repo.CountBySource(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, countA)
	assert.Equal(t, 4, countB)
}
