package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/rag-embed/internal/core/embedding"
	"github.com/jinford/rag-embed/internal/core/embedding/embeddingtest"
)

func newTestService(repo embedding.Repository) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, WithLogger(logger))
}

func seed(t *testing.T, repo *embeddingtest.MemoryRepository, category string, contents ...string) []embedding.ID {
	t.Helper()

	records := make([]embedding.NewRecord, len(contents))
	for i, content := range contents {
		records[i] = embedding.NewRecord{
			Content:   content,
			Category:  category,
			Embedding: []float32{0.1, 0.2, 0.3, 0.4},
		}
	}
	inserted, err := repo.InsertBatch(context.Background(), records)
	require.NoError(t, err)

	ids := make([]embedding.ID, len(inserted))
	for i, rec := range inserted {
		ids[i] = rec.ID
	}
	return ids
}

func TestService_DeleteByCategory(t *testing.T) {
	ctx := context.Background()
	repo := embeddingtest.NewMemoryRepository()
	seed(t, repo, "manual", "bloco um", "bloco dois", "bloco tres")
	svc := newTestService(repo)

	categories, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.Contains(t, categories, "manual")

	deleted, err := svc.DeleteByCategory(ctx, "manual")
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	records, err := svc.List(ctx, "manual", 10)
	require.NoError(t, err)
	assert.Empty(t, records)

	categories, err = svc.Categories(ctx)
	require.NoError(t, err)
	assert.NotContains(t, categories, "manual")

	deleted, err = svc.DeleteByCategory(ctx, "manual")
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}

func TestService_DeleteByCategoryKeepsOtherCategories(t *testing.T) {
	ctx := context.Background()
	repo := embeddingtest.NewMemoryRepository()
	seed(t, repo, "manual", "a", "b")
	seed(t, repo, "faq", "c")
	svc := newTestService(repo)

	deleted, err := svc.DeleteByCategory(ctx, " manual ")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	count, err := svc.Count(ctx, "faq")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	categories, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"faq"}, categories)
}

func TestService_DeleteByID(t *testing.T) {
	ctx := context.Background()
	repo := embeddingtest.NewMemoryRepository()
	ids := seed(t, repo, "manual", "a", "b")
	svc := newTestService(repo)

	t.Run("存在するIDは削除してtrue", func(t *testing.T) {
		deleted, err := svc.DeleteByID(ctx, ids[0])
		require.NoError(t, err)
		assert.True(t, deleted)

		count, err := svc.Count(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("同じIDの再削除はfalseで件数不変", func(t *testing.T) {
		deleted, err := svc.DeleteByID(ctx, ids[0])
		require.NoError(t, err)
		assert.False(t, deleted)

		count, err := svc.Count(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("未知のIDはfalse", func(t *testing.T) {
		deleted, err := svc.DeleteByID(ctx, embedding.NewID(uuid.New()))
		require.NoError(t, err)
		assert.False(t, deleted)

		count, err := svc.Count(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("ゼロ値のIDはバリデーションエラー", func(t *testing.T) {
		_, err := svc.DeleteByID(ctx, embedding.ID{})
		assert.ErrorIs(t, err, embedding.ErrValidation)
	})
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	repo := embeddingtest.NewMemoryRepository()
	seed(t, repo, "manual", "primeiro", "segundo", "terceiro")
	seed(t, repo, "faq", "quarto")
	svc := newTestService(repo)

	tests := []struct {
		name     string
		category string
		limit    int
		want     []string
	}{
		{name: "全カテゴリを新しい順に", category: "", limit: 10, want: []string{"quarto", "terceiro", "segundo", "primeiro"}},
		{name: "件数上限を守る", category: "", limit: 2, want: []string{"quarto", "terceiro"}},
		{name: "カテゴリで絞り込み", category: "manual", limit: 10, want: []string{"terceiro", "segundo", "primeiro"}},
		{name: "存在しないカテゴリ", category: "nada", limit: 10, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := svc.List(ctx, tt.category, tt.limit)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(records), tt.limit)

			got := make([]string, len(records))
			for i, rec := range records {
				got[i] = rec.Content
				if i > 0 {
					assert.False(t, rec.CreatedAt.After(records[i-1].CreatedAt))
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("0以下の上限はバリデーションエラー", func(t *testing.T) {
		_, err := svc.List(ctx, "", 0)
		assert.ErrorIs(t, err, embedding.ErrValidation)
	})
}

func TestService_StatsMatchesCountAndCategories(t *testing.T) {
	ctx := context.Background()
	repo := embeddingtest.NewMemoryRepository()
	svc := newTestService(repo)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Total)
	assert.Nil(t, stats.EarliestCreatedAt)
	assert.Nil(t, stats.LatestCreatedAt)

	seed(t, repo, "manual", "a", "b", "c")
	seed(t, repo, "faq", "d")

	stats, err = svc.Stats(ctx)
	require.NoError(t, err)

	total, err := svc.Count(ctx, "")
	require.NoError(t, err)
	categories, err := svc.Categories(ctx)
	require.NoError(t, err)

	assert.Equal(t, total, stats.Total)
	assert.Equal(t, int64(len(categories)), stats.DistinctCategoryCount)
	require.NotNil(t, stats.EarliestCreatedAt)
	require.NotNil(t, stats.LatestCreatedAt)
	assert.True(t, stats.EarliestCreatedAt.Before(*stats.LatestCreatedAt))
}

func TestService_ReadErrorsArePropagated(t *testing.T) {
	ctx := context.Background()
	repo := embeddingtest.NewMemoryRepository()
	repo.ReadErr = errors.New("connection refused")
	svc := newTestService(repo)

	_, err := svc.List(ctx, "", 10)
	assert.ErrorIs(t, err, embedding.ErrStorage)

	_, err = svc.Count(ctx, "")
	assert.ErrorIs(t, err, embedding.ErrStorage)

	_, err = svc.Categories(ctx)
	assert.ErrorIs(t, err, embedding.ErrStorage)

	_, err = svc.Stats(ctx)
	assert.ErrorIs(t, err, embedding.ErrStorage)
}

func TestService_DeleteByCategoryRequiresCategory(t *testing.T) {
	svc := newTestService(embeddingtest.NewMemoryRepository())

	_, err := svc.DeleteByCategory(context.Background(), "  ")
	assert.ErrorIs(t, err, embedding.ErrValidation)
}
