package ingestion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/rag-embed/internal/core/document"
	"github.com/jinford/rag-embed/internal/core/embedding"
	"github.com/jinford/rag-embed/internal/core/embedding/embeddingtest"
	"github.com/jinford/rag-embed/internal/core/ingestion/chunk"
)

var stubVector = []float32{0.1, 0.2, 0.3, 0.4}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 2 * time.Millisecond
	return cfg
}

func newTestService(repo embedding.Repository, embedder embedding.Embedder, opts ...Option) *Service {
	base := []Option{WithLogger(discardLogger()), WithConfig(testConfig())}
	return NewService(repo, embedder, append(base, opts...)...)
}

// threeBlockText はブロックサイズ 400 で3ブロックになるテキスト
func threeBlockText() string {
	return strings.Repeat("palavra ", 150)
}

func retryableErr() error {
	return &embedding.EmbeddingServiceError{Op: "embed", StatusCode: 429, Retryable: true, Err: embeddingtest.ErrStub}
}

func permanentErr() error {
	return &embedding.EmbeddingServiceError{Op: "embed", StatusCode: 401, Err: embeddingtest.ErrStub}
}

type progressRecorder struct {
	mu    sync.Mutex
	calls [][2]int
}

func (p *progressRecorder) record(done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, [2]int{done, total})
}

func TestIngest_StoresEveryBlock(t *testing.T) {
	ctx := context.Background()
	repo := embeddingtest.NewMemoryRepository()
	embedder := embeddingtest.NewStubEmbedder(stubVector)
	svc := newTestService(repo, embedder)
	progress := &progressRecorder{}

	text := threeBlockText()
	result, err := svc.Ingest(ctx, Request{Text: text, Category: "manual", ChunkSize: 400}, progress.record)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Inserted)
	assert.Equal(t, "manual", result.Category)
	assert.Len(t, result.IDs, 3)
	assert.NotEqual(t, result.IDs[0], result.IDs[1])

	count, err := repo.Count(ctx, "manual")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	records := repo.Records()
	blocks := chunk.Split(text, 400)
	require.Len(t, records, len(blocks))
	for i, rec := range records {
		assert.Equal(t, blocks[i], rec.Content)
		assert.Equal(t, stubVector, rec.Embedding)
		assert.Equal(t, "manual", rec.Category)
	}

	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, progress.calls)
	assert.Equal(t, 3, embedder.Calls())
}

func TestIngest_CategoryIsTrimmed(t *testing.T) {
	ctx := context.Background()
	repo := embeddingtest.NewMemoryRepository()
	svc := newTestService(repo, embeddingtest.NewStubEmbedder(stubVector))

	result, err := svc.Ingest(ctx, Request{Text: "regulamento interno", Category: "  faq  "}, nil)
	require.NoError(t, err)
	assert.Equal(t, "faq", result.Category)

	count, err := repo.Count(ctx, "faq")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestIngest_DefaultChunkSize(t *testing.T) {
	ctx := context.Background()
	repo := embeddingtest.NewMemoryRepository()
	embedder := embeddingtest.NewStubEmbedder(stubVector)
	svc := newTestService(repo, embedder)

	text := threeBlockText()
	result, err := svc.Ingest(ctx, Request{Text: text, Category: "manual"}, nil)
	require.NoError(t, err)
	assert.Equal(t, len(chunk.Split(text, DefaultChunkSize)), result.Inserted)
}

func TestIngest_ValidationFailsBeforeAnyIO(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{name: "空のテキスト", req: Request{Text: "", Category: "x"}},
		{name: "空白のみのテキスト", req: Request{Text: "  \n\t ", Category: "x"}},
		{name: "空のカテゴリ", req: Request{Text: "conteúdo", Category: ""}},
		{name: "空白のみのカテゴリ", req: Request{Text: "conteúdo", Category: "   "}},
		{name: "ブロックサイズが下限未満", req: Request{Text: "conteúdo", Category: "x", ChunkSize: 399}},
		{name: "ブロックサイズが上限超過", req: Request{Text: "conteúdo", Category: "x", ChunkSize: 1501}},
		{name: "負のブロックサイズ", req: Request{Text: "conteúdo", Category: "x", ChunkSize: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := embeddingtest.NewMemoryRepository()
			embedder := embeddingtest.NewStubEmbedder(stubVector)
			svc := newTestService(repo, embedder)

			result, err := svc.Ingest(context.Background(), tt.req, nil)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, embedding.ErrValidation)

			var validationErr *embedding.ValidationError
			assert.ErrorAs(t, err, &validationErr)

			assert.Equal(t, 0, embedder.Calls())
			assert.Equal(t, 0, repo.InsertBatchCalls)
		})
	}
}

func TestIngest_EmbeddingFailureLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	repo := embeddingtest.NewMemoryRepository()
	embedder := embeddingtest.NewStubEmbedder(stubVector)
	embedder.EmbedFunc = func(ctx context.Context, call int, text string) ([]float32, error) {
		if call == 2 {
			return nil, permanentErr()
		}
		return stubVector, nil
	}
	svc := newTestService(repo, embedder)
	progress := &progressRecorder{}

	_, err := svc.Ingest(ctx, Request{Text: threeBlockText(), Category: "manual", ChunkSize: 400}, progress.record)
	require.Error(t, err)
	assert.ErrorIs(t, err, embedding.ErrEmbeddingService)
	assert.Contains(t, err.Error(), "block 2/3")

	count, err := repo.Count(ctx, "manual")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
	assert.Equal(t, 0, repo.InsertBatchCalls)
	assert.Equal(t, 2, embedder.Calls())
	assert.Equal(t, [][2]int{{1, 3}}, progress.calls)
}

func TestIngest_RetriesRetryableErrors(t *testing.T) {
	ctx := context.Background()
	repo := embeddingtest.NewMemoryRepository()
	embedder := embeddingtest.NewStubEmbedder(stubVector)
	embedder.EmbedFunc = func(ctx context.Context, call int, text string) ([]float32, error) {
		if call == 1 || call == 2 {
			return nil, retryableErr()
		}
		return stubVector, nil
	}
	svc := newTestService(repo, embedder)

	result, err := svc.Ingest(ctx, Request{Text: "um texto curto", Category: "faq"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 3, embedder.Calls())
}

func TestIngest_GivesUpAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	repo := embeddingtest.NewMemoryRepository()
	embedder := embeddingtest.NewStubEmbedder(stubVector)
	embedder.EmbedFunc = func(ctx context.Context, call int, text string) ([]float32, error) {
		return nil, retryableErr()
	}

	cfg := testConfig()
	cfg.MaxRetries = 2
	svc := newTestService(repo, embedder, WithConfig(cfg))

	_, err := svc.Ingest(ctx, Request{Text: "um texto curto", Category: "faq"}, nil)
	require.Error(t, err)
	assert.True(t, embedding.IsRetryable(err))
	assert.Equal(t, 3, embedder.Calls())
	assert.Equal(t, 0, repo.InsertBatchCalls)
}

func TestIngest_DoesNotRetryPermanentErrors(t *testing.T) {
	repo := embeddingtest.NewMemoryRepository()
	embedder := embeddingtest.NewStubEmbedder(stubVector)
	embedder.EmbedFunc = func(ctx context.Context, call int, text string) ([]float32, error) {
		return nil, permanentErr()
	}
	svc := newTestService(repo, embedder)

	_, err := svc.Ingest(context.Background(), Request{Text: "um texto curto", Category: "faq"}, nil)
	require.Error(t, err)

	var svcErr *embedding.EmbeddingServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 401, svcErr.StatusCode)
	assert.Equal(t, 1, embedder.Calls())
}

func TestIngest_DimensionMismatchIsRejected(t *testing.T) {
	ctx := context.Background()
	repo := embeddingtest.NewMemoryRepository()
	embedder := embeddingtest.NewStubEmbedder(stubVector)
	embedder.EmbedFunc = func(ctx context.Context, call int, text string) ([]float32, error) {
		return []float32{0.1, 0.2, 0.3}, nil
	}
	svc := newTestService(repo, embedder)

	_, err := svc.Ingest(ctx, Request{Text: "um texto curto", Category: "faq"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, embedding.ErrEmbeddingService)
	assert.Equal(t, 1, embedder.Calls())
	assert.Empty(t, repo.Records())
}

func TestIngest_CancellationInsertsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := embeddingtest.NewMemoryRepository()
	embedder := embeddingtest.NewStubEmbedder(stubVector)
	embedder.EmbedFunc = func(_ context.Context, call int, text string) ([]float32, error) {
		if call == 2 {
			cancel()
		}
		return stubVector, nil
	}
	svc := newTestService(repo, embedder)

	_, err := svc.Ingest(ctx, Request{Text: threeBlockText(), Category: "manual", ChunkSize: 400}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Empty(t, repo.Records())
	assert.Equal(t, 0, repo.InsertBatchCalls)
	assert.LessOrEqual(t, embedder.Calls(), 2)
}

func TestIngest_CancellationDuringRetryKeepsServiceError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := embeddingtest.NewMemoryRepository()
	embedder := embeddingtest.NewStubEmbedder(stubVector)
	embedder.EmbedFunc = func(_ context.Context, call int, text string) ([]float32, error) {
		cancel()
		return nil, retryableErr()
	}

	cfg := testConfig()
	cfg.InitialBackoff = time.Minute
	cfg.MaxBackoff = time.Minute
	svc := newTestService(repo, embedder, WithConfig(cfg))

	_, err := svc.Ingest(ctx, Request{Text: "um texto curto", Category: "faq"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, embedding.ErrEmbeddingService)
	assert.ErrorIs(t, err, embeddingtest.ErrStub)
	assert.False(t, embedding.IsRetryable(err))

	var svcErr *embedding.EmbeddingServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 429, svcErr.StatusCode)

	assert.Equal(t, 1, embedder.Calls())
	assert.Equal(t, 0, repo.InsertBatchCalls)
}

func TestIngest_CommitFailureLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	repo := embeddingtest.NewMemoryRepository()
	repo.InsertBatchErr = errors.New("connection reset")
	svc := newTestService(repo, embeddingtest.NewStubEmbedder(stubVector))

	_, err := svc.Ingest(ctx, Request{Text: threeBlockText(), Category: "manual", ChunkSize: 400}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, embedding.ErrStorage)

	repo.InsertBatchErr = nil
	count, err := repo.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestIngest_ParallelWorkersKeepBlockOrder(t *testing.T) {
	ctx := context.Background()
	repo := embeddingtest.NewMemoryRepository()
	embedder := embeddingtest.NewStubEmbedder(stubVector)
	embedder.EmbedFunc = func(ctx context.Context, call int, text string) ([]float32, error) {
		return []float32{float32(chunk.Length(text)), 0, 0, 0}, nil
	}

	cfg := testConfig()
	cfg.EmbeddingWorkers = 4
	svc := newTestService(repo, embedder, WithConfig(cfg))
	progress := &progressRecorder{}

	var words []string
	for i := 0; i < 600; i++ {
		words = append(words, strings.Repeat("x", i%9+1))
	}
	text := strings.Join(words, " ")

	result, err := svc.Ingest(ctx, Request{Text: text, Category: "paralelo", ChunkSize: 400}, progress.record)
	require.NoError(t, err)

	blocks := chunk.Split(text, 400)
	require.Equal(t, len(blocks), result.Inserted)

	records := repo.Records()
	for i, rec := range records {
		assert.Equal(t, blocks[i], rec.Content)
		assert.Equal(t, float32(chunk.Length(blocks[i])), rec.Embedding[0])
	}

	require.Len(t, progress.calls, len(blocks))
	for i, call := range progress.calls {
		assert.Equal(t, i+1, call[0])
		assert.Equal(t, len(blocks), call[1])
	}
}

type wordCounter struct{}

func (wordCounter) CountTokens(text string) int {
	return len(strings.Fields(text))
}

func TestIngest_TokenLimitIsCheckedBeforeEmbedding(t *testing.T) {
	repo := embeddingtest.NewMemoryRepository()
	embedder := embeddingtest.NewStubEmbedder(stubVector)

	cfg := testConfig()
	cfg.MaxTokensPerBlock = 10
	svc := newTestService(repo, embedder, WithConfig(cfg), WithTokenCounter(wordCounter{}))

	_, err := svc.Ingest(context.Background(), Request{Text: threeBlockText(), Category: "manual", ChunkSize: 400}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, embedding.ErrValidation)
	assert.Equal(t, 0, embedder.Calls())
}

func TestIngest_ReportsTokenEstimate(t *testing.T) {
	repo := embeddingtest.NewMemoryRepository()
	svc := newTestService(repo, embeddingtest.NewStubEmbedder(stubVector), WithTokenCounter(wordCounter{}))

	result, err := svc.Ingest(context.Background(), Request{Text: threeBlockText(), Category: "manual", ChunkSize: 400}, nil)
	require.NoError(t, err)
	assert.Equal(t, 150, result.Tokens)
}

func TestIngestDocuments_IsolatesFailures(t *testing.T) {
	ctx := context.Background()
	repo := embeddingtest.NewMemoryRepository()
	embedder := embeddingtest.NewStubEmbedder(stubVector)
	embedder.EmbedFunc = func(ctx context.Context, call int, text string) ([]float32, error) {
		if strings.Contains(text, "falha") {
			return nil, permanentErr()
		}
		return stubVector, nil
	}
	svc := newTestService(repo, embedder)

	docs := []*document.Document{
		{Source: "docs/a.md", Text: "primeiro documento"},
		{Source: "docs/vazio.md", Text: "   "},
		{Source: "docs/b.md", Text: "este vai falha"},
		{Source: "docs/c.md", Text: "terceiro documento"},
	}

	var seen []string
	progress := func(index, total int, source string) ProgressFunc {
		seen = append(seen, source)
		assert.Equal(t, len(docs), total)
		return nil
	}

	result, err := svc.IngestDocuments(ctx, docs, "docs", 0, progress)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Documents)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 2, result.Inserted)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "docs/b.md", result.Failures[0].Source)
	assert.Equal(t, []string{"docs/a.md", "docs/vazio.md", "docs/b.md", "docs/c.md"}, seen)

	count, err := repo.Count(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestIngestDocuments_StopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := embeddingtest.NewMemoryRepository()
	svc := newTestService(repo, embeddingtest.NewStubEmbedder(stubVector))

	docs := []*document.Document{
		{Source: "a.txt", Text: "primeiro"},
		{Source: "b.txt", Text: "segundo"},
	}
	progress := func(index, total int, source string) ProgressFunc {
		if index == 2 {
			cancel()
		}
		return nil
	}

	result, err := svc.IngestDocuments(ctx, docs, "docs", 0, progress)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, result.Succeeded)
	assert.Len(t, repo.Records(), 1)
}

type staticSource struct {
	docs []*document.Document
	err  error
}

func (s staticSource) Name() string { return "static" }

func (s staticSource) Documents(ctx context.Context) ([]*document.Document, error) {
	return s.docs, s.err
}

func TestIngestSource(t *testing.T) {
	ctx := context.Background()

	t.Run("ドキュメントを取り込む", func(t *testing.T) {
		repo := embeddingtest.NewMemoryRepository()
		svc := newTestService(repo, embeddingtest.NewStubEmbedder(stubVector))

		result, err := svc.IngestSource(ctx, staticSource{docs: []*document.Document{{Source: "x", Text: "conteúdo"}}}, "repo", 0, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Succeeded)
	})

	t.Run("カテゴリ未指定はソース取得前に失敗", func(t *testing.T) {
		svc := newTestService(embeddingtest.NewMemoryRepository(), embeddingtest.NewStubEmbedder(stubVector))

		_, err := svc.IngestSource(ctx, staticSource{err: errors.New("should not be called")}, " ", 0, nil)
		assert.ErrorIs(t, err, embedding.ErrValidation)
	})

	t.Run("ソース取得エラーを伝播", func(t *testing.T) {
		svc := newTestService(embeddingtest.NewMemoryRepository(), embeddingtest.NewStubEmbedder(stubVector))

		_, err := svc.IngestSource(ctx, staticSource{err: errors.New("clone failed")}, "repo", 0, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "clone failed")
	})
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.DefaultChunkSize = 2000
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaxChunkSize = 100
	assert.Error(t, cfg.Validate())
}
