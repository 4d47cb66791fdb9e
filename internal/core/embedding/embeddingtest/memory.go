// Package embeddingtest はテスト用のインメモリ Repository と Embedder を提供する
package embeddingtest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jinford/rag-embed/internal/core/embedding"
)

var _ embedding.Repository = (*MemoryRepository)(nil)

// MemoryRepository はトランザクションの全件成功/全件破棄を模倣するインメモリ Repository
type MemoryRepository struct {
	mu      sync.Mutex
	records []embedding.Record
	now     func() time.Time

	// InsertBatchErr が設定されている場合、InsertBatch は何も書き込まずにこのエラーを返す
	InsertBatchErr error
	// ReadErr が設定されている場合、読み取り系の操作はこのエラーを返す
	ReadErr error

	InsertBatchCalls int
}

// NewMemoryRepository は空の MemoryRepository を作成する
func NewMemoryRepository() *MemoryRepository {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	return &MemoryRepository{
		now: func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Second)
		},
	}
}

func (r *MemoryRepository) Insert(ctx context.Context, record embedding.NewRecord) (embedding.InsertedRecord, error) {
	inserted, err := r.InsertBatch(ctx, []embedding.NewRecord{record})
	if err != nil {
		return embedding.InsertedRecord{}, err
	}
	return inserted[0], nil
}

func (r *MemoryRepository) InsertBatch(ctx context.Context, records []embedding.NewRecord) ([]embedding.InsertedRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.InsertBatchCalls++
	if r.InsertBatchErr != nil {
		return nil, &embedding.StorageError{Op: "insert batch", Err: r.InsertBatchErr}
	}
	if err := ctx.Err(); err != nil {
		return nil, &embedding.StorageError{Op: "insert batch", Err: err}
	}
	if len(records) == 0 {
		return []embedding.InsertedRecord{}, nil
	}

	staged := make([]embedding.Record, 0, len(records))
	for _, rec := range records {
		if err := rec.Validate(0); err != nil {
			return nil, err
		}
		staged = append(staged, embedding.Record{
			ID:        embedding.NewID(uuid.New()),
			Content:   rec.Content,
			Category:  embedding.NormalizeCategory(rec.Category),
			Embedding: append([]float32(nil), rec.Embedding...),
			CreatedAt: r.now(),
		})
	}

	r.records = append(r.records, staged...)

	inserted := make([]embedding.InsertedRecord, len(staged))
	for i, rec := range staged {
		inserted[i] = embedding.InsertedRecord{ID: rec.ID, CreatedAt: rec.CreatedAt}
	}
	return inserted, nil
}

func (r *MemoryRepository) List(ctx context.Context, query embedding.ListQuery) ([]embedding.RecordSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ReadErr != nil {
		return nil, &embedding.StorageError{Op: "list", Err: r.ReadErr}
	}

	matched := make([]embedding.RecordSummary, 0, len(r.records))
	for _, rec := range r.records {
		if query.Category != "" && rec.Category != query.Category {
			continue
		}
		matched = append(matched, embedding.RecordSummary{
			ID:        rec.ID,
			Content:   rec.Content,
			Category:  rec.Category,
			CreatedAt: rec.CreatedAt,
		})
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if query.Limit >= 0 && len(matched) > query.Limit {
		matched = matched[:query.Limit]
	}
	return matched, nil
}

func (r *MemoryRepository) Count(ctx context.Context, category string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ReadErr != nil {
		return 0, &embedding.StorageError{Op: "count", Err: r.ReadErr}
	}

	var n int64
	for _, rec := range r.records {
		if category == "" || rec.Category == category {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) DistinctCategories(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ReadErr != nil {
		return nil, &embedding.StorageError{Op: "distinct categories", Err: r.ReadErr}
	}

	seen := make(map[string]struct{})
	categories := []string{}
	for _, rec := range r.records {
		if _, ok := seen[rec.Category]; ok {
			continue
		}
		seen[rec.Category] = struct{}{}
		categories = append(categories, rec.Category)
	}
	sort.Strings(categories)
	return categories, nil
}

func (r *MemoryRepository) DeleteByID(ctx context.Context, id embedding.ID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, rec := range r.records {
		if rec.ID == id {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) DeleteByCategory(ctx context.Context, category string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.records[:0]
	var deleted int64
	for _, rec := range r.records {
		if rec.Category == category {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return deleted, nil
}

func (r *MemoryRepository) Stats(ctx context.Context) (embedding.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ReadErr != nil {
		return embedding.Stats{}, &embedding.StorageError{Op: "stats", Err: r.ReadErr}
	}

	stats := embedding.Stats{Total: int64(len(r.records))}
	categories := make(map[string]struct{})
	for _, rec := range r.records {
		categories[rec.Category] = struct{}{}
		createdAt := rec.CreatedAt
		if stats.EarliestCreatedAt == nil || createdAt.Before(*stats.EarliestCreatedAt) {
			stats.EarliestCreatedAt = &createdAt
		}
		if stats.LatestCreatedAt == nil || createdAt.After(*stats.LatestCreatedAt) {
			stats.LatestCreatedAt = &createdAt
		}
	}
	stats.DistinctCategoryCount = int64(len(categories))
	return stats, nil
}

// Records は保存済みレコードのコピーを返す
func (r *MemoryRepository) Records() []embedding.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]embedding.Record(nil), r.records...)
}

var _ embedding.Embedder = (*StubEmbedder)(nil)

// ErrStub は StubEmbedder が返す既定のエラー
var ErrStub = errors.New("stub embedder failure")

// StubEmbedder は固定ベクトルを返す Embedder
// EmbedFunc が設定されている場合はそちらを優先する
type StubEmbedder struct {
	Vector    []float32
	EmbedFunc func(ctx context.Context, call int, text string) ([]float32, error)

	mu     sync.Mutex
	calls  int
	inputs []string
}

// NewStubEmbedder は常に vector を返す StubEmbedder を作成する
func NewStubEmbedder(vector []float32) *StubEmbedder {
	return &StubEmbedder{Vector: vector}
}

func (e *StubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	call := e.calls
	e.inputs = append(e.inputs, text)
	e.mu.Unlock()

	if e.EmbedFunc != nil {
		return e.EmbedFunc(ctx, call, text)
	}
	return append([]float32(nil), e.Vector...), nil
}

func (e *StubEmbedder) Dimension() int {
	return len(e.Vector)
}

func (e *StubEmbedder) ModelName() string {
	return "stub-embedding"
}

// Calls は Embed の呼び出し回数を返す
func (e *StubEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Inputs は Embed に渡されたテキストを呼び出し順に返す
func (e *StubEmbedder) Inputs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.inputs...)
}
