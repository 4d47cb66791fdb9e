package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/rag-embed/internal/core/embedding"
)

// Service は保存済みレコードの参照・集計・削除を提供する
// 独自の状態は持たず、すべて Repository から導出する
type Service struct {
	repository embedding.Repository
	logger     *slog.Logger
}

type serviceOptions struct {
	logger *slog.Logger
}

// Option は Service のオプション設定
type Option func(*serviceOptions)

// WithLogger は Service にロガーを設定する
func WithLogger(logger *slog.Logger) Option {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// NewService は新しい Service を作成する
func NewService(repo embedding.Repository, opts ...Option) *Service {
	options := serviceOptions{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &Service{
		repository: repo,
		logger:     options.logger,
	}
}

// List は created_at 降順で最大 limit 件のレコードを返す（category が空なら全カテゴリ）
func (s *Service) List(ctx context.Context, category string, limit int) ([]embedding.RecordSummary, error) {
	if limit <= 0 {
		return nil, &embedding.ValidationError{Field: "limit", Reason: fmt.Sprintf("must be positive, got %d", limit)}
	}

	records, err := s.repository.List(ctx, embedding.ListQuery{
		Category: embedding.NormalizeCategory(category),
		Limit:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return records, nil
}

// Count はレコード数を返す（category が空なら全件）
func (s *Service) Count(ctx context.Context, category string) (int64, error) {
	count, err := s.repository.Count(ctx, embedding.NormalizeCategory(category))
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// Categories はレコードが1件以上存在するカテゴリをソート済みで返す
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.repository.DistinctCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// Stats はコレクション全体の集計スナップショットを返す
func (s *Service) Stats(ctx context.Context) (embedding.Stats, error) {
	stats, err := s.repository.Stats(ctx)
	if err != nil {
		return embedding.Stats{}, fmt.Errorf("failed to get stats: %w", err)
	}
	return stats, nil
}

// DeleteByID はレコードを削除する。存在しない ID はエラーではなく false を返す
// 呼び出し側で確認を得てから実行すること
func (s *Service) DeleteByID(ctx context.Context, id embedding.ID) (bool, error) {
	if id.IsZero() {
		return false, &embedding.ValidationError{Field: "id", Reason: "must not be empty"}
	}

	deleted, err := s.repository.DeleteByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete record %s: %w", id, err)
	}

	s.logger.Info("レコードを削除", "id", id.String(), "deleted", deleted)
	return deleted, nil
}

// DeleteByCategory はカテゴリ内の全レコードを削除し、削除件数を返す
// 呼び出し側で確認を得てから実行すること
func (s *Service) DeleteByCategory(ctx context.Context, category string) (int64, error) {
	category = embedding.NormalizeCategory(category)
	if category == "" {
		return 0, &embedding.ValidationError{Field: "category", Reason: "must not be empty"}
	}

	deleted, err := s.repository.DeleteByCategory(ctx, category)
	if err != nil {
		return 0, fmt.Errorf("failed to delete category %q: %w", category, err)
	}

	s.logger.Info("カテゴリを削除", "category", category, "deleted", deleted)
	return deleted, nil
}
