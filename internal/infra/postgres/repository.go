package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jinford/rag-embed/internal/core/embedding"
	"github.com/jinford/rag-embed/internal/infra/postgres/sqlc"
	"github.com/jinford/rag-embed/internal/platform/database"
)

// Pool はクエリ実行とトランザクション開始ができる接続（*pgxpool.Pool または pgxmock）
type Pool interface {
	sqlc.DBTX
	database.TxBeginner
}

// Repository は embedding.Repository インターフェースを実装する PostgreSQL リポジトリです
// 各操作はプールから接続を借りて実行し、操作の終了時に必ず返却します
type Repository struct {
	pool      Pool
	q         *sqlc.Queries
	timeout   time.Duration
	dimension int
	logger    *slog.Logger
}

// コンパイル時の型チェック
var _ embedding.Repository = (*Repository)(nil)

type repositoryOptions struct {
	timeout   time.Duration
	dimension int
	logger    *slog.Logger
}

// RepositoryOption は Repository のオプション設定
type RepositoryOption func(*repositoryOptions)

// WithOperationTimeout は1回のストア操作のタイムアウトを設定します（0 で無効）
func WithOperationTimeout(timeout time.Duration) RepositoryOption {
	return func(o *repositoryOptions) {
		o.timeout = timeout
	}
}

// WithDimension は挿入時に検証するベクトル次元数 D を設定します（0 で検証しない）
func WithDimension(dimension int) RepositoryOption {
	return func(o *repositoryOptions) {
		o.dimension = dimension
	}
}

// WithRepositoryLogger は Repository にロガーを設定します
func WithRepositoryLogger(logger *slog.Logger) RepositoryOption {
	return func(o *repositoryOptions) {
		o.logger = logger
	}
}

// NewRepository は新しい Repository を作成します
func NewRepository(pool Pool, opts ...RepositoryOption) *Repository {
	options := repositoryOptions{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &Repository{
		pool:      pool,
		q:         sqlc.New(pool),
		timeout:   options.timeout,
		dimension: options.dimension,
		logger:    options.logger,
	}
}

func (r *Repository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func storageError(op string, err error) error {
	return &embedding.StorageError{Op: op, Err: err}
}

// Insert は1件のレコードを追加します
func (r *Repository) Insert(ctx context.Context, record embedding.NewRecord) (embedding.InsertedRecord, error) {
	if err := record.Validate(r.dimension); err != nil {
		return embedding.InsertedRecord{}, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	row, err := r.q.InsertEmbedding(ctx, toInsertParams(record))
	if err != nil {
		return embedding.InsertedRecord{}, storageError("insert", err)
	}

	return embedding.InsertedRecord{
		ID:        PgtypeToID(row.ID),
		CreatedAt: PgtypeToTime(row.CreatedAt),
	}, nil
}

// InsertBatch は複数レコードを1トランザクションで追加します
// いずれかの挿入またはコミットが失敗した場合はロールバックされ、テーブルは変更されません
func (r *Repository) InsertBatch(ctx context.Context, records []embedding.NewRecord) ([]embedding.InsertedRecord, error) {
	if len(records) == 0 {
		return []embedding.InsertedRecord{}, nil
	}
	for i, record := range records {
		if err := record.Validate(r.dimension); err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	inserted, err := database.Transact(ctx, r.pool, func(tx pgx.Tx) ([]embedding.InsertedRecord, error) {
		q := r.q.WithTx(tx)
		result := make([]embedding.InsertedRecord, 0, len(records))
		for i, record := range records {
			row, err := q.InsertEmbedding(ctx, toInsertParams(record))
			if err != nil {
				return nil, fmt.Errorf("insert record %d/%d: %w", i+1, len(records), err)
			}
			result = append(result, embedding.InsertedRecord{
				ID:        PgtypeToID(row.ID),
				CreatedAt: PgtypeToTime(row.CreatedAt),
			})
		}
		return result, nil
	})
	if err != nil {
		return nil, storageError("insert batch", err)
	}

	r.logger.Debug("バッチをコミット", "records", len(inserted))
	return inserted, nil
}

// Get は ID でレコードを取得します。存在しない場合は found=false を返します
func (r *Repository) Get(ctx context.Context, id embedding.ID) (embedding.Record, bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	row, err := r.q.GetEmbedding(ctx, IDToPgtype(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return embedding.Record{}, false, nil
		}
		return embedding.Record{}, false, storageError("get", err)
	}

	return embedding.Record{
		ID:        PgtypeToID(row.ID),
		Content:   row.Content,
		Category:  row.Category,
		Embedding: VectorToFloat32(row.Embedding),
		CreatedAt: PgtypeToTime(row.CreatedAt),
	}, true, nil
}

// List は created_at 降順で最大 Limit 件を返します（ベクトルは含まない）
func (r *Repository) List(ctx context.Context, query embedding.ListQuery) ([]embedding.RecordSummary, error) {
	if query.Limit <= 0 {
		return nil, &embedding.ValidationError{Field: "limit", Reason: fmt.Sprintf("must be positive, got %d", query.Limit)}
	}
	limit := int32(math.MaxInt32)
	if query.Limit < math.MaxInt32 {
		limit = int32(query.Limit)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if query.Category == "" {
		rows, err := r.q.ListEmbeddings(ctx, limit)
		if err != nil {
			return nil, storageError("list", err)
		}
		result := make([]embedding.RecordSummary, 0, len(rows))
		for _, row := range rows {
			result = append(result, embedding.RecordSummary{
				ID:        PgtypeToID(row.ID),
				Content:   row.Content,
				Category:  row.Category,
				CreatedAt: PgtypeToTime(row.CreatedAt),
			})
		}
		return result, nil
	}

	rows, err := r.q.ListEmbeddingsByCategory(ctx, sqlc.ListEmbeddingsByCategoryParams{
		Category: query.Category,
		Limit:    limit,
	})
	if err != nil {
		return nil, storageError("list", err)
	}
	result := make([]embedding.RecordSummary, 0, len(rows))
	for _, row := range rows {
		result = append(result, embedding.RecordSummary{
			ID:        PgtypeToID(row.ID),
			Content:   row.Content,
			Category:  row.Category,
			CreatedAt: PgtypeToTime(row.CreatedAt),
		})
	}
	return result, nil
}

// Count はレコード数を返します（category が空なら全件）
func (r *Repository) Count(ctx context.Context, category string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var (
		count int64
		err   error
	)
	if category == "" {
		count, err = r.q.CountEmbeddings(ctx)
	} else {
		count, err = r.q.CountEmbeddingsByCategory(ctx, category)
	}
	if err != nil {
		return 0, storageError("count", err)
	}
	return count, nil
}

// DistinctCategories はレコードが存在するカテゴリを昇順で返します
func (r *Repository) DistinctCategories(ctx context.Context) ([]string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	categories, err := r.q.ListDistinctCategories(ctx)
	if err != nil {
		return nil, storageError("distinct categories", err)
	}
	return categories, nil
}

// DeleteByID はレコードを削除し、存在した場合のみ true を返します
func (r *Repository) DeleteByID(ctx context.Context, id embedding.ID) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.q.DeleteEmbedding(ctx, IDToPgtype(id))
	if err != nil {
		return false, storageError("delete", err)
	}
	return rows > 0, nil
}

// DeleteByCategory はカテゴリ内の全レコードを1文で削除し、削除件数を返します
func (r *Repository) DeleteByCategory(ctx context.Context, category string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.q.DeleteEmbeddingsByCategory(ctx, category)
	if err != nil {
		return 0, storageError("delete by category", err)
	}
	return rows, nil
}

// Stats は1つのクエリで集計スナップショットを返します
func (r *Repository) Stats(ctx context.Context) (embedding.Stats, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	row, err := r.q.GetEmbeddingStats(ctx)
	if err != nil {
		return embedding.Stats{}, storageError("stats", err)
	}

	return embedding.Stats{
		Total:                 row.Total,
		DistinctCategoryCount: row.DistinctCategories,
		EarliestCreatedAt:     PgtypeToTimePtr(row.EarliestCreatedAt),
		LatestCreatedAt:       PgtypeToTimePtr(row.LatestCreatedAt),
	}, nil
}

// VerifyDimension は保存済みベクトルがすべて設定された次元数 D であることを確認します
func (r *Repository) VerifyDimension(ctx context.Context) error {
	if r.dimension <= 0 {
		return nil
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	dims, err := r.q.ListEmbeddingDimensions(ctx)
	if err != nil {
		return storageError("verify dimension", err)
	}
	for _, d := range dims {
		if int(d) != r.dimension {
			return &embedding.ValidationError{
				Field:  "collection",
				Reason: fmt.Sprintf("contains vectors of dimension %d, configured dimension is %d", d, r.dimension),
			}
		}
	}
	return nil
}

func toInsertParams(record embedding.NewRecord) sqlc.InsertEmbeddingParams {
	return sqlc.InsertEmbeddingParams{
		Content:   record.Content,
		Category:  embedding.NormalizeCategory(record.Category),
		Embedding: Float32ToVector(record.Embedding),
	}
}
