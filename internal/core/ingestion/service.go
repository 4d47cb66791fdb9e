package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jinford/rag-embed/internal/core/embedding"
	"github.com/jinford/rag-embed/internal/core/ingestion/chunk"
)

// Request は1ドキュメント分の取り込み要求
type Request struct {
	Text      string
	Category  string
	ChunkSize int    // 0 の場合は Config.DefaultChunkSize
	Source    string // ログ用の識別子（任意）
}

// Result は取り込み結果
type Result struct {
	BatchID  uuid.UUID
	Category string
	Source   string
	Inserted int
	IDs      []embedding.ID
	Tokens   int // TokenCounter 設定時の推定トークン数
	Duration time.Duration
}

// ProgressFunc はブロックごとの Embedding 完了時に (完了数, 総数) で呼ばれる
type ProgressFunc func(done, total int)

// Service はテキストのチャンク化・Embedding 生成・永続化をひとつのアトミックな操作として提供する
type Service struct {
	repository   embedding.Repository
	embedder     embedding.Embedder
	tokenCounter chunk.TokenCounter
	config       Config
	logger       *slog.Logger
}

type serviceOptions struct {
	tokenCounter chunk.TokenCounter
	config       *Config
	logger       *slog.Logger
}

// Option は Service のオプション設定
type Option func(*serviceOptions)

// WithLogger は Service にロガーを設定する
func WithLogger(logger *slog.Logger) Option {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// WithConfig は取り込み設定を上書きする
func WithConfig(cfg Config) Option {
	return func(o *serviceOptions) {
		o.config = &cfg
	}
}

// WithTokenCounter はブロックのトークン数検証に使う TokenCounter を設定する
func WithTokenCounter(counter chunk.TokenCounter) Option {
	return func(o *serviceOptions) {
		o.tokenCounter = counter
	}
}

// NewService は新しい Service を作成する
func NewService(repo embedding.Repository, embedder embedding.Embedder, opts ...Option) *Service {
	options := serviceOptions{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	cfg := DefaultConfig()
	if options.config != nil {
		cfg = *options.config
	}

	return &Service{
		repository:   repo,
		embedder:     embedder,
		tokenCounter: options.tokenCounter,
		config:       cfg,
		logger:       options.logger,
	}
}

// Config は有効な取り込み設定を返す
func (s *Service) Config() Config {
	return s.config
}

// Ingest はテキストをブロックに分割し、全ブロックの Embedding を生成してから1回でコミットする
// いずれかのブロックの Embedding 生成、またはコミットが失敗した場合、このリクエストのレコードは一切残らない
func (s *Service) Ingest(ctx context.Context, req Request, progress ProgressFunc) (*Result, error) {
	startTime := time.Now()

	category, chunkSize, err := s.validateRequest(req)
	if err != nil {
		return nil, err
	}

	blocks := chunk.Split(req.Text, chunkSize)
	if len(blocks) == 0 {
		return nil, &embedding.ValidationError{Field: "text", Reason: "produced no blocks"}
	}

	tokens, err := s.checkTokenLimits(blocks)
	if err != nil {
		return nil, err
	}

	batchID := uuid.New()
	logger := s.logger.With("batch", batchID, "category", category)
	if req.Source != "" {
		logger = logger.With("source", req.Source)
	}

	logger.Info("取り込みを開始",
		"blocks", len(blocks),
		"chunkSize", chunkSize,
		"model", s.embedder.ModelName(),
	)

	vectors, err := s.embedBlocks(ctx, logger, blocks, progress)
	if err != nil {
		logger.Warn("Embedding 生成に失敗したためバッチを破棄", "error", err)
		return nil, err
	}

	// コミット前にキャンセルされたバッチは書き込まない
	if err := ctx.Err(); err != nil {
		logger.Warn("コミット前にキャンセルされたためバッチを破棄", "error", err)
		return nil, fmt.Errorf("ingestion cancelled before commit: %w", err)
	}

	records := make([]embedding.NewRecord, len(blocks))
	for i, block := range blocks {
		records[i] = embedding.NewRecord{
			Content:   block,
			Category:  category,
			Embedding: vectors[i],
		}
	}

	inserted, err := s.repository.InsertBatch(ctx, records)
	if err != nil {
		logger.Warn("バッチのコミットに失敗", "error", err)
		return nil, fmt.Errorf("commit batch of %d records: %w", len(records), err)
	}

	ids := make([]embedding.ID, len(inserted))
	for i, rec := range inserted {
		ids[i] = rec.ID
	}

	duration := time.Since(startTime)
	logger.Info("取り込みが完了",
		"inserted", len(inserted),
		"tokens", tokens,
		"duration", duration,
	)

	return &Result{
		BatchID:  batchID,
		Category: category,
		Source:   req.Source,
		Inserted: len(inserted),
		IDs:      ids,
		Tokens:   tokens,
		Duration: duration,
	}, nil
}

// validateRequest は I/O を伴わずにリクエストを検証し、正規化済みカテゴリとブロックサイズを返す
func (s *Service) validateRequest(req Request) (string, int, error) {
	category := embedding.NormalizeCategory(req.Category)
	if category == "" {
		return "", 0, &embedding.ValidationError{Field: "category", Reason: "must not be empty"}
	}
	if chunk.Normalize(req.Text) == "" {
		return "", 0, &embedding.ValidationError{Field: "text", Reason: "must not be empty"}
	}

	chunkSize := req.ChunkSize
	if chunkSize == 0 {
		chunkSize = s.config.DefaultChunkSize
	}
	if chunkSize < s.config.MinChunkSize || chunkSize > s.config.MaxChunkSize {
		return "", 0, &embedding.ValidationError{
			Field:  "chunk size",
			Reason: fmt.Sprintf("%d is outside [%d, %d]", chunkSize, s.config.MinChunkSize, s.config.MaxChunkSize),
		}
	}

	return category, chunkSize, nil
}

// checkTokenLimits はブロックのトークン数を数え、モデル上限を超えるものがあればエラーを返す
func (s *Service) checkTokenLimits(blocks []string) (int, error) {
	if s.tokenCounter == nil {
		return 0, nil
	}

	total := 0
	for i, block := range blocks {
		n := s.tokenCounter.CountTokens(block)
		if s.config.MaxTokensPerBlock > 0 && n > s.config.MaxTokensPerBlock {
			return 0, &embedding.ValidationError{
				Field:  fmt.Sprintf("block %d", i+1),
				Reason: fmt.Sprintf("has %d tokens, model limit is %d", n, s.config.MaxTokensPerBlock),
			}
		}
		total += n
	}
	return total, nil
}
