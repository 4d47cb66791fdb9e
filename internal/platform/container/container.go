package container

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jinford/rag-embed/internal/core/catalog"
	"github.com/jinford/rag-embed/internal/core/document"
	"github.com/jinford/rag-embed/internal/core/embedding"
	"github.com/jinford/rag-embed/internal/core/ingestion"
	"github.com/jinford/rag-embed/internal/core/ingestion/chunk"
	"github.com/jinford/rag-embed/internal/infra/extract"
	"github.com/jinford/rag-embed/internal/infra/git"
	"github.com/jinford/rag-embed/internal/infra/openai"
	"github.com/jinford/rag-embed/internal/infra/postgres"
	"github.com/jinford/rag-embed/internal/infra/tokenizer"
	"github.com/jinford/rag-embed/internal/platform/config"
	"github.com/jinford/rag-embed/internal/platform/database"
)

// Container はアプリケーションの依存関係を保持する
// Ingestion 系のフィールドは WithIngestion を指定した場合のみ設定される
type Container struct {
	Config     *config.Config
	Logger     *slog.Logger
	Repository *postgres.Repository
	Catalog    *catalog.Service

	Embedder  embedding.Embedder
	Ingestion *ingestion.Service
	Extractor document.Extractor
	GitClient *git.Client

	db *database.DB
}

type containerOptions struct {
	logger       *slog.Logger
	ingestion    bool
	embedder     embedding.Embedder
	tokenCounter chunk.TokenCounter
	gitProgress  io.Writer
}

// ContainerOption は Container 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithIngestion は Embedding 生成を伴う取り込み系の依存関係も構築する
func WithIngestion() ContainerOption {
	return func(opts *containerOptions) {
		opts.ingestion = true
	}
}

// WithContainerEmbedder はカスタム Embedder を注入する
func WithContainerEmbedder(embedder embedding.Embedder) ContainerOption {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// WithContainerTokenCounter は TokenCounter を差し替える
func WithContainerTokenCounter(counter chunk.TokenCounter) ContainerOption {
	return func(opts *containerOptions) {
		opts.tokenCounter = counter
	}
}

// WithGitProgress は clone/fetch の進捗の出力先を設定する
func WithGitProgress(w io.Writer) ContainerOption {
	return func(opts *containerOptions) {
		opts.gitProgress = w
	}
}

// ConnectionParams は設定からデータベース接続パラメータを作る
func ConnectionParams(cfg *config.Config) database.ConnectionParams {
	return database.ConnectionParams{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: int32(cfg.Database.MaxConns),
	}
}

// New は設定から接続プールを作成し、コンテナを生成する
func New(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*Container, error) {
	db, err := database.New(ctx, ConnectionParams(cfg))
	if err != nil {
		return nil, fmt.Errorf("データベース初期化に失敗しました: %w", err)
	}

	c, err := NewWithPool(cfg, db.Pool, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	c.db = db
	return c, nil
}

// NewWithPool は既存の接続を受け取りコンテナを生成する
// 接続のクローズは呼び出し側の責任
func NewWithPool(cfg *config.Config, pool postgres.Pool, opts ...ContainerOption) (*Container, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	c := &Container{
		Config: cfg,
		Logger: options.logger,
	}

	// Repository (PostgreSQL)
	repoOpts := []postgres.RepositoryOption{
		postgres.WithOperationTimeout(cfg.Database.OperationTimeout),
		postgres.WithRepositoryLogger(options.logger),
	}
	if options.ingestion {
		repoOpts = append(repoOpts, postgres.WithDimension(cfg.OpenAI.EmbeddingDimension))
	}
	c.Repository = postgres.NewRepository(pool, repoOpts...)
	c.Catalog = catalog.NewService(c.Repository, catalog.WithLogger(options.logger))

	if !options.ingestion {
		return c, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定が不正です: %w", err)
	}

	// Embedder (OpenAI)
	embedder := options.embedder
	if embedder == nil {
		openaiEmbedder, err := openai.NewEmbedder(
			cfg.OpenAI.APIKey,
			openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
			openai.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
			openai.WithBaseURL(cfg.OpenAI.BaseURL),
			openai.WithTimeout(cfg.OpenAI.Timeout),
		)
		if err != nil {
			return nil, fmt.Errorf("Embedder 初期化に失敗しました: %w", err)
		}
		embedder = openaiEmbedder
	}
	c.Embedder = embedder

	// TokenCounter (tiktoken)
	tokenCounter := options.tokenCounter
	if tokenCounter == nil {
		counter, err := tokenizer.NewCounter(embedder.ModelName())
		if err != nil {
			return nil, fmt.Errorf("TokenCounter 初期化に失敗しました: %w", err)
		}
		tokenCounter = counter
	}

	ingestCfg := ingestion.DefaultConfig()
	ingestCfg.MinChunkSize = cfg.Ingest.MinChunkSize
	ingestCfg.MaxChunkSize = cfg.Ingest.MaxChunkSize
	ingestCfg.DefaultChunkSize = cfg.Ingest.DefaultChunkSize
	ingestCfg.EmbeddingWorkers = cfg.Ingest.EmbeddingWorkers
	ingestCfg.MaxRetries = cfg.Ingest.MaxRetries
	ingestCfg.MaxTokensPerBlock = cfg.Ingest.MaxTokensPerBlock
	if err := ingestCfg.Validate(); err != nil {
		return nil, fmt.Errorf("取り込み設定が不正です: %w", err)
	}

	c.Ingestion = ingestion.NewService(
		c.Repository,
		embedder,
		ingestion.WithConfig(ingestCfg),
		ingestion.WithTokenCounter(tokenCounter),
		ingestion.WithLogger(options.logger),
	)
	c.Extractor = extract.NewRouter(options.logger)
	c.GitClient = git.NewClient(cfg.Git.SSHKeyPath, cfg.Git.SSHPassword, options.gitProgress)

	return c, nil
}

// GitSource は設定のクローン先とデフォルトブランチを使う Git ドキュメントソースを作成する
func (c *Container) GitSource(identifier, ref string, allText bool) *git.Source {
	return git.NewSource(c.GitClient, identifier,
		git.WithRef(ref),
		git.WithDefaultBranch(c.Config.Git.DefaultBranch),
		git.WithCloneBaseDir(c.Config.Git.CloneDir),
		git.WithAllTextFiles(allText),
		git.WithSourceLogger(c.Logger),
	)
}

// Close はコンテナが所有するリソースを解放する
func (c *Container) Close() {
	if c == nil {
		return
	}
	c.db.Close()
}
