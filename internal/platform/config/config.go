package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定
	Database DatabaseConfig

	// OpenAI設定（Embeddings用）
	OpenAI OpenAIConfig

	// 取り込み設定
	Ingest IngestConfig

	// Git設定
	Git GitConfig

	// ログ設定
	Log LogConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host             string
	Port             int
	User             string
	Password         string
	DBName           string
	SSLMode          string
	MaxConns         int
	OperationTimeout time.Duration // 1回のストア操作のタイムアウト
}

// OpenAIConfig はOpenAI API設定（Embeddings）
type OpenAIConfig struct {
	APIKey             string
	BaseURL            string // 空の場合は公式エンドポイント
	EmbeddingModel     string
	EmbeddingDimension int
	Timeout            time.Duration // 1リクエストのタイムアウト
}

// IngestConfig はチャンク化と Embedding 生成の設定
type IngestConfig struct {
	MinChunkSize      int
	MaxChunkSize      int
	DefaultChunkSize  int
	EmbeddingWorkers  int
	MaxRetries        int
	MaxTokensPerBlock int
}

// GitConfig はGit操作設定
type GitConfig struct {
	CloneDir      string
	SSHKeyPath    string
	SSHPassword   string // SSH秘密鍵のパスワード（パスフレーズ）
	DefaultBranch string // デフォルトブランチ名（例: main, master）
}

// LogConfig はログ出力設定
type LogConfig struct {
	Level  string
	Format string
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:             getEnv("DB_HOST", "localhost"),
			Port:             getEnvAsInt("DB_PORT", 5432),
			User:             getEnv("DB_USER", "ragembed"),
			Password:         getEnv("DB_PASSWORD", ""),
			DBName:           getEnv("DB_NAME", "ragembed"),
			SSLMode:          getEnv("DB_SSLMODE", "disable"),
			MaxConns:         getEnvAsInt("DB_MAX_CONNS", 0),
			OperationTimeout: getEnvAsDuration("DB_OPERATION_TIMEOUT", 30*time.Second),
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			BaseURL:            getEnv("OPENAI_BASE_URL", ""),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 1536),
			Timeout:            getEnvAsDuration("OPENAI_TIMEOUT", 30*time.Second),
		},
		Ingest: IngestConfig{
			MinChunkSize:      getEnvAsInt("INGEST_MIN_CHUNK_SIZE", 400),
			MaxChunkSize:      getEnvAsInt("INGEST_MAX_CHUNK_SIZE", 1500),
			DefaultChunkSize:  getEnvAsInt("INGEST_DEFAULT_CHUNK_SIZE", 800),
			EmbeddingWorkers:  getEnvAsInt("INGEST_EMBEDDING_WORKERS", 1),
			MaxRetries:        getEnvAsInt("INGEST_MAX_RETRIES", 3),
			MaxTokensPerBlock: getEnvAsInt("INGEST_MAX_TOKENS_PER_BLOCK", 8191),
		},
		Git: GitConfig{
			CloneDir:      getEnv("GIT_CLONE_DIR", "/var/lib/rag-embed/repos"),
			SSHKeyPath:    getEnv("GIT_SSH_KEY_PATH", ""),
			SSHPassword:   getEnv("GIT_SSH_PASSWORD", ""),
			DefaultBranch: getEnv("GIT_DEFAULT_BRANCH", "main"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Validate は Embedding 生成に必要な設定が揃っているかを検証します
// DB だけを使うコマンド（一覧・削除など）では呼び出す必要はありません
func (c *Config) Validate() error {
	var errs []error

	if c.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required"))
	}
	if c.OpenAI.EmbeddingDimension <= 0 {
		errs = append(errs, fmt.Errorf("OPENAI_EMBEDDING_DIMENSION must be positive: %d", c.OpenAI.EmbeddingDimension))
	}
	if c.Ingest.MinChunkSize < 1 || c.Ingest.MaxChunkSize < c.Ingest.MinChunkSize {
		errs = append(errs, fmt.Errorf("invalid chunk size range [%d, %d]", c.Ingest.MinChunkSize, c.Ingest.MaxChunkSize))
	}
	if c.Ingest.DefaultChunkSize < c.Ingest.MinChunkSize || c.Ingest.DefaultChunkSize > c.Ingest.MaxChunkSize {
		errs = append(errs, fmt.Errorf("INGEST_DEFAULT_CHUNK_SIZE %d is outside [%d, %d]",
			c.Ingest.DefaultChunkSize, c.Ingest.MinChunkSize, c.Ingest.MaxChunkSize))
	}
	if c.Ingest.EmbeddingWorkers < 1 {
		errs = append(errs, fmt.Errorf("INGEST_EMBEDDING_WORKERS must be at least 1: %d", c.Ingest.EmbeddingWorkers))
	}

	return errors.Join(errs...)
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration は環境変数を time.Duration として取得します（"30s" 形式）
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
