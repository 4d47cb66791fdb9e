package ingestion

import (
	"fmt"
	"time"
)

const (
	// DefaultMinChunkSize は許容するブロックサイズの下限（文字数）
	DefaultMinChunkSize = 400
	// DefaultMaxChunkSize は許容するブロックサイズの上限（文字数）
	DefaultMaxChunkSize = 1500
	// DefaultChunkSize はブロックサイズ未指定時の既定値
	DefaultChunkSize = 800
	// DefaultEmbeddingWorkers は Embedding 生成の並列数（1 は逐次処理）
	DefaultEmbeddingWorkers = 1
	// DefaultMaxRetries は再試行可能な Embedding エラーに対する最大リトライ回数
	DefaultMaxRetries = 3
	// DefaultInitialBackoff はリトライ間隔の初期値
	DefaultInitialBackoff = 500 * time.Millisecond
	// DefaultMaxBackoff はリトライ間隔の上限
	DefaultMaxBackoff = 10 * time.Second
	// DefaultMaxTokensPerBlock は Embedding モデルの入力トークン上限
	DefaultMaxTokensPerBlock = 8191
)

// Config は取り込み処理の設定
type Config struct {
	MinChunkSize     int
	MaxChunkSize     int
	DefaultChunkSize int

	// EmbeddingWorkers はブロックごとの Embedding 呼び出しの並列数
	EmbeddingWorkers int

	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// MaxTokensPerBlock を超えるブロックは I/O 前にバリデーションエラーとする（0 で無効）
	MaxTokensPerBlock int
}

// DefaultConfig はデフォルトの取り込み設定を返す
func DefaultConfig() Config {
	return Config{
		MinChunkSize:      DefaultMinChunkSize,
		MaxChunkSize:      DefaultMaxChunkSize,
		DefaultChunkSize:  DefaultChunkSize,
		EmbeddingWorkers:  DefaultEmbeddingWorkers,
		MaxRetries:        DefaultMaxRetries,
		InitialBackoff:    DefaultInitialBackoff,
		MaxBackoff:        DefaultMaxBackoff,
		MaxTokensPerBlock: DefaultMaxTokensPerBlock,
	}
}

// Validate は設定値の整合性を検証する
func (c Config) Validate() error {
	if c.MinChunkSize < 1 {
		return fmt.Errorf("min chunk size must be positive: %d", c.MinChunkSize)
	}
	if c.MaxChunkSize < c.MinChunkSize {
		return fmt.Errorf("max chunk size %d is below min chunk size %d", c.MaxChunkSize, c.MinChunkSize)
	}
	if c.DefaultChunkSize < c.MinChunkSize || c.DefaultChunkSize > c.MaxChunkSize {
		return fmt.Errorf("default chunk size %d is outside [%d, %d]", c.DefaultChunkSize, c.MinChunkSize, c.MaxChunkSize)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative: %d", c.MaxRetries)
	}
	return nil
}
