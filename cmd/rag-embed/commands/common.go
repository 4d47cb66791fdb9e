package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jinford/rag-embed/internal/platform/config"
	"github.com/jinford/rag-embed/internal/platform/container"
	"github.com/jinford/rag-embed/internal/platform/logger"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config    *config.Config
	Container *container.Container
}

// NewAppContext は設定ファイルを読み込み、DBに接続して AppContext を作成する
// withIngestion が true の場合は Embedding 生成に必要な依存関係も構築する
func NewAppContext(ctx context.Context, envFile string, withIngestion bool) (*AppContext, error) {
	cfg, appLogger, err := loadConfig(envFile)
	if err != nil {
		return nil, err
	}

	opts := []container.ContainerOption{
		container.WithContainerLogger(appLogger),
	}
	if withIngestion {
		opts = append(opts, container.WithIngestion(), container.WithGitProgress(os.Stderr))
	}

	cont, err := container.New(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("コンテナの初期化に失敗: %w", err)
	}

	return &AppContext{
		Config:    cfg,
		Container: cont,
	}, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.Container != nil {
		ac.Container.Close()
	}
}

// Logger はAppContextのロガーを返す
func (ac *AppContext) Logger() *slog.Logger {
	if ac.Container != nil {
		return ac.Container.Logger
	}
	return slog.Default()
}

// loadConfig は設定を読み込み、設定に従ってロガーを初期化する
func loadConfig(envFile string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	logCfg := logger.DefaultConfig()
	if cfg.Log.Format != "" {
		logCfg.Format = cfg.Log.Format
	}
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	logCfg.Level = level

	return cfg, logger.New(logCfg), nil
}
