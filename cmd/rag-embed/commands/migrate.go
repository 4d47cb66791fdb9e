package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/jinford/rag-embed/internal/infra/postgres"
	"github.com/jinford/rag-embed/internal/platform/container"
)

// MigrateAction は埋め込みスキーマのマイグレーションを適用するコマンドのアクション
// OpenAI の設定は不要
func MigrateAction(ctx context.Context, cmd *cli.Command) error {
	cfg, appLogger, err := loadConfig(cmd.String("env"))
	if err != nil {
		return err
	}

	version, err := postgres.ApplyMigrations(ctx, container.ConnectionParams(cfg).URL(), cfg.OpenAI.EmbeddingDimension)
	if err != nil {
		return fmt.Errorf("マイグレーションに失敗: %w", err)
	}

	appLogger.Info("マイグレーションを適用", "version", version)
	fmt.Printf("スキーマバージョン: %d\n", version)
	return nil
}
