package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

// ListAction は登録済みレコードを新しい順に表示するコマンドのアクション
func ListAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"), false)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	records, err := appCtx.Container.Catalog.List(ctx, cmd.String("category"), int(cmd.Int("limit")))
	if err != nil {
		return fmt.Errorf("レコードの取得に失敗: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("レコードはありません")
		return nil
	}

	renderRecordsTable(os.Stdout, records)
	return nil
}

// CountAction はレコード数を表示するコマンドのアクション
func CountAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"), false)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	count, err := appCtx.Container.Catalog.Count(ctx, cmd.String("category"))
	if err != nil {
		return fmt.Errorf("レコード数の取得に失敗: %w", err)
	}

	fmt.Println(count)
	return nil
}

// CategoriesAction はカテゴリごとのレコード数を表示するコマンドのアクション
func CategoriesAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"), false)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	categories, err := appCtx.Container.Catalog.Categories(ctx)
	if err != nil {
		return fmt.Errorf("カテゴリの取得に失敗: %w", err)
	}

	if len(categories) == 0 {
		fmt.Println("カテゴリはありません")
		return nil
	}

	counts := make(map[string]int64, len(categories))
	for _, c := range categories {
		n, err := appCtx.Container.Catalog.Count(ctx, c)
		if err != nil {
			return fmt.Errorf("レコード数の取得に失敗: %w", err)
		}
		counts[c] = n
	}

	renderCategoriesTable(os.Stdout, categories, counts)
	return nil
}

// StatsAction は集計情報を表示するコマンドのアクション
func StatsAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"), false)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	stats, err := appCtx.Container.Catalog.Stats(ctx)
	if err != nil {
		return fmt.Errorf("集計情報の取得に失敗: %w", err)
	}

	renderStatsTable(os.Stdout, stats)
	return nil
}
