package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/urfave/cli/v3"

	"github.com/jinford/rag-embed/internal/core/embedding"
)

// confirmFunc は破壊的操作の実行確認を行う
type confirmFunc func(label string) (bool, error)

// promptConfirm は promptui で y/N の確認を行う
func promptConfirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// confirmed は --yes が指定されていれば確認を省略する
func confirmed(yes bool, confirm confirmFunc, label string) (bool, error) {
	if yes {
		return true, nil
	}
	return confirm(label)
}

// DeleteAction は ID 指定でレコードを削除するコマンドのアクション
func DeleteAction(ctx context.Context, cmd *cli.Command) error {
	id, err := embedding.ParseID(cmd.String("id"))
	if err != nil {
		return fmt.Errorf("--id が不正です: %w", err)
	}

	ok, err := confirmed(cmd.Bool("yes"), promptConfirm, fmt.Sprintf("レコード %s を削除します。元に戻せません。よろしいですか", id))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("削除を中止しました")
		return nil
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"), false)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	deleted, err := appCtx.Container.Catalog.DeleteByID(ctx, id)
	if err != nil {
		return fmt.Errorf("削除に失敗: %w", err)
	}
	if !deleted {
		fmt.Printf("レコード %s は存在しません\n", id)
		return nil
	}

	fmt.Printf("レコード %s を削除しました\n", id)
	return nil
}

// DeleteCategoryAction はカテゴリ内の全レコードを削除するコマンドのアクション
func DeleteCategoryAction(ctx context.Context, cmd *cli.Command) error {
	category := embedding.NormalizeCategory(cmd.String("category"))
	if category == "" {
		return fmt.Errorf("--category は必須です")
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"), false)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	count, err := appCtx.Container.Catalog.Count(ctx, category)
	if err != nil {
		return fmt.Errorf("レコード数の取得に失敗: %w", err)
	}
	if count == 0 {
		fmt.Printf("カテゴリ %q にレコードはありません\n", category)
		return nil
	}

	ok, err := confirmed(cmd.Bool("yes"), promptConfirm, fmt.Sprintf("カテゴリ %q の %d 件を削除します。元に戻せません。よろしいですか", category, count))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("削除を中止しました")
		return nil
	}

	deleted, err := appCtx.Container.Catalog.DeleteByCategory(ctx, category)
	if err != nil {
		return fmt.Errorf("削除に失敗: %w", err)
	}

	fmt.Printf("カテゴリ %q の %d 件を削除しました\n", category, deleted)
	return nil
}
