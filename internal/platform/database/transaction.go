package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TxBeginner はトランザクションを開始できる接続（pgxpool.Pool やテスト用のモック）
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Transact opens a transaction and passes it to fn.
// fn がエラーを返した場合はロールバックし、成功した場合のみコミットする。
func Transact[T any](ctx context.Context, db TxBeginner, fn func(pgx.Tx) (T, error)) (T, error) {
	var zero T
	tx, err := db.Begin(ctx)
	if err != nil {
		return zero, fmt.Errorf("failed to begin transaction: %w", err)
	}

	result, err := fn(tx)
	if err != nil {
		// キャンセル済みの ctx ではロールバック要求を送れないため切り離す
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			return zero, fmt.Errorf("tx rollback failed: %v (original err: %w)", rbErr, err)
		}
		return zero, err
	}

	if err := tx.Commit(ctx); err != nil {
		return zero, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result, nil
}
