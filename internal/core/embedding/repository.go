package embedding

import "context"

// Repository は永続化されたレコード集合への CRUD と集計を提供する
// 変更操作はすべて単一のアトミック単位で実行され、失敗時はコレクションを変更しない
type Repository interface {
	// Insert は1件のレコードを追加する
	Insert(ctx context.Context, record NewRecord) (InsertedRecord, error)

	// InsertBatch は複数レコードを1トランザクションで追加する（全件成功か全件破棄）
	InsertBatch(ctx context.Context, records []NewRecord) ([]InsertedRecord, error)

	// List は created_at 降順で最大 Limit 件を返す
	List(ctx context.Context, query ListQuery) ([]RecordSummary, error)

	// Count はレコード数を返す（category が空なら全件）
	Count(ctx context.Context, category string) (int64, error)

	// DistinctCategories はレコードが存在するカテゴリをソート済みで返す
	DistinctCategories(ctx context.Context) ([]string, error)

	// DeleteByID はレコードを削除し、存在した場合のみ true を返す
	DeleteByID(ctx context.Context, id ID) (bool, error)

	// DeleteByCategory はカテゴリ内の全レコードを削除し、削除件数を返す
	DeleteByCategory(ctx context.Context, category string) (int64, error)

	// Stats は集計スナップショットを返す
	Stats(ctx context.Context) (Stats, error)
}

// Embedder はテキストを固定次元のベクトルに変換する
type Embedder interface {
	// Embed は1回の呼び出しにつき1リクエストを発行する。失敗時に部分的なベクトルは返さない
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension はモデルの次元数 D を返す
	Dimension() int

	// ModelName はモデル識別子を返す
	ModelName() string
}
