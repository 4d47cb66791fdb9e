package embedding

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ID は Record の不透明な識別子
// 呼び出し側は内部表現を解釈してはならない。文字列化と ParseID による往復のみを保証する
type ID struct {
	value uuid.UUID
}

// NewID は内部表現から ID を生成する（ストア実装向け）
func NewID(v uuid.UUID) ID {
	return ID{value: v}
}

// ParseID は String() で得た文字列から ID を復元する
func ParseID(s string) (ID, error) {
	v, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return ID{}, &ValidationError{Field: "id", Reason: "malformed identifier"}
	}
	return ID{value: v}, nil
}

// UUID はストア実装が内部表現を取り出すために使う
func (id ID) UUID() uuid.UUID {
	return id.value
}

// IsZero は未割り当ての ID かどうかを返す
func (id ID) IsZero() bool {
	return id.value == uuid.Nil
}

func (id ID) String() string {
	return id.value.String()
}

// Record は永続化された1チャンク分のレコード
// 作成後は不変であり、更新操作は存在しない
type Record struct {
	ID        ID
	Content   string
	Category  string
	Embedding []float32
	CreatedAt time.Time
}

// RecordSummary は一覧表示用の射影（ベクトルを含まない）
type RecordSummary struct {
	ID        ID
	Content   string
	Category  string
	CreatedAt time.Time
}

// NewRecord は挿入前のレコード（ID と作成日時はストアが割り当てる）
type NewRecord struct {
	Content   string
	Category  string
	Embedding []float32
}

// InsertedRecord は挿入時にストアが割り当てた値
type InsertedRecord struct {
	ID        ID
	CreatedAt time.Time
}

// Stats はコレクション全体の集計スナップショット
type Stats struct {
	Total                 int64
	DistinctCategoryCount int64
	EarliestCreatedAt     *time.Time // コレクションが空の場合は nil
	LatestCreatedAt       *time.Time // コレクションが空の場合は nil
}

// ListQuery は一覧取得の条件
type ListQuery struct {
	Category string // 空文字の場合は全カテゴリ
	Limit    int
}

// NormalizeCategory はカテゴリ名の前後空白を除去する
func NormalizeCategory(category string) string {
	return strings.TrimSpace(category)
}

// Validate は挿入前レコードの不変条件を検証する
func (r NewRecord) Validate(dimension int) error {
	if strings.TrimSpace(r.Content) == "" {
		return &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if NormalizeCategory(r.Category) == "" {
		return &ValidationError{Field: "category", Reason: "must not be empty"}
	}
	if dimension > 0 && len(r.Embedding) != dimension {
		return &ValidationError{
			Field:  "embedding",
			Reason: dimensionReason(len(r.Embedding), dimension),
		}
	}
	return nil
}
