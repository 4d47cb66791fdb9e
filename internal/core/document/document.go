package document

import (
	"context"
	"errors"
)

// ErrNoExtractableText はドキュメントから抽出可能なテキストが得られなかった場合のエラー
var ErrNoExtractableText = errors.New("document contains no extractable text")

// ErrUnsupportedFormat は抽出器が対応していない形式の場合のエラー
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Document は抽出済みドキュメント
type Document struct {
	Source    string            // ファイルパスやリポジトリ内パスなどの識別子
	Text      string            // 抽出された全文
	PageCount int               // ページ数（ページ概念がない形式は 1）
	Metadata  map[string]string // タイトル・作成者などのメタデータ
}

// Page はページ単位の抽出結果
type Page struct {
	Number int // 1 始まり
	Text   string
}

// Extractor はファイルからテキストを抽出する
// 抽出失敗や抽出可能なテキストがない場合は、チャンク化の前に呼び出し側へエラーを返す
type Extractor interface {
	Extract(ctx context.Context, path string) (*Document, error)
}

// Source は複数のドキュメントを供給する（Git リポジトリなど）
type Source interface {
	// Name はソースの表示名を返す
	Name() string

	// Documents は取り込み対象のドキュメント一覧を返す
	Documents(ctx context.Context) ([]*Document, error)
}
