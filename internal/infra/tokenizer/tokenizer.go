package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/jinford/rag-embed/internal/core/ingestion/chunk"
)

// DefaultEncoding は OpenAI の埋め込みモデルが使うエンコーディング
const DefaultEncoding = "cl100k_base"

// Counter は tiktoken を利用した chunk.TokenCounter 実装
type Counter struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// コンパイル時の型チェック
var _ chunk.TokenCounter = (*Counter)(nil)

var installLoader sync.Once

// useOfflineLoader は BPE ファイルを実行時にダウンロードせず、埋め込み済みのものを使うようにする
func useOfflineLoader() {
	installLoader.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
}

// NewCounter はモデル名に対応するエンコーディングの Counter を作成する
// tiktoken が知らないモデルの場合は DefaultEncoding を使う
func NewCounter(model string) (*Counter, error) {
	useOfflineLoader()

	if model != "" {
		if enc, err := tiktoken.EncodingForModel(model); err == nil {
			return &Counter{encoding: enc, name: encodingForModel(model)}, nil
		}
	}

	enc, err := tiktoken.GetEncoding(DefaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding: %w", err)
	}
	return &Counter{encoding: enc, name: DefaultEncoding}, nil
}

// CountTokens はテキストのトークン数を返す
func (c *Counter) CountTokens(text string) int {
	if c.encoding == nil || text == "" {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// Encoding は使用中のエンコーディング名を返す
func (c *Counter) Encoding() string {
	return c.name
}

func encodingForModel(model string) string {
	if name, ok := tiktoken.MODEL_TO_ENCODING[model]; ok {
		return name
	}
	for prefix, name := range tiktoken.MODEL_PREFIX_TO_ENCODING {
		if len(model) >= len(prefix) && model[:len(prefix)] == prefix {
			return name
		}
	}
	return DefaultEncoding
}
