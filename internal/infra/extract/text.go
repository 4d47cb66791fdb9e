package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	enry "github.com/go-enry/go-enry/v2"

	"github.com/jinford/rag-embed/internal/core/document"
)

// TextExtractor はプレーンテキストと Markdown ファイルを読み込む
type TextExtractor struct{}

// コンパイル時の型チェック
var _ document.Extractor = (*TextExtractor)(nil)

// NewTextExtractor は新しい TextExtractor を作成する
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Extract はファイル全体を1ページの Document として返す
// バイナリファイルは document.ErrUnsupportedFormat で拒否する
func (e *TextExtractor) Extract(ctx context.Context, path string) (*document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if enry.IsBinary(content) {
		return nil, fmt.Errorf("%s is a binary file: %w", path, document.ErrUnsupportedFormat)
	}

	text := normalizeNewlines(string(content))
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%s: %w", path, document.ErrNoExtractableText)
	}

	metadata := map[string]string{}
	if language := enry.GetLanguage(filepath.Base(path), content); language != "" {
		metadata["language"] = language
	}

	return &document.Document{
		Source:    path,
		Text:      text,
		PageCount: 1,
		Metadata:  metadata,
	}, nil
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
