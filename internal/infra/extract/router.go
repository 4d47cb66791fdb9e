package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gabriel-vasile/mimetype"

	"github.com/jinford/rag-embed/internal/core/document"
)

// Router はファイル内容から形式を判定し、対応する抽出器に振り分ける
type Router struct {
	pdf    document.Extractor
	text   document.Extractor
	logger *slog.Logger
}

// コンパイル時の型チェック
var _ document.Extractor = (*Router)(nil)

// NewRouter は PDF とテキストの抽出器を持つ Router を作成する
func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		pdf:    NewPDFExtractor(logger),
		text:   NewTextExtractor(),
		logger: logger,
	}
}

// Extract は判定した形式の抽出器で path を抽出する
// 対応しない形式は document.ErrUnsupportedFormat を返す
func (r *Router) Extract(ctx context.Context, path string) (*document.Document, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to detect file type: %w", err)
	}

	r.logger.Debug("ファイル形式を判定", "path", path, "mime", mtype.String())

	switch {
	case mtype.Is("application/pdf"):
		return r.pdf.Extract(ctx, path)
	case isText(mtype):
		return r.text.Extract(ctx, path)
	default:
		return nil, fmt.Errorf("%s (%s): %w", path, mtype.String(), document.ErrUnsupportedFormat)
	}
}

func isText(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
