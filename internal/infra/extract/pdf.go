package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/jinford/rag-embed/internal/core/document"
)

// notAvailable は PDF 情報辞書に値がない場合の表示値
const notAvailable = "N/A"

// Info は PDF の文書情報
type Info struct {
	PageCount int
	Title     string
	Author    string
	Subject   string
	Creator   string
}

// Metadata は Info を Document.Metadata 形式に変換する
func (i Info) Metadata() map[string]string {
	return map[string]string{
		"title":      i.Title,
		"author":     i.Author,
		"subject":    i.Subject,
		"creator":    i.Creator,
		"page_count": strconv.Itoa(i.PageCount),
	}
}

// PDFExtractor は PDF からテキストを抽出する
type PDFExtractor struct {
	logger *slog.Logger
}

// コンパイル時の型チェック
var _ document.Extractor = (*PDFExtractor)(nil)

// NewPDFExtractor は新しい PDFExtractor を作成する
func NewPDFExtractor(logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExtractor{logger: logger}
}

// Extract は全ページのテキストを空行区切りで連結した Document を返す
// テキストのないページはスキップし、全ページが空の場合は document.ErrNoExtractableText を返す
func (e *PDFExtractor) Extract(ctx context.Context, path string) (*document.Document, error) {
	pages, info, err := e.read(ctx, path)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(pages))
	for _, p := range pages {
		texts = append(texts, p.Text)
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("%s: %w", path, document.ErrNoExtractableText)
	}

	e.logger.Debug("PDF を抽出", "path", path, "pages", info.PageCount, "text_pages", len(texts))

	return &document.Document{
		Source:    path,
		Text:      strings.Join(texts, "\n\n"),
		PageCount: info.PageCount,
		Metadata:  info.Metadata(),
	}, nil
}

// Pages はテキストを含むページをページ番号付きで返す
func (e *PDFExtractor) Pages(ctx context.Context, path string) ([]document.Page, error) {
	pages, _, err := e.read(ctx, path)
	if err != nil {
		return nil, err
	}
	return pages, nil
}

// Info はページ数と情報辞書（Title/Author/Subject/Creator）を返す
func (e *PDFExtractor) Info(path string) (Info, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	return readInfo(r), nil
}

func (e *PDFExtractor) read(ctx context.Context, path string) ([]document.Page, Info, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, Info{}, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	info := readInfo(r)
	pages := make([]document.Page, 0, info.PageCount)
	for i := 1; i <= info.PageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, Info{}, err
		}

		text, err := pageText(r.Page(i))
		if err != nil {
			return nil, Info{}, fmt.Errorf("failed to extract page %d: %w", i, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pages = append(pages, document.Page{Number: i, Text: text})
	}

	return pages, info, nil
}

func pageText(p pdf.Page) (string, error) {
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}

func readInfo(r *pdf.Reader) Info {
	info := Info{
		PageCount: r.NumPage(),
		Title:     notAvailable,
		Author:    notAvailable,
		Subject:   notAvailable,
		Creator:   notAvailable,
	}

	dict := r.Trailer().Key("Info")
	if dict.IsNull() {
		return info
	}
	for key, dst := range map[string]*string{
		"Title":   &info.Title,
		"Author":  &info.Author,
		"Subject": &info.Subject,
		"Creator": &info.Creator,
	} {
		if v := strings.TrimSpace(dict.Key(key).Text()); v != "" {
			*dst = v
		}
	}
	return info
}
