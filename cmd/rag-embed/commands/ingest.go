package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/jinford/rag-embed/internal/core/document"
	"github.com/jinford/rag-embed/internal/core/ingestion"
	"github.com/jinford/rag-embed/internal/infra/git"
)

// IngestTextAction はテキストを取り込むコマンドのアクション
// --text 未指定の場合は標準入力から読み込む
func IngestTextAction(ctx context.Context, cmd *cli.Command) error {
	category := cmd.String("category")
	if strings.TrimSpace(category) == "" {
		return fmt.Errorf("--category は必須です")
	}

	text := cmd.String("text")
	if text == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("標準入力の読み込みに失敗: %w", err)
		}
		text = string(data)
	}

	appCtx, err := newIngestContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	result, err := appCtx.Container.Ingestion.Ingest(ctx, ingestion.Request{
		Text:      text,
		Category:  category,
		ChunkSize: int(cmd.Int("chunk-size")),
		Source:    "text",
	}, progressPrinter(os.Stderr, ""))
	if err != nil {
		return fmt.Errorf("取り込みに失敗: %w", err)
	}

	renderIngestResult(os.Stdout, result)
	return nil
}

// IngestFileAction は PDF / テキストファイルを取り込むコマンドのアクション
func IngestFileAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")
	category := cmd.String("category")
	if path == "" || strings.TrimSpace(category) == "" {
		return fmt.Errorf("--path, --category は必須です")
	}

	appCtx, err := newIngestContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	doc, err := appCtx.Container.Extractor.Extract(ctx, path)
	if err != nil {
		if errors.Is(err, document.ErrNoExtractableText) {
			return fmt.Errorf("ファイルから抽出できるテキストがありません: %w", err)
		}
		return fmt.Errorf("テキスト抽出に失敗: %w", err)
	}

	appCtx.Logger().Info("ファイルからテキストを抽出",
		"path", path,
		"pages", doc.PageCount,
		"chars", len([]rune(doc.Text)),
	)

	result, err := appCtx.Container.Ingestion.IngestDocument(ctx, doc, category, int(cmd.Int("chunk-size")), progressPrinter(os.Stderr, ""))
	if err != nil {
		return fmt.Errorf("取り込みに失敗: %w", err)
	}

	renderIngestResult(os.Stdout, result)
	return nil
}

// IngestGitAction は Git リポジトリの文書を取り込むコマンドのアクション
// 文書ごとに独立したバッチとして登録し、失敗した文書は最後にまとめて表示する
func IngestGitAction(ctx context.Context, cmd *cli.Command) error {
	url := cmd.String("url")
	if url == "" {
		return fmt.Errorf("--url は必須です")
	}
	category := cmd.String("category")
	if strings.TrimSpace(category) == "" {
		category = git.DefaultCategory(url)
	}

	appCtx, err := newIngestContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	source := appCtx.Container.GitSource(url, cmd.String("ref"), cmd.Bool("all-text"))

	result, err := appCtx.Container.Ingestion.IngestSource(ctx, source, category, int(cmd.Int("chunk-size")), documentProgress(os.Stderr))
	if result != nil {
		renderBatchResult(os.Stdout, result)
	}
	if err != nil {
		return fmt.Errorf("取り込みに失敗: %w", err)
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d 件の文書の取り込みに失敗しました", result.Failed)
	}
	return nil
}

// newIngestContext は取り込み用の AppContext を作成し、保存済みベクトルの次元数を検証する
func newIngestContext(ctx context.Context, envFile string) (*AppContext, error) {
	appCtx, err := NewAppContext(ctx, envFile, true)
	if err != nil {
		return nil, err
	}

	if err := appCtx.Container.Repository.VerifyDimension(ctx); err != nil {
		appCtx.Close()
		return nil, fmt.Errorf("保存済みベクトルの検証に失敗: %w", err)
	}
	return appCtx, nil
}

func documentProgress(w io.Writer) ingestion.DocumentProgressFunc {
	return func(index, total int, source string) ingestion.ProgressFunc {
		return progressPrinter(w, fmt.Sprintf("[%d/%d] %s: ", index, total, source))
	}
}
