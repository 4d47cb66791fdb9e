package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jinford/rag-embed/internal/core/document"
	"github.com/jinford/rag-embed/internal/core/embedding"
)

// DocumentFailure は取り込みに失敗したドキュメント
type DocumentFailure struct {
	Source string
	Err    error
}

// BatchResult は複数ドキュメントの取り込み結果
type BatchResult struct {
	Documents int
	Succeeded int
	Skipped   int
	Failed    int
	Inserted  int
	Tokens    int
	Failures  []DocumentFailure
	Duration  time.Duration
}

// DocumentProgressFunc はドキュメント単位の進捗を通知する
// index は 1 始まり、progress はそのドキュメント内のブロック進捗
type DocumentProgressFunc func(index, total int, source string) ProgressFunc

// IngestDocument は抽出済みドキュメントを1回の Ingest として取り込む
func (s *Service) IngestDocument(ctx context.Context, doc *document.Document, category string, chunkSize int, progress ProgressFunc) (*Result, error) {
	if doc == nil {
		return nil, &embedding.ValidationError{Field: "document", Reason: "must not be nil"}
	}
	return s.Ingest(ctx, Request{
		Text:      doc.Text,
		Category:  category,
		ChunkSize: chunkSize,
		Source:    doc.Source,
	}, progress)
}

// IngestSource はソースが供給するドキュメントをそれぞれ独立したバッチとして取り込む
// 各ドキュメントはアトミックに扱われ、失敗したドキュメントは記録して次へ進む。
// コンテキストがキャンセルされた場合はその時点までの結果とエラーを返す。
func (s *Service) IngestSource(ctx context.Context, source document.Source, category string, chunkSize int, progress DocumentProgressFunc) (*BatchResult, error) {
	// ドキュメント取得前にリクエストを検証する
	if embedding.NormalizeCategory(category) == "" {
		return nil, &embedding.ValidationError{Field: "category", Reason: "must not be empty"}
	}

	docs, err := source.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch documents from %s: %w", source.Name(), err)
	}

	s.logger.Info("ソースからドキュメントを取得", "source", source.Name(), "documents", len(docs))

	return s.IngestDocuments(ctx, docs, category, chunkSize, progress)
}

// IngestDocuments はドキュメント群をドキュメント単位のバッチで取り込む
func (s *Service) IngestDocuments(ctx context.Context, docs []*document.Document, category string, chunkSize int, progress DocumentProgressFunc) (*BatchResult, error) {
	startTime := time.Now()
	result := &BatchResult{Documents: len(docs)}

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(startTime)
			return result, fmt.Errorf("ingestion cancelled after %d of %d documents: %w", i, len(docs), err)
		}

		if doc == nil {
			result.Skipped++
			continue
		}

		var blockProgress ProgressFunc
		if progress != nil {
			blockProgress = progress(i+1, len(docs), doc.Source)
		}

		res, err := s.IngestDocument(ctx, doc, category, chunkSize, blockProgress)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				result.Duration = time.Since(startTime)
				return result, fmt.Errorf("ingestion cancelled at document %s: %w", doc.Source, err)
			}
			// 空ドキュメントはスキップ扱い
			if errors.Is(err, embedding.ErrValidation) && strings.TrimSpace(doc.Text) == "" {
				s.logger.Debug("空のドキュメントをスキップ", "source", doc.Source)
				result.Skipped++
				continue
			}

			s.logger.Warn("ドキュメントの取り込みに失敗", "source", doc.Source, "error", err)
			result.Failed++
			result.Failures = append(result.Failures, DocumentFailure{Source: doc.Source, Err: err})
			continue
		}

		result.Succeeded++
		result.Inserted += res.Inserted
		result.Tokens += res.Tokens
	}

	result.Duration = time.Since(startTime)
	s.logger.Info("ドキュメント群の取り込みが完了",
		"documents", result.Documents,
		"succeeded", result.Succeeded,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"inserted", result.Inserted,
		"duration", result.Duration,
	)
	return result, nil
}
