package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/jinford/rag-embed/internal/core/embedding"
)

// embedBlocks は全ブロックの Embedding を生成し、ブロック順に並んだベクトルを返す
// EmbeddingWorkers が 1 の場合は先頭から逐次処理する。いずれかが失敗した時点で残りは打ち切る。
func (s *Service) embedBlocks(ctx context.Context, logger *slog.Logger, blocks []string, progress ProgressFunc) ([][]float32, error) {
	total := len(blocks)
	vectors := make([][]float32, total)

	workers := s.config.EmbeddingWorkers
	if workers < 1 {
		workers = 1
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	var mu sync.Mutex
	done := 0

	for i, block := range blocks {
		if egCtx.Err() != nil {
			break
		}

		eg.Go(func() error {
			vector, err := s.embedWithRetry(egCtx, logger, block)
			if err != nil {
				return fmt.Errorf("embed block %d/%d: %w", i+1, total, err)
			}
			vectors[i] = vector

			mu.Lock()
			defer mu.Unlock()
			done++
			if progress != nil {
				progress(done, total)
			}
			logger.Debug("ブロックの Embedding を生成", "block", i+1, "done", done, "total", total)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	// ループを抜けた後に親コンテキストがキャンセルされていた場合
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("embedding cancelled: %w", err)
	}

	return vectors, nil
}

// embedWithRetry は再試行可能なエラーに対して指数バックオフでリトライする
// 再試行不可能なエラーと次元数の不一致は即座に返す
func (s *Service) embedWithRetry(ctx context.Context, logger *slog.Logger, text string) ([]float32, error) {
	expo := backoff.NewExponentialBackOff()
	if s.config.InitialBackoff > 0 {
		expo.InitialInterval = s.config.InitialBackoff
	}
	if s.config.MaxBackoff > 0 {
		expo.MaxInterval = s.config.MaxBackoff
	}
	expo.MaxElapsedTime = 0

	maxRetries := s.config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(maxRetries)), ctx)

	dimension := s.embedder.Dimension()
	attempt := 0
	var lastErr *embedding.EmbeddingServiceError

	operation := func() ([]float32, error) {
		if err := ctx.Err(); err != nil {
			return nil, backoff.Permanent(err)
		}
		attempt++

		vector, err := s.embedder.Embed(ctx, text)
		if err != nil {
			if embedding.IsRetryable(err) {
				errors.As(err, &lastErr)
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		if len(vector) != dimension {
			return nil, backoff.Permanent(&embedding.EmbeddingServiceError{
				Op:  "embed",
				Err: fmt.Errorf("vector has dimension %d, expected %d", len(vector), dimension),
			})
		}
		return vector, nil
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn("Embedding 生成をリトライ",
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
	}

	vector, err := backoff.RetryNotifyWithData(operation, policy, notify)
	if err != nil {
		// リトライ待機中のキャンセルでも、直前のサービスエラーを失わない
		if ctxErr := ctx.Err(); ctxErr != nil && lastErr != nil {
			return nil, &embedding.EmbeddingServiceError{
				Op:         lastErr.Op,
				StatusCode: lastErr.StatusCode,
				Err:        fmt.Errorf("retry interrupted after %d attempts: %w: %w", attempt, ctxErr, lastErr),
			}
		}
		return nil, err
	}
	return vector, nil
}
