package embedding

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation は入力検証エラーの種別
	ErrValidation = errors.New("validation error")

	// ErrEmbeddingService は Embedding サービス呼び出し失敗の種別
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrStorage はストア操作失敗の種別
	ErrStorage = errors.New("storage error")
)

// ValidationError は外部呼び出し前に検出される入力エラー
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Reason)
	}
	return fmt.Sprintf("validation error: %s %s", e.Field, e.Reason)
}

// Is は errors.Is(err, ErrValidation) を成立させる
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// EmbeddingServiceError は Embedding サービスの失敗（ネットワーク、タイムアウト、認証、不正レスポンス）
type EmbeddingServiceError struct {
	Op         string
	StatusCode int  // HTTP ステータス（不明な場合は 0）
	Retryable  bool // 再試行で回復し得るか
	Err        error
}

func (e *EmbeddingServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("embedding service error: %s (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("embedding service error: %s: %v", e.Op, e.Err)
}

func (e *EmbeddingServiceError) Unwrap() error {
	return e.Err
}

// Is は errors.Is(err, ErrEmbeddingService) を成立させる
func (e *EmbeddingServiceError) Is(target error) bool {
	return target == ErrEmbeddingService
}

// StorageError はストアの接続・読み書き・削除の失敗
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is は errors.Is(err, ErrStorage) を成立させる
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// IsRetryable は再試行で回復し得る Embedding サービスエラーかどうかを判定する
func IsRetryable(err error) bool {
	var svcErr *EmbeddingServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Retryable
	}
	return false
}

func dimensionReason(got, want int) string {
	return fmt.Sprintf("has dimension %d, expected %d", got, want)
}
