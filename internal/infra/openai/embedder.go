package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/jinford/rag-embed/internal/core/embedding"
)

// Embedder は OpenAI API を使用してテキストをベクトルに変換する
// 1回の Embed につき1リクエストを発行し、SDK 側のリトライは無効化する（リトライ方針は呼び出し側が持つ）
type Embedder struct {
	client    openai.Client
	model     string
	dimension int
	timeout   time.Duration
}

const (
	// DefaultEmbeddingModel はモデル未指定時のデフォルトモデル
	DefaultEmbeddingModel = "text-embedding-3-small"
	// DefaultEmbeddingDimension はOpenAI推奨のデフォルト次元
	DefaultEmbeddingDimension = 1536
	// DefaultTimeout は1リクエストのデフォルトタイムアウト
	DefaultTimeout = 30 * time.Second
)

// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
var ErrAPIKeyNotSet = errors.New("OpenAI API key not set: please set OPENAI_API_KEY environment variable")

type embedderOptions struct {
	model      string
	dimension  int
	timeout    time.Duration
	baseURL    string
	httpClient *http.Client
}

// EmbedderOption は Embedder のオプション設定
type EmbedderOption func(*embedderOptions)

// WithEmbeddingModel はモデル名を上書きする
func WithEmbeddingModel(model string) EmbedderOption {
	return func(o *embedderOptions) {
		o.model = model
	}
}

// WithEmbeddingDimension はベクトル次元を上書きする
func WithEmbeddingDimension(dimension int) EmbedderOption {
	return func(o *embedderOptions) {
		o.dimension = dimension
	}
}

// WithTimeout は1リクエストのタイムアウトを上書きする
func WithTimeout(timeout time.Duration) EmbedderOption {
	return func(o *embedderOptions) {
		o.timeout = timeout
	}
}

// WithBaseURL は API エンドポイントを上書きする（互換 API やテスト用）
func WithBaseURL(baseURL string) EmbedderOption {
	return func(o *embedderOptions) {
		o.baseURL = baseURL
	}
}

// WithHTTPClient は HTTP クライアントを差し替える
func WithHTTPClient(client *http.Client) EmbedderOption {
	return func(o *embedderOptions) {
		o.httpClient = client
	}
}

// NewEmbedder は新しい Embedder を作成する
func NewEmbedder(apiKey string, opts ...EmbedderOption) (*Embedder, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	options := embedderOptions{
		model:     DefaultEmbeddingModel,
		dimension: DefaultEmbeddingDimension,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive: %d", options.dimension)
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if options.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(options.baseURL))
	}
	if options.httpClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(options.httpClient))
	}

	return &Embedder{
		client:    openai.NewClient(clientOpts...),
		model:     options.model,
		dimension: options.dimension,
		timeout:   options.timeout,
	}, nil
}

// Embed は単一テキストの Embedding を生成する
// 失敗時は *embedding.EmbeddingServiceError を返し、部分的なベクトルは返さない
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
		Dimensions:     openai.Int(int64(e.dimension)),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}

	resp, err := e.client.Embeddings.New(callCtx, params)
	if err != nil {
		return nil, e.classifyError(ctx, callCtx, err)
	}

	if len(resp.Data) == 0 {
		return nil, &embedding.EmbeddingServiceError{Op: "embed", Err: errors.New("response contains no embedding")}
	}

	data := resp.Data[0].Embedding
	if len(data) != e.dimension {
		return nil, &embedding.EmbeddingServiceError{
			Op:  "embed",
			Err: fmt.Errorf("response vector has dimension %d, expected %d", len(data), e.dimension),
		}
	}

	vector := make([]float32, len(data))
	for i, v := range data {
		vector[i] = float32(v)
	}
	return vector, nil
}

// classifyError は SDK のエラーを再試行可否付きの EmbeddingServiceError に変換する
func (e *Embedder) classifyError(parent, callCtx context.Context, err error) error {
	// 呼び出し元のキャンセルは再試行しない
	if parent.Err() != nil {
		return &embedding.EmbeddingServiceError{Op: "embed", Err: parent.Err()}
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return &embedding.EmbeddingServiceError{
			Op:        "embed",
			Retryable: true,
			Err:       fmt.Errorf("request timed out after %s: %w", e.timeout, context.DeadlineExceeded),
		}
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &embedding.EmbeddingServiceError{
			Op:         "embed",
			StatusCode: apiErr.StatusCode,
			Retryable:  isRetryableStatus(apiErr.StatusCode),
			Err:        err,
		}
	}

	// ネットワーク障害など
	return &embedding.EmbeddingServiceError{Op: "embed", Retryable: true, Err: err}
}

func isRetryableStatus(status int) bool {
	switch {
	case status == http.StatusTooManyRequests,
		status == http.StatusRequestTimeout,
		status == http.StatusConflict:
		return true
	case status >= 500:
		return true
	default:
		return false
	}
}

// ModelName はモデル名を返す
func (e *Embedder) ModelName() string {
	return e.model
}

// Dimension はベクトル次元数を返す
func (e *Embedder) Dimension() int {
	return e.dimension
}

// インターフェース実装の確認
var _ embedding.Embedder = (*Embedder)(nil)
