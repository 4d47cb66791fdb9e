package git

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	enry "github.com/go-enry/go-enry/v2"
	giturls "github.com/whilp/git-urls"

	"github.com/jinford/rag-embed/internal/core/document"
)

// documentExtensions はデフォルトで取り込み対象とするテキスト文書の拡張子
var documentExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".mdx":      true,
	".txt":      true,
	".rst":      true,
	".adoc":     true,
	".asciidoc": true,
	".org":      true,
}

// Source は Git リポジトリのテキスト文書を供給する document.Source 実装
// identifier がローカルディレクトリの場合はクローンせずにそのリポジトリを読む
type Source struct {
	client        *Client
	identifier    string
	ref           string
	defaultBranch string
	cloneBaseDir  string
	allText       bool
	logger        *slog.Logger
}

// コンパイル時の型チェック
var _ document.Source = (*Source)(nil)

type sourceOptions struct {
	ref           string
	defaultBranch string
	cloneBaseDir  string
	allText       bool
	logger        *slog.Logger
}

// SourceOption は Source のオプション設定
type SourceOption func(*sourceOptions)

// WithRef は読み込むブランチ・タグ・コミットを設定する
func WithRef(ref string) SourceOption {
	return func(o *sourceOptions) {
		o.ref = ref
	}
}

// WithDefaultBranch は ref 未指定でリモートを読む場合のブランチを設定する
func WithDefaultBranch(branch string) SourceOption {
	return func(o *sourceOptions) {
		o.defaultBranch = branch
	}
}

// WithCloneBaseDir はクローン先のベースディレクトリを設定する
func WithCloneBaseDir(dir string) SourceOption {
	return func(o *sourceOptions) {
		o.cloneBaseDir = dir
	}
}

// WithAllTextFiles は文書以外のテキストファイル（ソースコードなど）も対象にする
func WithAllTextFiles(all bool) SourceOption {
	return func(o *sourceOptions) {
		o.allText = all
	}
}

// WithSourceLogger は Source にロガーを設定する
func WithSourceLogger(logger *slog.Logger) SourceOption {
	return func(o *sourceOptions) {
		o.logger = logger
	}
}

// NewSource は新しい Source を作成する
func NewSource(client *Client, identifier string, opts ...SourceOption) *Source {
	options := sourceOptions{
		defaultBranch: "main",
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &Source{
		client:        client,
		identifier:    identifier,
		ref:           options.ref,
		defaultBranch: options.defaultBranch,
		cloneBaseDir:  options.cloneBaseDir,
		allText:       options.allText,
		logger:        options.logger,
	}
}

// Name はリポジトリの表示名を返す
// 例: git@github.com:user/repo.git -> github.com/user/repo
func (s *Source) Name() string {
	if isLocalDir(s.identifier) {
		return filepath.Clean(s.identifier)
	}
	dirName, err := DirectoryName(s.identifier)
	if err != nil {
		return strings.TrimSuffix(s.identifier, ".git")
	}
	return filepath.ToSlash(dirName)
}

// Documents はリポジトリを取得し、取り込み対象のテキスト文書をパス順に返す
func (s *Source) Documents(ctx context.Context) ([]*document.Document, error) {
	repoPath, ref, err := s.prepare(ctx)
	if err != nil {
		return nil, err
	}

	ignore, err := NewIgnoreFilter(repoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load ignore rules: %w", err)
	}

	snapshot, err := s.client.Snapshot(ctx, repoPath, ref, func(p string) bool {
		if ignore.ShouldIgnore(p) || enry.IsVendor(p) {
			return false
		}
		return s.allText || isDocumentPath(p)
	})
	if err != nil {
		return nil, err
	}

	name := s.Name()
	docs := make([]*document.Document, 0, len(snapshot.Files))
	for _, f := range snapshot.Files {
		if enry.IsBinary(f.Content) {
			s.logger.Debug("バイナリファイルをスキップ", "path", f.Path)
			continue
		}

		language := enry.GetLanguage(path.Base(f.Path), f.Content)

		docs = append(docs, &document.Document{
			Source:    f.Path,
			Text:      string(f.Content),
			PageCount: 1,
			Metadata: map[string]string{
				"repository": name,
				"commit":     snapshot.Commit,
				"language":   language,
			},
		})
	}

	s.logger.Info("リポジトリから文書を収集",
		"repository", name,
		"commit", snapshot.Commit,
		"files", len(snapshot.Files),
		"documents", len(docs),
	)

	return docs, nil
}

// prepare はリポジトリのローカルパスと読み込む ref を決定する
func (s *Source) prepare(ctx context.Context) (string, string, error) {
	if isLocalDir(s.identifier) {
		ref := s.ref
		if ref == "" {
			ref = "HEAD"
		}
		return s.identifier, ref, nil
	}

	ref := s.ref
	if ref == "" {
		ref = s.defaultBranch
	}

	dirName, err := DirectoryName(s.identifier)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate directory name from URL: %w", err)
	}

	repoPath := filepath.Join(s.cloneBaseDir, dirName)
	if err := s.client.Sync(ctx, s.identifier, repoPath, ref); err != nil {
		return "", "", fmt.Errorf("failed to sync repository: %w", err)
	}
	// Sync が ref をチェックアウト済み
	return repoPath, "HEAD", nil
}

// DefaultCategory はリポジトリ識別子からデフォルトのカテゴリ名（リポジトリ名）を導出する
// 例: https://github.com/user/repo.git -> repo
func DefaultCategory(identifier string) string {
	p := strings.TrimSpace(identifier)
	if !isLocalDir(p) {
		if u, err := giturls.Parse(p); err == nil && u.Path != "" {
			p = u.Path
		}
	}
	p = strings.TrimSuffix(strings.TrimRight(filepath.ToSlash(p), "/"), ".git")
	if p == "" {
		return ""
	}
	base := path.Base(p)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

func isDocumentPath(p string) bool {
	return documentExtensions[strings.ToLower(path.Ext(p))]
}

func isLocalDir(identifier string) bool {
	info, err := os.Stat(identifier)
	return err == nil && info.IsDir()
}
