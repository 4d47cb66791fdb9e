package git

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// ignoreFiles はリポジトリ直下から読み込む除外ルールファイル
var ignoreFiles = []string{".gitignore", ".ragignore"}

// IgnoreFilter は .gitignore / .ragignore とデフォルトの除外パターンでパスを判定する
type IgnoreFilter struct {
	matcher *gitignore.GitIgnore
}

// NewIgnoreFilter は repoPath 直下の除外ルールファイルとデフォルトパターンから IgnoreFilter を作成する
// 存在しないルールファイルは無視する
func NewIgnoreFilter(repoPath string) (*IgnoreFilter, error) {
	var patterns []string

	for _, name := range ignoreFiles {
		lines, err := readIgnoreFile(filepath.Join(repoPath, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		patterns = append(patterns, lines...)
	}

	patterns = append(patterns, defaultIgnorePatterns...)

	return &IgnoreFilter{
		matcher: gitignore.CompileIgnoreLines(patterns...),
	}, nil
}

// NewIgnoreFilterFromLines は与えられたパターンとデフォルトパターンから IgnoreFilter を作成する
func NewIgnoreFilterFromLines(lines ...string) *IgnoreFilter {
	patterns := append(append([]string{}, lines...), defaultIgnorePatterns...)
	return &IgnoreFilter{matcher: gitignore.CompileIgnoreLines(patterns...)}
}

// ShouldIgnore はパスが除外対象かどうかを判定する
func (f *IgnoreFilter) ShouldIgnore(path string) bool {
	if f == nil || f.matcher == nil {
		return false
	}
	return f.matcher.MatchesPath(path)
}

func readIgnoreFile(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var patterns []string
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// 空行とコメント行
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return patterns, nil
}

var defaultIgnorePatterns = []string{
	// Git関連
	".git",
	".gitattributes",
	".gitmodules",

	// 依存関係・ビルド成果物
	"node_modules",
	"vendor",
	"dist",
	"build",
	"target",
	"out",
	"bin",
	"obj",
	".next",
	".nuxt",

	// IDE/エディタ
	".vscode",
	".idea",
	".DS_Store",
	"*.swp",
	"*.swo",
	"*~",

	// ログ・一時ファイル
	"*.log",
	"logs",
	"*.tmp",
	"*.temp",
	"tmp",
	"temp",

	// 環境変数・機密情報
	".env",
	".env.*",
	"*.pem",
	"*.key",
	"*.crt",
	"*.p12",

	// アーカイブ・メディア
	"*.zip",
	"*.tar",
	"*.gz",
	"*.7z",
	"*.png",
	"*.jpg",
	"*.jpeg",
	"*.gif",
	"*.ico",
	"*.svg",
	"*.webp",
	"*.mp4",
	"*.mp3",

	// キャッシュ・生成物
	"coverage",
	".cache",
	"__pycache__",
	".pytest_cache",
	".docusaurus",
}
