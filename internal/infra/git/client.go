package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	giturls "github.com/whilp/git-urls"
)

const remoteName = "origin"

// Client はリポジトリの取得とツリーの読み込みを行う
type Client struct {
	sshKeyPath  string
	sshPassword string
	progress    io.Writer
}

// NewClient は Client を作成する
// progress が nil の場合、clone/fetch の進捗は出力しない
func NewClient(sshKeyPath, sshPassword string, progress io.Writer) *Client {
	return &Client{
		sshKeyPath:  sshKeyPath,
		sshPassword: sshPassword,
		progress:    progress,
	}
}

// File はツリー上のファイルと内容
type File struct {
	Path    string
	Content []byte
}

// Snapshot はあるコミット時点で読み込んだファイル群
type Snapshot struct {
	Commit string
	Files  []*File
}

// DirectoryName は Git URL からクローン先の相対ディレクトリを導出する
// 例: git@github.com:user/repo.git -> github.com/user/repo
func DirectoryName(gitURL string) (string, error) {
	u, err := giturls.Parse(gitURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse git URL: %w", err)
	}

	host := u.Hostname()
	if host == "" {
		host = u.Host
	}
	repoPath := strings.TrimSuffix(strings.TrimPrefix(u.Path, "/"), ".git")

	return filepath.Join(host, repoPath), nil
}

// Sync は url のリポジトリを destDir に用意し、ref が指すコミットをチェックアウトする
// 未クローンならクローンし、クローン済みなら origin から fetch する
func (c *Client) Sync(ctx context.Context, url, destDir, ref string) error {
	auth, err := c.auth()
	if err != nil {
		return err
	}

	repo, err := git.PlainOpen(destDir)
	switch {
	case errors.Is(err, git.ErrRepositoryNotExists):
		repo, err = git.PlainCloneContext(ctx, destDir, false, &git.CloneOptions{
			URL:      url,
			Auth:     auth,
			Progress: c.progress,
		})
		if err != nil {
			return fmt.Errorf("failed to clone repository: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to open repository: %w", err)
	default:
		err = repo.FetchContext(ctx, &git.FetchOptions{
			RemoteName: remoteName,
			Auth:       auth,
			Progress:   c.progress,
			Tags:       git.AllTags,
		})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return fmt.Errorf("failed to fetch: %w", err)
		}
	}

	// fetch はローカルブランチを進めないため、リモート側の ref を優先する
	hash, err := resolveRef(repo, ref, true)
	if err != nil {
		return err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: hash, Force: true}); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", ref, err)
	}
	return nil
}

// Snapshot は ref のツリーを走査し、keep が true を返したテキストファイルを読み込む
// go-git がバイナリと判定したファイルは含めない
func (c *Client) Snapshot(ctx context.Context, repoPath, ref string, keep func(path string) bool) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	hash, err := resolveRef(repo, ref, false)
	if err != nil {
		return nil, err
	}

	commit, err := repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit object: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	snapshot := &Snapshot{Commit: hash.String()}
	err = tree.Files().ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if keep != nil && !keep(f.Name) {
			return nil
		}

		if binary, err := f.IsBinary(); err != nil || binary {
			return err
		}
		content, err := f.Contents()
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", f.Name, err)
		}

		snapshot.Files = append(snapshot.Files, &File{Path: f.Name, Content: []byte(content)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate files: %w", err)
	}

	return snapshot, nil
}

// auth は SSH 鍵が設定されていればその認証方式を返す
// 鍵が無い場合は nil インターフェースを返し、go-git の既定の認証に任せる
func (c *Client) auth() (transport.AuthMethod, error) {
	if c.sshKeyPath == "" {
		return nil, nil
	}
	if _, err := os.Stat(c.sshKeyPath); os.IsNotExist(err) {
		return nil, nil
	}

	keys, err := ssh.NewPublicKeysFromFile("git", c.sshKeyPath, c.sshPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key: %w", err)
	}
	return keys, nil
}

// resolveRef は ref をコミットハッシュに解決する
// ブランチ、origin のリモートブランチ、タグ、HEAD、コミットハッシュの順に探す。
// preferRemote の場合はリモートブランチをローカルブランチより先に見る
func resolveRef(repo *git.Repository, ref string, preferRemote bool) (plumbing.Hash, error) {
	if ref == "HEAD" {
		head, err := repo.Head()
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("failed to resolve HEAD: %w", err)
		}
		return head.Hash(), nil
	}

	names := []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(ref),
		plumbing.NewRemoteReferenceName(remoteName, ref),
		plumbing.NewTagReferenceName(ref),
	}
	if preferRemote {
		names[0], names[1] = names[1], names[0]
	}

	for _, name := range names {
		if r, err := repo.Reference(name, true); err == nil {
			return peel(repo, r.Hash()), nil
		}
	}

	if hash := plumbing.NewHash(ref); !hash.IsZero() {
		if _, err := repo.CommitObject(hash); err == nil {
			return hash, nil
		}
	}

	return plumbing.ZeroHash, fmt.Errorf("failed to resolve ref: %s", ref)
}

// peel は注釈付きタグを指すハッシュをコミットのハッシュに変換する
func peel(repo *git.Repository, hash plumbing.Hash) plumbing.Hash {
	tag, err := repo.TagObject(hash)
	if err != nil {
		return hash
	}
	commit, err := tag.Commit()
	if err != nil {
		return hash
	}
	return commit.Hash
}
