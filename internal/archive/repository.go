package archive

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"pidsvc-backup/internal/config"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// Repository is the version control capability the publisher needs.
type Repository interface {
	HasChanges() (bool, error)
	StageAll() error
	Commit(message string) (string, error)
	Push(ctx context.Context) error
	RemoteName() string
}

// GitRepository implements Repository on top of go-git.
type GitRepository struct {
	repo *git.Repository
	// dir is the backups directory relative to the worktree root, slash
	// separated; "." when it is the root itself.
	dir    string
	remote string
	auth   transport.AuthMethod
	name   string
	email  string
}

// OpenGitRepository opens the repository containing dir. dir may be the
// repository root or any directory below it.
func OpenGitRepository(dir string, cfg config.GitConfig) (*GitRepository, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository at %s: %w", dir, err)
	}

	rel, err := worktreePath(repo, dir)
	if err != nil {
		return nil, err
	}

	auth, err := pushAuth(cfg)
	if err != nil {
		return nil, err
	}

	remote := cfg.Remote
	if remote == "" {
		remote = git.DefaultRemoteName
	}

	return &GitRepository{
		repo:   repo,
		dir:    rel,
		remote: remote,
		auth:   auth,
		name:   cfg.AuthorName,
		email:  cfg.AuthorEmail,
	}, nil
}

// worktreePath returns dir relative to the root of the repository worktree.
func worktreePath(repo *git.Repository, dir string) (string, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to open worktree: %w", err)
	}
	root, err := realPath(wt.Filesystem.Root())
	if err != nil {
		return "", err
	}
	abs, err := realPath(dir)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the worktree %s", dir, root)
	}
	return filepath.ToSlash(rel), nil
}

func realPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", p, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", p, err)
	}
	return resolved, nil
}

// contains reports whether a worktree path lies under the backups directory.
func (g *GitRepository) contains(path string) bool {
	return g.dir == "." || path == g.dir || strings.HasPrefix(path, g.dir+"/")
}

func pushAuth(cfg config.GitConfig) (transport.AuthMethod, error) {
	if cfg.SSHKeyPath != "" {
		keys, err := ssh.NewPublicKeysFromFile("git", cfg.SSHKeyPath, cfg.SSHPassphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to load ssh key %s: %w", cfg.SSHKeyPath, err)
		}
		return keys, nil
	}
	if cfg.Username != "" {
		return &http.BasicAuth{
			Username: cfg.Username,
			Password: cfg.Password,
		}, nil
	}
	return nil, nil
}

func (g *GitRepository) RemoteName() string { return g.remote }

func (g *GitRepository) HasChanges() (bool, error) {
	wt, err := g.repo.Worktree()
	if err != nil {
		return false, err
	}
	status, err := wt.Status()
	if err != nil {
		return false, err
	}
	for path, s := range status {
		if !g.contains(path) {
			continue
		}
		if s.Staging != git.Unmodified || s.Worktree != git.Unmodified {
			return true, nil
		}
	}
	return false, nil
}

// StageAll stages modified, deleted and untracked files under the backups
// directory. The rest of the worktree is left alone.
func (g *GitRepository) StageAll() error {
	wt, err := g.repo.Worktree()
	if err != nil {
		return err
	}
	if g.dir == "." {
		return wt.AddWithOptions(&git.AddOptions{All: true})
	}
	return wt.AddWithOptions(&git.AddOptions{Path: g.dir})
}

func (g *GitRepository) Commit(message string) (string, error) {
	wt, err := g.repo.Worktree()
	if err != nil {
		return "", err
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  g.name,
			Email: g.email,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", err
	}
	return hash.String(), nil
}

func (g *GitRepository) Push(ctx context.Context) error {
	err := g.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: g.remote,
		Auth:       g.auth,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}
