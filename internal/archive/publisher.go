package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Result describes what happened to the backups directory in one publish.
type Result struct {
	Committed bool   `json:"committed"`
	Commit    string `json:"commit,omitempty"`
	Pushed    bool   `json:"pushed"`
}

// Publisher commits the backups directory and pushes it to its remote.
type Publisher struct {
	repo    Repository
	message string
	logger  zerolog.Logger
}

func NewPublisher(repo Repository, message string, logger zerolog.Logger) *Publisher {
	if message == "" {
		message = "backup"
	}
	return &Publisher{
		repo:    repo,
		message: message,
		logger:  logger.With().Str("component", "archive").Logger(),
	}
}

// Publish stages everything, commits and pushes. A clean tree still gets a push
// so commits left behind by an earlier failed push reach the remote.
//
// The returned error is a *PublishCommitError, a *PublishPushError, or both joined.
// The result is never nil.
func (p *Publisher) Publish(ctx context.Context) (*Result, error) {
	result := new(Result)
	var commitErr error

	changed, err := p.repo.HasChanges()
	switch {
	case err != nil:
		commitErr = &PublishCommitError{Err: fmt.Errorf("failed to read worktree status: %w", err)}
	case !changed:
		commitErr = &PublishCommitError{Err: ErrNothingToCommit}
	default:
		commitErr = p.commit(result)
	}

	switch {
	case errors.Is(commitErr, ErrNothingToCommit):
		p.logger.Info().Msg("no changes to commit")
	case commitErr != nil:
		p.logger.Warn().Err(commitErr).Msg("commit failed")
	default:
		p.logger.Info().Str("commit", result.Commit).Msg("backups committed")
	}

	if err := p.repo.Push(ctx); err != nil {
		pushErr := &PublishPushError{Remote: p.repo.RemoteName(), Commit: result.Commit, Err: err}
		p.logger.Warn().Err(pushErr).Msg("push failed, backups are committed locally only")
		return result, errors.Join(commitErr, pushErr)
	}

	result.Pushed = true
	p.logger.Info().Str("remote", p.repo.RemoteName()).Msg("backups pushed")
	return result, commitErr
}

func (p *Publisher) commit(result *Result) error {
	if err := p.repo.StageAll(); err != nil {
		return &PublishCommitError{Err: fmt.Errorf("failed to stage changes: %w", err)}
	}
	hash, err := p.repo.Commit(p.message)
	if err != nil {
		return &PublishCommitError{Err: fmt.Errorf("failed to commit: %w", err)}
	}
	result.Committed = true
	result.Commit = hash
	return nil
}
