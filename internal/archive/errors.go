package archive

import (
	"errors"
	"fmt"
)

// ErrNothingToCommit is returned (wrapped in PublishCommitError) when the backups
// directory has no changes since the last commit.
var ErrNothingToCommit = errors.New("nothing to commit, working tree clean")

// PublishCommitError means no new commit was created. Backup files are still on disk.
type PublishCommitError struct {
	Err error
}

func (e *PublishCommitError) Error() string {
	return fmt.Sprintf("archive commit failed: %v", e.Err)
}

func (e *PublishCommitError) Unwrap() error { return e.Err }

// PublishPushError means the commit exists locally but did not reach the remote.
type PublishPushError struct {
	Remote string
	Commit string
	Err    error
}

func (e *PublishPushError) Error() string {
	if e.Commit == "" {
		return fmt.Sprintf("archive push to %s failed: %v", e.Remote, e.Err)
	}
	return fmt.Sprintf("archive push of %s to %s failed: %v", shortHash(e.Commit), e.Remote, e.Err)
}

func (e *PublishPushError) Unwrap() error { return e.Err }

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
