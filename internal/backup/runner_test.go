package backup

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"pidsvc-backup/internal/archive"
	"pidsvc-backup/internal/config"
	"pidsvc-backup/internal/config/job"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	calls  int
	result *archive.Result
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context) (*archive.Result, error) {
	f.calls++
	if f.result == nil {
		return &archive.Result{}, f.err
	}
	return f.result, f.err
}

type fakeRecorder struct {
	summaries []Summary
	err       error
}

func (f *fakeRecorder) Record(ctx context.Context, summary Summary) error {
	f.summaries = append(f.summaries, summary)
	return f.err
}

type fakeMirror struct {
	dirs []string
	err  error
}

func (f *fakeMirror) Mirror(ctx context.Context, dir string) (int, error) {
	f.dirs = append(f.dirs, dir)
	return 1, f.err
}

type countingServer struct {
	*httptest.Server
	hits atomic.Int32
}

func newCountingServer(t *testing.T, status int, body string) *countingServer {
	t.Helper()
	s := &countingServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(s.Close)
	return s
}

func testConfig(t *testing.T, policy config.Policy) *config.Config {
	t.Helper()
	return &config.Config{
		BackupsDir:  t.TempDir(),
		Policy:      policy,
		Concurrency: 1,
		Timeout:     10 * time.Second,
	}
}

func confFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunner_AllTasksSucceed(t *testing.T) {
	good := newCountingServer(t, http.StatusOK, "<root><item/></root>")
	cfg := testConfig(t, config.PolicyFailFast)
	cfg.Sources = []job.RemoteStoreConfig{{APIURI: good.URL, BackupFile: "pidsvc.xml"}}
	cfg.Apaches = []job.ApacheConfig{{BackupFile: "apache.conf", ConfFiles: []string{confFile(t, "a.conf", "Listen 80\n")}}}

	publisher := &fakePublisher{result: &archive.Result{Committed: true, Commit: "abc123", Pushed: true}}
	recorder := &fakeRecorder{}
	mirror := &fakeMirror{}

	summary, err := NewRunner(cfg, zerolog.Nop(),
		WithPublisher(publisher), WithRecorder(recorder), WithMirror(mirror)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, summary.State)
	require.Len(t, summary.Results, 2)
	assert.Equal(t, "pidsvc:pidsvc.xml", summary.Results[0].Task)
	assert.Equal(t, PhaseRemote, summary.Results[0].Phase)
	assert.Equal(t, "apache:apache.conf", summary.Results[1].Task)
	assert.Equal(t, PhaseConfig, summary.Results[1].Phase)
	assert.Equal(t, 2, summary.SucceededCount())

	assert.Equal(t, 1, publisher.calls)
	assert.True(t, summary.Committed)
	assert.Equal(t, "abc123", summary.Commit)
	assert.True(t, summary.Pushed)
	assert.Empty(t, summary.Warnings)
	assert.Equal(t, []string{cfg.BackupsDir}, mirror.dirs)

	require.Len(t, recorder.summaries, 1)
	assert.Equal(t, summary.RunID, recorder.summaries[0].RunID)
	assert.False(t, summary.FinishedAt.Before(summary.StartedAt))

	assert.FileExists(t, filepath.Join(cfg.BackupsDir, "pidsvc.xml"))
	assert.FileExists(t, filepath.Join(cfg.BackupsDir, "apache.conf"))
}

func TestRunner_FailFastStopsAtFirstFailure(t *testing.T) {
	bad := newCountingServer(t, http.StatusServiceUnavailable, "unavailable")
	good := newCountingServer(t, http.StatusOK, "<root/>")
	cfg := testConfig(t, config.PolicyFailFast)
	cfg.Sources = []job.RemoteStoreConfig{
		{APIURI: bad.URL, BackupFile: "first.xml"},
		{APIURI: good.URL, BackupFile: "second.xml"},
	}
	cfg.Apaches = []job.ApacheConfig{{BackupFile: "apache.conf", ConfFiles: []string{confFile(t, "a.conf", "x")}}}

	publisher := &fakePublisher{}
	recorder := &fakeRecorder{}

	summary, err := NewRunner(cfg, zerolog.Nop(), WithPublisher(publisher), WithRecorder(recorder)).Run(context.Background())

	var remoteErr *RemoteBackupError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusServiceUnavailable, remoteErr.StatusCode)

	assert.Equal(t, StateFailed, summary.State)
	require.Len(t, summary.Results, 1)
	assert.False(t, summary.Results[0].Succeeded())
	assert.EqualValues(t, 0, good.hits.Load())
	assert.Zero(t, publisher.calls)

	assert.NoFileExists(t, filepath.Join(cfg.BackupsDir, "first.xml"))
	assert.NoFileExists(t, filepath.Join(cfg.BackupsDir, "apache.conf"))

	require.Len(t, recorder.summaries, 1)
	assert.Equal(t, StateFailed, recorder.summaries[0].State)
}

func TestRunner_FailFastInConfigPhase(t *testing.T) {
	cfg := testConfig(t, config.PolicyFailFast)
	cfg.Apaches = []job.ApacheConfig{
		{BackupFile: "broken.conf", ConfFiles: []string{filepath.Join(t.TempDir(), "missing.conf")}},
		{BackupFile: "apache.conf", ConfFiles: []string{confFile(t, "a.conf", "x")}},
	}
	publisher := &fakePublisher{}

	summary, err := NewRunner(cfg, zerolog.Nop(), WithPublisher(publisher)).Run(context.Background())

	var configErr *ConfigBackupError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, StateFailed, summary.State)
	assert.Len(t, summary.Results, 1)
	assert.Zero(t, publisher.calls)
	assert.NoFileExists(t, filepath.Join(cfg.BackupsDir, "apache.conf"))
}

func TestRunner_ContinueRunsEverythingAndPublishes(t *testing.T) {
	bad := newCountingServer(t, http.StatusServiceUnavailable, "unavailable")
	good := newCountingServer(t, http.StatusOK, "<root/>")
	cfg := testConfig(t, config.PolicyContinue)
	cfg.Sources = []job.RemoteStoreConfig{
		{APIURI: bad.URL, BackupFile: "first.xml"},
		{APIURI: good.URL, BackupFile: "second.xml"},
	}
	cfg.Apaches = []job.ApacheConfig{
		{BackupFile: "broken.conf", ConfFiles: []string{filepath.Join(t.TempDir(), "missing.conf")}},
		{BackupFile: "apache.conf", ConfFiles: []string{confFile(t, "a.conf", "x")}},
	}
	publisher := &fakePublisher{result: &archive.Result{Committed: true, Commit: "abc", Pushed: true}}

	summary, err := NewRunner(cfg, zerolog.Nop(), WithPublisher(publisher)).Run(context.Background())
	require.Error(t, err)

	var remoteErr *RemoteBackupError
	assert.ErrorAs(t, err, &remoteErr)
	var configErr *ConfigBackupError
	assert.ErrorAs(t, err, &configErr)

	assert.Equal(t, StateDone, summary.State)
	require.Len(t, summary.Results, 4)
	assert.Equal(t, 2, summary.SucceededCount())
	assert.Len(t, summary.Failed(), 2)
	assert.EqualValues(t, 1, good.hits.Load())
	assert.Equal(t, 1, publisher.calls)

	assert.FileExists(t, filepath.Join(cfg.BackupsDir, "second.xml"))
	assert.FileExists(t, filepath.Join(cfg.BackupsDir, "apache.conf"))
	assert.NoFileExists(t, filepath.Join(cfg.BackupsDir, "first.xml"))
	assert.NoFileExists(t, filepath.Join(cfg.BackupsDir, "broken.conf"))
}

func TestRunner_ParallelFetchKeepsDeclaredOrder(t *testing.T) {
	srv := newCountingServer(t, http.StatusOK, "<root/>")
	cfg := testConfig(t, config.PolicyFailFast)
	cfg.Concurrency = 3
	for _, name := range []string{"a.xml", "b.xml", "c.xml", "d.xml"} {
		cfg.Sources = append(cfg.Sources, job.RemoteStoreConfig{APIURI: srv.URL, BackupFile: name})
	}

	summary, err := NewRunner(cfg, zerolog.Nop()).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.Results, 4)
	for i, name := range []string{"a.xml", "b.xml", "c.xml", "d.xml"} {
		assert.Equal(t, "pidsvc:"+name, summary.Results[i].Task)
		assert.FileExists(t, filepath.Join(cfg.BackupsDir, name))
	}
	assert.EqualValues(t, 4, srv.hits.Load())
}

func TestRunner_PublishProblemsAreWarnings(t *testing.T) {
	cfg := testConfig(t, config.PolicyFailFast)
	cfg.Apaches = []job.ApacheConfig{{BackupFile: "apache.conf", ConfFiles: []string{confFile(t, "a.conf", "x")}}}

	pushErr := &archive.PublishPushError{Remote: "origin", Commit: "abc123", Err: errors.New("connection refused")}
	publisher := &fakePublisher{result: &archive.Result{Committed: true, Commit: "abc123"}, err: pushErr}
	mirror := &fakeMirror{err: errors.New("access denied")}
	recorder := &fakeRecorder{err: errors.New("database is down")}

	summary, err := NewRunner(cfg, zerolog.Nop(),
		WithPublisher(publisher), WithMirror(mirror), WithRecorder(recorder)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, summary.State)
	assert.True(t, summary.Committed)
	assert.False(t, summary.Pushed)
	require.Len(t, summary.Warnings, 3)
	assert.Contains(t, summary.Warnings[0], "connection refused")
	assert.Contains(t, summary.Warnings[1], "access denied")
	assert.Contains(t, summary.Warnings[2], "database is down")
}

func TestRunner_SweepsStaleTempFiles(t *testing.T) {
	cfg := testConfig(t, config.PolicyFailFast)
	cfg.Apaches = []job.ApacheConfig{{BackupFile: "apache.conf", ConfFiles: []string{confFile(t, "a.conf", "x")}}}
	stale := filepath.Join(cfg.BackupsDir, ".apache.conf8675309")
	require.NoError(t, os.WriteFile(stale, []byte("partial"), 0o644))

	_, err := NewRunner(cfg, zerolog.Nop()).Run(context.Background())
	require.NoError(t, err)
	assert.NoFileExists(t, stale)
}

func TestRunner_MissingBackupsDir(t *testing.T) {
	cfg := testConfig(t, config.PolicyFailFast)
	cfg.BackupsDir = filepath.Join(cfg.BackupsDir, "missing")
	publisher := &fakePublisher{}

	summary, err := NewRunner(cfg, zerolog.Nop(), WithPublisher(publisher)).Run(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, StateFailed, summary.State)
	assert.Zero(t, publisher.calls)
}

func TestRunner_PublishesToGitWithUnreachableRemote(t *testing.T) {
	srv := newCountingServer(t, http.StatusOK, "<root><item/></root>")
	cfg := testConfig(t, config.PolicyFailFast)
	cfg.Sources = []job.RemoteStoreConfig{{APIURI: srv.URL, BackupFile: "pidsvc.xml"}}
	cfg.Git = config.GitConfig{Remote: "origin", Message: "backup", AuthorName: "test", AuthorEmail: "test@example.org"}

	repo, err := git.PlainInit(cfg.BackupsDir, false)
	require.NoError(t, err)
	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{"http://127.0.0.1:1/backups.git"}})
	require.NoError(t, err)

	gitRepo, err := archive.OpenGitRepository(cfg.BackupsDir, cfg.Git)
	require.NoError(t, err)
	runner := NewRunner(cfg, zerolog.Nop(), WithPublisher(archive.NewPublisher(gitRepo, cfg.Git.Message, zerolog.Nop())))

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateDone, summary.State)
	assert.True(t, summary.Committed)
	assert.False(t, summary.Pushed)
	require.NotEmpty(t, summary.Warnings)

	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, summary.Commit, head.Hash().String())
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, "backup", commit.Message)

	// Same export again: files identical, nothing new to commit.
	summary, err = runner.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, summary.Committed)
	assert.Contains(t, summary.Warnings[0], archive.ErrNothingToCommit.Error())

	head2, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, head.Hash(), head2.Hash())
}
