package workflows

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
	"pidsvc-backup/internal/backup"
	"pidsvc-backup/internal/config"
	"pidsvc-backup/internal/config/job"
	"pidsvc-backup/internal/temporal/activities"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
)

type fakePublisher struct {
	calls  atomic.Int32
	result archive.Result
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context) (*archive.Result, error) {
	f.calls.Add(1)
	r := f.result
	return &r, f.err
}

type fakeRecorder struct {
	summaries []backup.Summary
}

func (f *fakeRecorder) Record(ctx context.Context, summary backup.Summary) error {
	f.summaries = append(f.summaries, summary)
	return nil
}

type BackupWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite

	env       *testsuite.TestWorkflowEnvironment
	acts      *activities.Activities
	publisher *fakePublisher
	recorder  *fakeRecorder
	good      *httptest.Server
	goodHits  atomic.Int32
	bad       *httptest.Server
}

func (s *BackupWorkflowTestSuite) SetupTest() {
	s.goodHits.Store(0)
	s.good = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.goodHits.Add(1)
		w.Write([]byte("<root><item/></root>"))
	}))
	s.bad = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("unavailable"))
	}))

	dir := s.T().TempDir()
	conf := filepath.Join(s.T().TempDir(), "apache2.conf")
	s.Require().NoError(os.WriteFile(conf, []byte("Listen 80\n"), 0o644))

	cfg := &config.Config{
		BackupsDir:  dir,
		Policy:      config.PolicyFailFast,
		Concurrency: 1,
		Timeout:     time.Minute,
		Apaches:     []job.ApacheConfig{{BackupFile: "apache.conf", ConfFiles: []string{conf}}},
	}

	s.publisher = &fakePublisher{result: archive.Result{Committed: true, Commit: "abc123", Pushed: true}}
	s.recorder = &fakeRecorder{}
	s.acts = activities.NewActivities(cfg, http.DefaultClient)
	s.acts.Publisher = s.publisher
	s.acts.History = s.recorder

	s.env = s.NewTestWorkflowEnvironment()
	s.env.RegisterWorkflow(BackupWorkflow)
	s.env.RegisterActivity(s.acts)
}

func (s *BackupWorkflowTestSuite) TearDownTest() {
	s.env.AssertExpectations(s.T())
	s.good.Close()
	s.bad.Close()
}

func (s *BackupWorkflowTestSuite) failedSummary(err error) backup.Summary {
	var appErr *temporal.ApplicationError
	s.Require().True(errors.As(err, &appErr))
	s.Equal(ErrorTypeBackupFailed, appErr.Type())

	var summary backup.Summary
	s.Require().NoError(appErr.Details(&summary))
	return summary
}

func (s *BackupWorkflowTestSuite) Test_AllTasksSucceed() {
	s.acts.Config.Sources = []job.RemoteStoreConfig{
		{APIURI: s.good.URL, BackupFile: "a.xml"},
		{APIURI: s.good.URL, BackupFile: "b.xml"},
	}
	s.acts.Config.Concurrency = 2

	s.env.ExecuteWorkflow(BackupWorkflow, BackupWorkflowInput{Reason: "manual"})

	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())

	var summary backup.Summary
	s.Require().NoError(s.env.GetWorkflowResult(&summary))
	s.Equal(backup.StateDone, summary.State)
	s.Require().Len(summary.Results, 3)
	s.Equal("pidsvc:a.xml", summary.Results[0].Task)
	s.Equal("pidsvc:b.xml", summary.Results[1].Task)
	s.Equal("apache:apache.conf", summary.Results[2].Task)
	s.Equal(backup.PhaseConfig, summary.Results[2].Phase)
	s.Equal("abc123", summary.Commit)
	s.True(summary.Pushed)
	s.Empty(summary.Warnings)

	s.EqualValues(1, s.publisher.calls.Load())
	s.Require().Len(s.recorder.summaries, 1)
	s.Equal(summary.RunID, s.recorder.summaries[0].RunID)
	s.FileExists(filepath.Join(s.acts.Config.BackupsDir, "a.xml"))
	s.FileExists(filepath.Join(s.acts.Config.BackupsDir, "b.xml"))
}

func (s *BackupWorkflowTestSuite) Test_FailFast() {
	s.acts.Config.Sources = []job.RemoteStoreConfig{
		{APIURI: s.bad.URL, BackupFile: "a.xml"},
		{APIURI: s.good.URL, BackupFile: "b.xml"},
	}

	s.env.ExecuteWorkflow(BackupWorkflow, BackupWorkflowInput{})

	s.True(s.env.IsWorkflowCompleted())
	err := s.env.GetWorkflowError()
	s.Require().Error(err)
	s.Contains(err.Error(), "503")

	summary := s.failedSummary(err)
	s.Equal(backup.StateFailed, summary.State)
	s.Require().Len(summary.Results, 1)
	s.Contains(summary.Results[0].Error, "unavailable")

	s.EqualValues(0, s.goodHits.Load())
	s.EqualValues(0, s.publisher.calls.Load())
	s.Len(s.recorder.summaries, 1)
	s.NoFileExists(filepath.Join(s.acts.Config.BackupsDir, "apache.conf"))
}

func (s *BackupWorkflowTestSuite) Test_ContinuePublishesThenFails() {
	s.acts.Config.Policy = config.PolicyContinue
	s.acts.Config.Sources = []job.RemoteStoreConfig{
		{APIURI: s.bad.URL, BackupFile: "a.xml"},
		{APIURI: s.good.URL, BackupFile: "b.xml"},
	}
	s.publisher.result = archive.Result{Committed: true, Commit: "abc123"}
	s.publisher.err = &archive.PublishPushError{Remote: "origin", Commit: "abc123", Err: errors.New("connection refused")}

	s.env.ExecuteWorkflow(BackupWorkflow, BackupWorkflowInput{})

	s.True(s.env.IsWorkflowCompleted())
	summary := s.failedSummary(s.env.GetWorkflowError())
	s.Equal(backup.StateDone, summary.State)
	s.Len(summary.Results, 3)
	s.Len(summary.Failed(), 1)
	s.True(summary.Committed)
	s.False(summary.Pushed)
	s.Require().Len(summary.Warnings, 1)
	s.Contains(summary.Warnings[0], "connection refused")

	s.EqualValues(1, s.goodHits.Load())
	s.EqualValues(1, s.publisher.calls.Load())
	s.FileExists(filepath.Join(s.acts.Config.BackupsDir, "b.xml"))
	s.FileExists(filepath.Join(s.acts.Config.BackupsDir, "apache.conf"))
}

func (s *BackupWorkflowTestSuite) Test_PlanFailure() {
	s.env.OnActivity(s.acts.GetPlanActivity, mock.Anything, mock.Anything).
		Return(nil, temporal.NewNonRetryableApplicationError("config unavailable", "PlanError", nil))

	s.env.ExecuteWorkflow(BackupWorkflow, BackupWorkflowInput{})

	s.True(s.env.IsWorkflowCompleted())
	s.ErrorContains(s.env.GetWorkflowError(), "config unavailable")
	s.EqualValues(0, s.publisher.calls.Load())
	s.Empty(s.recorder.summaries)
}

func TestBackupWorkflowTestSuite(t *testing.T) {
	suite.Run(t, new(BackupWorkflowTestSuite))
}
