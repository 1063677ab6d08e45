package backup

import (
	"errors"
	"time"
)

type Phase string

const (
	PhaseRemote Phase = "fetching-remotes"
	PhaseConfig Phase = "backing-up-configs"
)

// State is the position of a run in start → fetching-remotes →
// backing-up-configs → publishing → done, or failed.
type State string

const (
	StateStart            State = "start"
	StateFetchingRemotes  State = "fetching-remotes"
	StateBackingUpConfigs State = "backing-up-configs"
	StatePublishing       State = "publishing"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// Artifact is a file written to the backups directory.
type Artifact struct {
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
}

// Result is the outcome of one task.
type Result struct {
	Task     string    `json:"task"`
	Phase    Phase     `json:"phase"`
	Artifact *Artifact `json:"artifact,omitempty"`
	Error    string    `json:"error,omitempty"`

	err error
}

func NewResult(task string, phase Phase, artifact *Artifact, err error) Result {
	r := Result{Task: task, Phase: phase, Artifact: artifact, err: err}
	if err != nil {
		r.Error = err.Error()
		r.Artifact = nil
	}
	return r
}

func (r Result) Succeeded() bool { return r.Error == "" }

// Err returns the original error when the result was built in process, or an
// error carrying the message after a round trip through JSON.
func (r Result) Err() error {
	if r.err != nil {
		return r.err
	}
	if r.Error != "" {
		return errors.New(r.Error)
	}
	return nil
}

// Summary is the report of one run.
type Summary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	State      State     `json:"state"`
	Results    []Result  `json:"results"`
	Committed  bool      `json:"committed"`
	Commit     string    `json:"commit,omitempty"`
	Pushed     bool      `json:"pushed"`
	Warnings   []string  `json:"warnings,omitempty"`
}

func (s *Summary) Failed() []Result {
	var failed []Result
	for _, r := range s.Results {
		if !r.Succeeded() {
			failed = append(failed, r)
		}
	}
	return failed
}

func (s *Summary) SucceededCount() int {
	return len(s.Results) - len(s.Failed())
}

// Err joins the errors of every failed task.
func (s *Summary) Err() error {
	var errs []error
	for _, r := range s.Failed() {
		errs = append(errs, r.Err())
	}
	return errors.Join(errs...)
}

func (s *Summary) Warn(err error) {
	s.Warnings = append(s.Warnings, err.Error())
}
