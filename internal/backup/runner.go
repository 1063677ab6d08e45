package backup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"pidsvc-backup/internal/archive"
	"pidsvc-backup/internal/config"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Task is one unit of backup work writing a single file.
type Task interface {
	ID() string
	Run(ctx context.Context) (*Artifact, error)
}

// Publisher archives the backups directory once all tasks are done.
type Publisher interface {
	Publish(ctx context.Context) (*archive.Result, error)
}

// Mirror copies the backups directory somewhere else after publishing.
type Mirror interface {
	Mirror(ctx context.Context, dir string) (int, error)
}

// Recorder keeps a history of runs.
type Recorder interface {
	Record(ctx context.Context, summary Summary) error
}

// Runner executes every configured backup task and then publishes the result.
type Runner struct {
	cfg       *config.Config
	client    *http.Client
	publisher Publisher
	mirror    Mirror
	recorder  Recorder
	logger    zerolog.Logger
}

type Option func(*Runner)

func WithHTTPClient(c *http.Client) Option { return func(r *Runner) { r.client = c } }

func WithPublisher(p Publisher) Option { return func(r *Runner) { r.publisher = p } }

func WithMirror(m Mirror) Option { return func(r *Runner) { r.mirror = m } }

func WithRecorder(rec Recorder) Option { return func(r *Runner) { r.recorder = rec } }

func NewRunner(cfg *config.Config, logger zerolog.Logger, opts ...Option) *Runner {
	r := &Runner{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RemoteTasks builds one task per configured remote store, in declared order.
func RemoteTasks(cfg *config.Config, client *http.Client) []Task {
	tasks := make([]Task, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		tasks = append(tasks, NewRemoteStoreTask(cfg.BackupsDir, src, client))
	}
	return tasks
}

// ConfigTasks builds one task per configured config group, in declared order.
func ConfigTasks(cfg *config.Config) []Task {
	tasks := make([]Task, 0, len(cfg.Apaches))
	for _, group := range cfg.Apaches {
		tasks = append(tasks, NewConfigTask(cfg.BackupsDir, group))
	}
	return tasks
}

// Run performs one backup run. The returned error reports failed tasks only:
// the first one under fail-fast, all of them joined under continue.
// Publishing problems end up in Summary.Warnings.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
		State:     StateStart,
	}
	logger := r.logger.With().Str("run_id", summary.RunID).Logger()
	logger.Info().
		Str("backups_dir", r.cfg.BackupsDir).
		Str("policy", string(r.cfg.Policy)).
		Int("remotes", len(r.cfg.Sources)).
		Int("configs", len(r.cfg.Apaches)).
		Msg("backup run started")

	if err := r.prepare(logger); err != nil {
		summary.State = StateFailed
		return r.finish(ctx, summary, logger), err
	}

	summary.State = StateFetchingRemotes
	results, err := r.runPhase(ctx, logger, PhaseRemote, RemoteTasks(r.cfg, r.client), r.cfg.Concurrency)
	summary.Results = append(summary.Results, results...)
	if err != nil {
		summary.State = StateFailed
		return r.finish(ctx, summary, logger), err
	}

	summary.State = StateBackingUpConfigs
	results, err = r.runPhase(ctx, logger, PhaseConfig, ConfigTasks(r.cfg), 1)
	summary.Results = append(summary.Results, results...)
	if err != nil {
		summary.State = StateFailed
		return r.finish(ctx, summary, logger), err
	}

	summary.State = StatePublishing
	r.publish(ctx, summary, logger)

	summary.State = StateDone
	return r.finish(ctx, summary, logger), summary.Err()
}

func (r *Runner) prepare(logger zerolog.Logger) error {
	info, err := os.Stat(r.cfg.BackupsDir)
	if err != nil {
		return fmt.Errorf("backups directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("backups directory %s is not a directory", r.cfg.BackupsDir)
	}
	removed, err := RemoveStaleTemps(r.cfg.BackupsDir, OutputFiles(r.cfg))
	if err != nil {
		return err
	}
	for _, path := range removed {
		logger.Warn().Str("path", path).Msg("removed temp file left by an interrupted run")
	}
	return nil
}

// runPhase runs tasks on at most limit goroutines. Under fail-fast the first
// error cancels the phase and tasks not yet started are skipped.
func (r *Runner) runPhase(ctx context.Context, logger zerolog.Logger, phase Phase, tasks []Task, limit int) ([]Result, error) {
	if len(tasks) == 0 {
		return nil, nil
	}
	failFast := r.cfg.Policy != config.PolicyContinue

	results := make([]Result, len(tasks))
	ran := make([]bool, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))

	taskCtx := ctx
	if failFast {
		taskCtx = gctx
	}

	for i, task := range tasks {
		g.Go(func() error {
			if failFast && gctx.Err() != nil {
				return nil
			}
			start := time.Now()
			artifact, err := task.Run(taskCtx)
			results[i] = NewResult(task.ID(), phase, artifact, err)
			ran[i] = true

			if err != nil {
				logger.Error().Err(err).Str("task", task.ID()).Str("phase", string(phase)).Msg("backup task failed")
				if failFast {
					return err
				}
				return nil
			}
			logger.Info().
				Str("task", task.ID()).
				Str("phase", string(phase)).
				Str("file", artifact.Path).
				Int64("size", artifact.Size).
				Str("checksum", artifact.Checksum).
				Dur("took", time.Since(start)).
				Msg("backup task succeeded")
			return nil
		})
	}
	err := g.Wait()

	out := make([]Result, 0, len(tasks))
	for i := range tasks {
		if ran[i] {
			out = append(out, results[i])
		}
	}
	return out, err
}

func (r *Runner) publish(ctx context.Context, summary *Summary, logger zerolog.Logger) {
	if r.publisher == nil {
		logger.Warn().Msg("no archive publisher configured, backups stay uncommitted")
		return
	}

	result, err := r.publisher.Publish(ctx)
	if result != nil {
		summary.Committed = result.Committed
		summary.Commit = result.Commit
		summary.Pushed = result.Pushed
	}
	if err != nil {
		summary.Warn(err)
		if errors.Is(err, archive.ErrNothingToCommit) && summary.Pushed {
			logger.Info().Msg("backups unchanged since last run")
		} else {
			logger.Warn().Err(err).Msg("publishing backups did not fully succeed")
		}
	}

	if r.mirror != nil {
		if _, err := r.mirror.Mirror(ctx, r.cfg.BackupsDir); err != nil {
			summary.Warn(fmt.Errorf("mirror: %w", err))
			logger.Warn().Err(err).Msg("mirroring backups failed")
		}
	}
}

func (r *Runner) finish(ctx context.Context, summary *Summary, logger zerolog.Logger) *Summary {
	summary.FinishedAt = time.Now().UTC()

	if r.recorder != nil {
		if err := r.recorder.Record(ctx, *summary); err != nil {
			summary.Warn(fmt.Errorf("history: %w", err))
			logger.Warn().Err(err).Msg("recording run history failed")
		}
	}

	event := logger.Info()
	if summary.State == StateFailed || len(summary.Failed()) > 0 {
		event = logger.Error()
	}
	event.
		Str("state", string(summary.State)).
		Int("succeeded", summary.SucceededCount()).
		Int("failed", len(summary.Failed())).
		Bool("committed", summary.Committed).
		Str("commit", summary.Commit).
		Bool("pushed", summary.Pushed).
		Strs("warnings", summary.Warnings).
		Dur("took", summary.FinishedAt.Sub(summary.StartedAt)).
		Msg("backup run finished")
	return summary
}
