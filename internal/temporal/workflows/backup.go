package workflows

import (
	"errors"
	"fmt"
	"time"

	"pidsvc-backup/internal/backup"
	"pidsvc-backup/internal/config"
	"pidsvc-backup/internal/temporal/activities"
	"pidsvc-backup/pkg/names"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const ErrorTypeBackupFailed = "BackupFailed"

// BackupWorkflow runs the same pipeline as backup.Runner: remote exports,
// then config groups, then publish, mirror and record. The workflow fails
// when any backup task failed.
func BackupWorkflow(ctx workflow.Context, input BackupWorkflowInput) (*backup.Summary, error) {
	logger := workflow.GetLogger(ctx)
	info := workflow.GetInfo(ctx)

	summary := &backup.Summary{
		RunID:     info.WorkflowExecution.RunID,
		StartedAt: workflow.Now(ctx).UTC(),
		State:     backup.StateStart,
	}
	logger.Info("BackupWorkflow started", "run_id", summary.RunID, "reason", input.Reason)

	ctrlCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	})

	////////////////////////////////////////
	// 1. Load the plan and clear leftovers
	////////////////////////////////////////
	plan := new(activities.GetPlanActivityOutput)
	if err := workflow.ExecuteActivity(ctrlCtx, names.ActivityNameGetPlan, activities.GetPlanActivityInput{}).Get(ctx, plan); err != nil {
		logger.Error("Failed to load backup plan", "error", err)
		return nil, err
	}
	if err := workflow.ExecuteActivity(ctrlCtx, names.ActivityNameCleanup, activities.CleanupActivityInput{}).Get(ctx, nil); err != nil {
		logger.Error("Failed to prepare backups directory", "error", err)
		summary.State = backup.StateFailed
		return finish(ctx, ctrlCtx, summary, err)
	}

	timeout := plan.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	taskCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		// the HTTP client timeout plus room for the file write
		StartToCloseTimeout: timeout + time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	failFast := config.Policy(plan.Policy) != config.PolicyContinue

	////////////////////////////////////////
	// 2. Remote stores
	////////////////////////////////////////
	summary.State = backup.StateFetchingRemotes
	results, err := runPhase(taskCtx, backup.PhaseRemote, plan.Remotes, plan.Concurrency, failFast, func(id string) workflow.Future {
		return workflow.ExecuteActivity(taskCtx, names.ActivityNameRemoteStoreBackup, activities.RemoteStoreBackupActivityInput{TaskID: id})
	})
	summary.Results = append(summary.Results, results...)
	if err != nil {
		summary.State = backup.StateFailed
		return finish(ctx, ctrlCtx, summary, err)
	}

	////////////////////////////////////////
	// 3. Config groups, one at a time
	////////////////////////////////////////
	summary.State = backup.StateBackingUpConfigs
	results, err = runPhase(taskCtx, backup.PhaseConfig, plan.Configs, 1, failFast, func(id string) workflow.Future {
		return workflow.ExecuteActivity(taskCtx, names.ActivityNameConfigBackup, activities.ConfigBackupActivityInput{TaskID: id})
	})
	summary.Results = append(summary.Results, results...)
	if err != nil {
		summary.State = backup.StateFailed
		return finish(ctx, ctrlCtx, summary, err)
	}

	////////////////////////////////////////
	// 4. Publish and mirror
	////////////////////////////////////////
	summary.State = backup.StatePublishing
	publishCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	published := new(activities.PublishActivityOutput)
	if err := workflow.ExecuteActivity(publishCtx, names.ActivityNamePublish, activities.PublishActivityInput{}).Get(ctx, published); err != nil {
		summary.Warn(err)
	} else {
		summary.Committed = published.Result.Committed
		summary.Commit = published.Result.Commit
		summary.Pushed = published.Result.Pushed
		if published.Warning != "" {
			summary.Warnings = append(summary.Warnings, published.Warning)
		}
	}

	mirrored := new(activities.MirrorActivityOutput)
	if err := workflow.ExecuteActivity(publishCtx, names.ActivityNameMirror, activities.MirrorActivityInput{}).Get(ctx, mirrored); err != nil {
		summary.Warn(err)
	} else if mirrored.Warning != "" {
		summary.Warnings = append(summary.Warnings, mirrored.Warning)
	}

	summary.State = backup.StateDone
	return finish(ctx, ctrlCtx, summary, summary.Err())
}

// runPhase starts tasks in windows of at most limit activities and returns
// their results in declared order. Under fail-fast no further window starts
// once a task failed.
func runPhase(ctx workflow.Context, phase backup.Phase, ids []string, limit int, failFast bool, start func(id string) workflow.Future) ([]backup.Result, error) {
	logger := workflow.GetLogger(ctx)
	limit = max(limit, 1)

	var (
		results []backup.Result
		errs    []error
	)
	for lo := 0; lo < len(ids); lo += limit {
		hi := min(lo+limit, len(ids))

		futures := make([]workflow.Future, 0, hi-lo)
		for _, id := range ids[lo:hi] {
			futures = append(futures, start(id))
		}

		for i, f := range futures {
			id := ids[lo+i]
			var out struct {
				Artifact backup.Artifact `json:"artifact"`
			}
			err := f.Get(ctx, &out)
			if err != nil {
				err = taskError(err)
				errs = append(errs, err)
				logger.Error("Backup task failed", "task", id, "phase", string(phase), "error", err)
				results = append(results, backup.NewResult(id, phase, nil, err))
				continue
			}
			artifact := out.Artifact
			logger.Info("Backup task succeeded", "task", id, "phase", string(phase), "path", artifact.Path, "size", artifact.Size)
			results = append(results, backup.NewResult(id, phase, &artifact, nil))
		}

		if failFast && len(errs) > 0 {
			return results, errs[0]
		}
	}
	return results, nil
}

// taskError strips the activity wrapper so results carry the task's own message.
func taskError(err error) error {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr
	}
	return err
}

func finish(ctx, ctrlCtx workflow.Context, summary *backup.Summary, runErr error) (*backup.Summary, error) {
	logger := workflow.GetLogger(ctx)
	summary.FinishedAt = workflow.Now(ctx).UTC()

	recorded := new(activities.RecordRunActivityOutput)
	if err := workflow.ExecuteActivity(ctrlCtx, names.ActivityNameRecordRun, activities.RecordRunActivityInput{Summary: *summary}).Get(ctx, recorded); err != nil {
		summary.Warn(err)
	} else if recorded.Warning != "" {
		summary.Warnings = append(summary.Warnings, recorded.Warning)
	}

	logger.Info("BackupWorkflow finished",
		"state", string(summary.State),
		"succeeded", summary.SucceededCount(),
		"failed", len(summary.Failed()),
		"commit", summary.Commit,
		"pushed", summary.Pushed,
		"warnings", len(summary.Warnings),
	)

	if runErr != nil {
		return summary, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("backup run %s failed: %v", summary.RunID, runErr), ErrorTypeBackupFailed, nil, *summary)
	}
	return summary, nil
}
