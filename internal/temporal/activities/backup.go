package activities

import (
	"context"
	"fmt"

	"pidsvc-backup/internal/backup"
	"pidsvc-backup/pkg/names"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

type RemoteStoreBackupActivityInput struct {
	TaskID string `json:"task_id"`
}

type RemoteStoreBackupActivityOutput struct {
	Artifact backup.Artifact `json:"artifact"`
}

// RemoteStoreBackupActivity exports one remote data store into the backups directory.
// Failures are non-retryable: a backup run never retries a fetch.
func (a *Activities) RemoteStoreBackupActivity(ctx context.Context, input RemoteStoreBackupActivityInput) (*RemoteStoreBackupActivityOutput, error) {
	logger := activity.GetLogger(ctx)

	for _, src := range a.Config.Sources {
		if src.ID() != input.TaskID {
			continue
		}
		logger.Info("Fetching remote store export", "task", input.TaskID, "api_uri", src.APIURI)

		task := backup.NewRemoteStoreTask(a.Config.BackupsDir, src, a.Client)
		artifact, err := task.Run(ctx)
		if err != nil {
			logger.Error("Remote store backup failed", "task", input.TaskID, "error", err)
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), names.ErrorTypeRemoteBackup, nil, input.TaskID)
		}

		logger.Info("Remote store backup written", "task", input.TaskID, "path", artifact.Path, "size", artifact.Size)
		return &RemoteStoreBackupActivityOutput{Artifact: *artifact}, nil
	}

	return nil, temporal.NewNonRetryableApplicationError(
		fmt.Sprintf("remote store task not found: %s", input.TaskID), names.ErrorTypeRemoteBackup, nil)
}

type ConfigBackupActivityInput struct {
	TaskID string `json:"task_id"`
}

type ConfigBackupActivityOutput struct {
	Artifact backup.Artifact `json:"artifact"`
}

// ConfigBackupActivity concatenates one config group into the backups directory.
func (a *Activities) ConfigBackupActivity(ctx context.Context, input ConfigBackupActivityInput) (*ConfigBackupActivityOutput, error) {
	logger := activity.GetLogger(ctx)

	for _, group := range a.Config.Apaches {
		if group.ID() != input.TaskID {
			continue
		}
		logger.Info("Backing up config files", "task", input.TaskID, "files", len(group.ConfFiles))

		task := backup.NewConfigTask(a.Config.BackupsDir, group)
		artifact, err := task.Run(ctx)
		if err != nil {
			logger.Error("Config backup failed", "task", input.TaskID, "error", err)
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), names.ErrorTypeConfigBackup, nil, input.TaskID)
		}

		logger.Info("Config backup written", "task", input.TaskID, "path", artifact.Path, "size", artifact.Size)
		return &ConfigBackupActivityOutput{Artifact: *artifact}, nil
	}

	return nil, temporal.NewNonRetryableApplicationError(
		fmt.Sprintf("config task not found: %s", input.TaskID), names.ErrorTypeConfigBackup, nil)
}
