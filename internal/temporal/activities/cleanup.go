package activities

import (
	"context"

	"pidsvc-backup/internal/backup"

	"go.temporal.io/sdk/activity"
)

type CleanupActivityInput struct{}

type CleanupActivityOutput struct {
	Removed []string `json:"removed"`
}

// CleanupActivity removes temp files an interrupted run left in the backups
// directory so they are never committed.
func (a *Activities) CleanupActivity(ctx context.Context, input CleanupActivityInput) (*CleanupActivityOutput, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("CleanupActivity started", "dir", a.Config.BackupsDir)

	removed, err := backup.RemoveStaleTemps(a.Config.BackupsDir, backup.OutputFiles(a.Config))
	for _, path := range removed {
		logger.Warn("Removed temp file left by an interrupted run", "path", path)
	}
	if err != nil {
		return nil, err
	}

	return &CleanupActivityOutput{Removed: removed}, nil
}
