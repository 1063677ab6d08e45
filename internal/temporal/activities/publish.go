package activities

import (
	"context"

	"pidsvc-backup/internal/archive"
	"pidsvc-backup/internal/backup"

	"go.temporal.io/sdk/activity"
)

// Publish, mirror and record problems never fail a run, so these activities
// report them in Warning instead of returning an error.

type PublishActivityInput struct{}

type PublishActivityOutput struct {
	Result  archive.Result `json:"result"`
	Warning string         `json:"warning,omitempty"`
}

func (a *Activities) PublishActivity(ctx context.Context, input PublishActivityInput) (*PublishActivityOutput, error) {
	logger := activity.GetLogger(ctx)
	out := new(PublishActivityOutput)

	if a.Publisher == nil {
		out.Warning = "no archive publisher configured, backups stay uncommitted"
		logger.Warn(out.Warning)
		return out, nil
	}

	result, err := a.Publisher.Publish(ctx)
	if result != nil {
		out.Result = *result
	}
	if err != nil {
		out.Warning = err.Error()
		logger.Warn("Publishing backups did not fully succeed", "error", err)
	}

	logger.Info("PublishActivity completed", "committed", out.Result.Committed, "commit", out.Result.Commit, "pushed", out.Result.Pushed)
	return out, nil
}

type MirrorActivityInput struct{}

type MirrorActivityOutput struct {
	Skipped  bool   `json:"skipped"`
	Uploaded int    `json:"uploaded"`
	Warning  string `json:"warning,omitempty"`
}

func (a *Activities) MirrorActivity(ctx context.Context, input MirrorActivityInput) (*MirrorActivityOutput, error) {
	logger := activity.GetLogger(ctx)

	if a.Mirror == nil {
		return &MirrorActivityOutput{Skipped: true}, nil
	}

	n, err := a.Mirror.Mirror(ctx, a.Config.BackupsDir)
	out := &MirrorActivityOutput{Uploaded: n}
	if err != nil {
		out.Warning = "mirror: " + err.Error()
		logger.Warn("Mirroring backups failed", "error", err)
	}
	return out, nil
}

type RecordRunActivityInput struct {
	Summary backup.Summary `json:"summary"`
}

type RecordRunActivityOutput struct {
	Warning string `json:"warning,omitempty"`
}

func (a *Activities) RecordRunActivity(ctx context.Context, input RecordRunActivityInput) (*RecordRunActivityOutput, error) {
	logger := activity.GetLogger(ctx)
	out := new(RecordRunActivityOutput)

	if a.History == nil {
		return out, nil
	}
	if err := a.History.Record(ctx, input.Summary); err != nil {
		out.Warning = "history: " + err.Error()
		logger.Warn("Recording run history failed", "run_id", input.Summary.RunID, "error", err)
	}
	return out, nil
}
