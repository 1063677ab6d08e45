package activities

import (
	"context"
	"time"

	"go.temporal.io/sdk/activity"
)

type GetPlanActivityInput struct{}

// GetPlanActivityOutput lists the tasks of a run by ID. Source credentials
// stay on the worker and never enter workflow history.
type GetPlanActivityOutput struct {
	BackupsDir  string        `json:"backups_dir"`
	Policy      string        `json:"policy"`
	Concurrency int           `json:"concurrency"`
	Timeout     time.Duration `json:"timeout"`
	Remotes     []string      `json:"remotes"`
	Configs     []string      `json:"configs"`
}

func (a *Activities) GetPlanActivity(ctx context.Context, input GetPlanActivityInput) (*GetPlanActivityOutput, error) {
	logger := activity.GetLogger(ctx)

	out := &GetPlanActivityOutput{
		BackupsDir:  a.Config.BackupsDir,
		Policy:      string(a.Config.Policy),
		Concurrency: a.Config.Concurrency,
		Timeout:     a.Config.Timeout,
	}
	for _, src := range a.Config.Sources {
		out.Remotes = append(out.Remotes, src.ID())
	}
	for _, group := range a.Config.Apaches {
		out.Configs = append(out.Configs, group.ID())
	}

	logger.Info("Backup plan loaded", "remotes", len(out.Remotes), "configs", len(out.Configs), "policy", out.Policy)
	return out, nil
}
