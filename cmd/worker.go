package main

import (
	"context"
	"errors"
	"fmt"

	"pidsvc-backup/internal/config"
	"pidsvc-backup/internal/temporal/activities"
	"pidsvc-backup/internal/temporal/workflows"
	applog "pidsvc-backup/pkg/log"
	"pidsvc-backup/pkg/names"

	"github.com/rs/zerolog"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/activity"
	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/contrib/envconfig"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

func runWorker(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	clientOptions := envconfig.MustLoadDefaultClientOptions()
	if cfg.Temporal.HostPort != "" {
		clientOptions.HostPort = cfg.Temporal.HostPort
	}
	if cfg.Temporal.Namespace != "" {
		clientOptions.Namespace = cfg.Temporal.Namespace
	}
	clientOptions.Logger = applog.NewTemporalAdapter(logger)

	c, err := temporalclient.DialContext(ctx, clientOptions)
	if err != nil {
		logger.Error().Err(err).Msg("unable to create Temporal client")
		return err
	}
	defer c.Close()
	logger.Info().Str("namespace", clientOptions.Namespace).Str("queue", cfg.Temporal.TaskQueue).Msg("connected to Temporal")

	deps := newDependencies(ctx, cfg, logger)
	defer deps.Close()

	acts := activities.NewActivities(cfg, nil)
	if deps.publisher != nil {
		acts.Publisher = deps.publisher
	}
	if deps.mirror != nil {
		acts.Mirror = deps.mirror
	}
	if deps.recorder != nil {
		acts.History = deps.recorder
	}

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	w.RegisterWorkflowWithOptions(workflows.BackupWorkflow, workflow.RegisterOptions{Name: names.WorkflowNameBackup})

	w.RegisterActivityWithOptions(acts.GetPlanActivity, activity.RegisterOptions{Name: names.ActivityNameGetPlan})
	w.RegisterActivityWithOptions(acts.CleanupActivity, activity.RegisterOptions{Name: names.ActivityNameCleanup})
	w.RegisterActivityWithOptions(acts.RemoteStoreBackupActivity, activity.RegisterOptions{Name: names.ActivityNameRemoteStoreBackup})
	w.RegisterActivityWithOptions(acts.ConfigBackupActivity, activity.RegisterOptions{Name: names.ActivityNameConfigBackup})
	w.RegisterActivityWithOptions(acts.PublishActivity, activity.RegisterOptions{Name: names.ActivityNamePublish})
	w.RegisterActivityWithOptions(acts.MirrorActivity, activity.RegisterOptions{Name: names.ActivityNameMirror})
	w.RegisterActivityWithOptions(acts.RecordRunActivity, activity.RegisterOptions{Name: names.ActivityNameRecordRun})

	if cfg.Temporal.ScheduleEvery > 0 {
		if err := ensureSchedule(ctx, c, cfg.Temporal, logger); err != nil {
			return err
		}
	}

	logger.Info().Int("remotes", len(cfg.Sources)).Int("configs", len(cfg.Apaches)).Msg("worker started")

	// Start listening to the Task Queue until main's signal context is done.
	if err := w.Run(stopOnDone(ctx)); err != nil {
		logger.Error().Err(err).Msg("unable to start worker")
		return err
	}
	return nil
}

func stopOnDone(ctx context.Context) <-chan interface{} {
	ch := make(chan interface{})
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}

// ensureSchedule creates the schedule firing BackupWorkflow, keeping an
// existing one untouched.
func ensureSchedule(ctx context.Context, c temporalclient.Client, cfg config.TemporalConfig, logger zerolog.Logger) error {
	_, err := c.ScheduleClient().Create(ctx, temporalclient.ScheduleOptions{
		ID: cfg.ScheduleID,
		Spec: temporalclient.ScheduleSpec{
			Intervals: []temporalclient.ScheduleIntervalSpec{{Every: cfg.ScheduleEvery}},
		},
		Action: &temporalclient.ScheduleWorkflowAction{
			ID:        cfg.ScheduleID + "-run",
			Workflow:  names.WorkflowNameBackup,
			Args:      []interface{}{workflows.BackupWorkflowInput{Reason: "schedule"}},
			TaskQueue: cfg.TaskQueue,
		},
		Overlap: enumspb.SCHEDULE_OVERLAP_POLICY_SKIP,
	})
	if errors.Is(err, temporal.ErrScheduleAlreadyRunning) {
		logger.Info().Str("schedule_id", cfg.ScheduleID).Msg("schedule already exists")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create schedule %s: %w", cfg.ScheduleID, err)
	}
	logger.Info().Str("schedule_id", cfg.ScheduleID).Dur("every", cfg.ScheduleEvery).Msg("schedule created")
	return nil
}
