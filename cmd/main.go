package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pidsvc-backup/internal/archive"
	"pidsvc-backup/internal/backup"
	"pidsvc-backup/internal/config"
	"pidsvc-backup/internal/history"
	applog "pidsvc-backup/pkg/log"
	"pidsvc-backup/pkg/s3"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func main() {
	var (
		configPath string
		workerMode bool
	)
	pflag.StringVarP(&configPath, "config", "c", "", "path to the settings file (json, yaml or toml)")
	pflag.BoolVar(&workerMode, "worker", false, "run as a Temporal worker instead of a single backup run")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [--config path | path] [--worker]\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if configPath == "" && pflag.NArg() > 0 {
		configPath = pflag.Arg(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config from file
	cfg, err := config.NewConfig(ctx, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := applog.New(cfg.Log)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid config")
		os.Exit(1)
	}

	if workerMode {
		err = runWorker(ctx, cfg, logger)
	} else {
		err = runOnce(ctx, cfg, logger)
	}
	if err != nil {
		os.Exit(1)
	}
}

// runOnce performs a single backup run. The returned error is non-nil when any
// backup task failed; publishing problems only produce warnings.
func runOnce(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	deps := newDependencies(ctx, cfg, logger)
	defer deps.Close()

	opts := []backup.Option{}
	if deps.publisher != nil {
		opts = append(opts, backup.WithPublisher(deps.publisher))
	}
	if deps.mirror != nil {
		opts = append(opts, backup.WithMirror(deps.mirror))
	}
	if deps.recorder != nil {
		opts = append(opts, backup.WithRecorder(deps.recorder))
	}

	_, err := backup.NewRunner(cfg, logger, opts...).Run(ctx)
	return err
}

// dependencies are the optional collaborators of a run. Each one that cannot
// be built is left nil and reported as a warning.
type dependencies struct {
	publisher *archive.Publisher
	mirror    *archive.S3Mirror
	recorder  *history.MySQLRecorder
}

func newDependencies(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *dependencies {
	deps := new(dependencies)

	repo, err := archive.OpenGitRepository(cfg.BackupsDir, cfg.Git)
	if err != nil {
		logger.Warn().Err(err).Msg("backups will not be committed")
	} else {
		deps.publisher = archive.NewPublisher(repo, cfg.Git.Message, logger)
	}

	if cfg.Mirror.Enabled() {
		client, err := s3.NewClient(ctx, cfg.Mirror)
		if err != nil {
			logger.Warn().Err(err).Msg("backups will not be mirrored")
		} else {
			deps.mirror = archive.NewS3Mirror(client, cfg.Mirror.Bucket, cfg.Mirror.Prefix, logger)
		}
	}

	if cfg.History.Enabled() {
		recorder, err := history.Open(ctx, cfg.History)
		if err != nil {
			logger.Warn().Err(err).Msg("run history will not be recorded")
		} else {
			deps.recorder = recorder
		}
	}

	return deps
}

func (d *dependencies) Close() {
	if d.recorder != nil {
		d.recorder.Close()
	}
}
