package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pidsvc-backup/internal/config/job"

	"github.com/spf13/viper"
)

// Config represents the configuration of one backup run
type Config struct {
	BackupsDir  string                  `mapstructure:"backups_dir"`
	Sources     []job.RemoteStoreConfig `mapstructure:"pidsvcs"`
	Apaches     []job.ApacheConfig      `mapstructure:"apaches"`
	Policy      Policy                  `mapstructure:"policy"`
	Concurrency int                     `mapstructure:"concurrency"`
	Timeout     time.Duration           `mapstructure:"timeout"` // per HTTP request

	Git      GitConfig      `mapstructure:"git"`
	Mirror   MirrorConfig   `mapstructure:"mirror"`
	History  HistoryConfig  `mapstructure:"history"`
	Log      LogConfig      `mapstructure:"log"`
	Temporal TemporalConfig `mapstructure:"temporal"`
}

// NewConfig loads configuration from file and environment variables
// configPath: path to the settings file (json, yaml or toml). If empty, looks for "settings.*" in current directory
func NewConfig(ctx context.Context, configPath string) (*Config, error) {
	config := new(Config)
	v := viper.New()

	v.SetDefault("backups_dir", "")
	v.SetDefault("policy", string(PolicyFailFast))
	v.SetDefault("concurrency", 1)
	v.SetDefault("timeout", "30m")

	// Git defaults
	v.SetDefault("git.remote", "origin")
	v.SetDefault("git.message", "backup")
	v.SetDefault("git.author_name", "pidsvc-backup")
	v.SetDefault("git.author_email", "pidsvc-backup@localhost")
	v.SetDefault("git.username", "")
	v.SetDefault("git.password", "")
	v.SetDefault("git.ssh_key_path", "")
	v.SetDefault("git.ssh_passphrase", "")

	// Mirror defaults
	v.SetDefault("mirror.bucket", "")
	v.SetDefault("mirror.prefix", "")
	v.SetDefault("mirror.region", "us-east-1")
	v.SetDefault("mirror.endpoint", "")
	v.SetDefault("mirror.access_key_id", "")
	v.SetDefault("mirror.secret_access_key", "")

	// History defaults
	v.SetDefault("history.dsn", "")
	v.SetDefault("history.addr", "")
	v.SetDefault("history.user", "")
	v.SetDefault("history.password", "")
	v.SetDefault("history.database", "")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "stdout")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.compress", false)

	// Temporal defaults, only read in worker mode
	v.SetDefault("temporal.host_port", "")
	v.SetDefault("temporal.namespace", "")
	v.SetDefault("temporal.task_queue", "pidsvc-backup")
	v.SetDefault("temporal.schedule_id", "pidsvc-backup")
	v.SetDefault("temporal.schedule_every", "0s")

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("settings")
		v.AddConfigPath(".")
	}

	// Read the config file
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Set up Viper to read from environment variables
	v.SetEnvPrefix("backup")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return config, nil
}

// Validate checks the parts of the config a run cannot start without.
func (c *Config) Validate() error {
	if c.BackupsDir == "" {
		return errors.New("backups_dir is required")
	}
	switch c.Policy {
	case PolicyFailFast, PolicyContinue:
	default:
		return fmt.Errorf("unknown policy %q", c.Policy)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return job.ValidateAll(c.Jobs()...)
}

// Jobs returns every task config, remote stores first, in declared order.
func (c *Config) Jobs() []job.JobConfig {
	jobs := make([]job.JobConfig, 0, len(c.Sources)+len(c.Apaches))
	for i := range c.Sources {
		jobs = append(jobs, &c.Sources[i])
	}
	for i := range c.Apaches {
		jobs = append(jobs, &c.Apaches[i])
	}
	return jobs
}
