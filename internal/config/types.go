package config

// LogConfig represents the logging configuration
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// Policy decides what happens to the rest of a phase when a task fails.
type Policy string

const (
	// PolicyFailFast stops the phase at the first failing task and skips publishing.
	PolicyFailFast Policy = "fail-fast"
	// PolicyContinue runs every task, publishes, then reports all failures.
	PolicyContinue Policy = "continue"
)
