package config

import "time"

// TemporalConfig is used only in worker mode.
type TemporalConfig struct {
	HostPort      string        `mapstructure:"host_port"`
	Namespace     string        `mapstructure:"namespace"`
	TaskQueue     string        `mapstructure:"task_queue"`
	ScheduleID    string        `mapstructure:"schedule_id"`
	ScheduleEvery time.Duration `mapstructure:"schedule_every"` // zero disables the schedule
}
