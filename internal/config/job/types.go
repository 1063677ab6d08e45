package job

// JobProvider represents the type of backup source
type JobProvider string

func (p JobProvider) String() string { return string(p) }

// JobConfig is the interface that all provider-specific configs must implement
type JobConfig interface {
	Validate() error
	Type() JobProvider
	// ID identifies the task built from this config in logs and run results.
	ID() string
	// OutputFile is the file name the task writes under the backups directory.
	OutputFile() string
}
