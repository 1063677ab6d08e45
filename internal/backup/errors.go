package backup

import "fmt"

// RemoteBackupError is returned when a remote data store export could not be saved.
// StatusCode and Body are set for non-200 responses; Err is set for everything else.
type RemoteBackupError struct {
	Source     string
	StatusCode int
	Body       string
	Err        error
}

func (e *RemoteBackupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remote backup %s failed: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("remote backup %s failed: %d, %s", e.Source, e.StatusCode, e.Body)
}

func (e *RemoteBackupError) Unwrap() error { return e.Err }

// ConfigBackupError is returned when a config group could not be concatenated.
// Path is the input file that could not be read, empty when the output failed.
type ConfigBackupError struct {
	Group string
	Path  string
	Err   error
}

func (e *ConfigBackupError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config backup %s failed: %v", e.Group, e.Err)
	}
	return fmt.Sprintf("config backup %s failed reading %s: %v", e.Group, e.Path, e.Err)
}

func (e *ConfigBackupError) Unwrap() error { return e.Err }
