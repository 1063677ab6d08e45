package job

import (
	"errors"
	"fmt"
)

const (
	JobProviderApache JobProvider = "apache"
)

// ApacheConfig groups local configuration files concatenated into one backup file.
// ConfFiles order is preserved in the output.
type ApacheConfig struct {
	BackupFile string   `mapstructure:"bkp_file" json:"bkp_file"`
	ConfFiles  []string `mapstructure:"conf_files" json:"conf_files"`
}

func (c *ApacheConfig) Validate() error {
	if err := validateBackupFile(c.BackupFile); err != nil {
		return err
	}
	if len(c.ConfFiles) == 0 {
		return errors.New("conf_files must list at least one file")
	}
	for i, p := range c.ConfFiles {
		if p == "" {
			return fmt.Errorf("conf_files[%d] is empty", i)
		}
	}
	return nil
}

func (c *ApacheConfig) Type() JobProvider { return JobProviderApache }

func (c *ApacheConfig) ID() string { return taskID(c) }

func (c *ApacheConfig) OutputFile() string { return c.BackupFile }
