package job

import (
	"errors"
	"fmt"
	"net/url"
)

const (
	JobProviderPIDSvc JobProvider = "pidsvc"
)

// RemoteStoreConfig describes one PID Service data store exported over HTTP.
// Keys match the historical settings.json layout.
type RemoteStoreConfig struct {
	APIURI     string `mapstructure:"api_uri" json:"api_uri"`
	BackupFile string `mapstructure:"bkp_file" json:"bkp_file"`
	Username   string `mapstructure:"usr" json:"usr,omitempty"`
	Password   string `mapstructure:"pwd" json:"pwd,omitempty"`
}

func (c *RemoteStoreConfig) Validate() error {
	if c.APIURI == "" {
		return errors.New("api_uri is required")
	}
	u, err := url.Parse(c.APIURI)
	if err != nil {
		return fmt.Errorf("invalid api_uri: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api_uri must be http or https, got %q", u.Scheme)
	}
	return validateBackupFile(c.BackupFile)
}

func (c *RemoteStoreConfig) Type() JobProvider { return JobProviderPIDSvc }

func (c *RemoteStoreConfig) ID() string { return taskID(c) }

func (c *RemoteStoreConfig) OutputFile() string { return c.BackupFile }
