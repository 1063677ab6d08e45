package activities

import (
	"net/http"

	"pidsvc-backup/internal/backup"
	"pidsvc-backup/internal/config"
)

// Activities holds all activity implementations for the backup worker.
// Publisher, Mirror and History are optional.
type Activities struct {
	Config    *config.Config
	Client    *http.Client
	Publisher backup.Publisher
	Mirror    backup.Mirror
	History   backup.Recorder
}

// NewActivities creates a new Activities instance with required dependencies
func NewActivities(cfg *config.Config, client *http.Client) *Activities {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Activities{
		Config: cfg,
		Client: client,
	}
}
