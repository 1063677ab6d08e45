package backup

import (
	"context"
	"fmt"
	"io"
	"os"

	"pidsvc-backup/internal/config/job"
)

// ProvenanceHeader is written before the contents of every concatenated file.
func ProvenanceHeader(path string) string {
	return "#\n# " + path + "\n#\n"
}

// ConfigTask concatenates a group of local config files into one backup file.
type ConfigTask struct {
	group job.ApacheConfig
	dir   string
}

func NewConfigTask(dir string, group job.ApacheConfig) *ConfigTask {
	return &ConfigTask{group: group, dir: dir}
}

func (t *ConfigTask) ID() string { return t.group.ID() }

// Run writes every file of the group, in declared order, each preceded by its
// provenance header. The output file is left untouched if any input is unreadable.
func (t *ConfigTask) Run(ctx context.Context) (*Artifact, error) {
	var failedPath string
	artifact, err := writeAtomic(t.dir, t.group.BackupFile, func(w io.Writer) error {
		for _, path := range t.group.ConfFiles {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := appendConf(w, path); err != nil {
				failedPath = path
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, &ConfigBackupError{Group: t.ID(), Path: failedPath, Err: err}
	}
	return artifact, nil
}

func appendConf(w io.Writer, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	if _, err := io.WriteString(w, ProvenanceHeader(path)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return err
	}
	return nil
}
