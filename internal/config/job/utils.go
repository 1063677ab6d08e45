package job

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

func taskID(c JobConfig) string {
	return fmt.Sprintf("%s:%s", c.Type(), c.OutputFile())
}

// validateBackupFile makes sure the output lands directly under the backups directory.
func validateBackupFile(name string) error {
	if name == "" {
		return errors.New("bkp_file is required")
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("bkp_file %q must be a plain file name", name)
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("bkp_file %q must not be a hidden file", name)
	}
	return nil
}

// ValidateAll validates every config and rejects two tasks writing the same file.
func ValidateAll(configs ...JobConfig) error {
	seen := make(map[string]string, len(configs))
	for _, c := range configs {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid %s config %q: %w", c.Type(), c.OutputFile(), err)
		}
		if prev, ok := seen[c.OutputFile()]; ok {
			return fmt.Errorf("bkp_file %q is used by both %s and %s", c.OutputFile(), prev, c.ID())
		}
		seen[c.OutputFile()] = c.ID()
	}
	return nil
}
