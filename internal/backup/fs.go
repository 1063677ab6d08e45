package backup

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"pidsvc-backup/internal/config"

	"github.com/google/renameio/v2"
)

// writeAtomic replaces name under dir with whatever write produces. The data
// goes to a hidden pending file in dir that is renamed into place only after
// write succeeded, so readers see either the old file or the complete new one.
func writeAtomic(dir, name string, write func(w io.Writer) error) (*Artifact, error) {
	finalPath := filepath.Join(dir, name)
	pending, err := renameio.NewPendingFile(finalPath,
		renameio.WithTempDir(dir),
		renameio.WithStaticPermissions(0o644),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer pending.Cleanup()

	hash := sha256.New()
	if err := write(io.MultiWriter(pending, hash)); err != nil {
		return nil, err
	}
	info, err := pending.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat temp file: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return nil, fmt.Errorf("failed to move backup into place: %w", err)
	}
	syncDir(dir)

	return &Artifact{
		Path:     finalPath,
		Size:     info.Size(),
		Checksum: fmt.Sprintf("%x", hash.Sum(nil)),
	}, nil
}

// syncDir persists the rename. Not every platform supports fsync on directories.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	_ = d.Sync()
}

// stalePattern matches the pending file renameio creates for name: a dot, the
// name, then a random number.
func stalePattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`^\.` + regexp.QuoteMeta(name) + `[0-9]+$`)
}

// RemoveStaleTemps deletes pending files an interrupted run left in dir for any
// of the given output names, so they are never committed.
func RemoveStaleTemps(dir string, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	patterns := make([]*regexp.Regexp, 0, len(names))
	for _, name := range names {
		patterns = append(patterns, stalePattern(name))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		for _, p := range patterns {
			if !p.MatchString(entry.Name()) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return removed, fmt.Errorf("failed to remove stale temp file %s: %w", path, err)
			}
			removed = append(removed, path)
			break
		}
	}
	return removed, nil
}

// OutputFiles lists the file names the configured tasks write.
func OutputFiles(cfg *config.Config) []string {
	jobs := cfg.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.OutputFile())
	}
	return names
}
