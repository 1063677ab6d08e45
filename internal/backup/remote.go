package backup

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"pidsvc-backup/internal/config/job"
)

// maxErrorBody bounds how much of a failed response is kept for the error report.
const maxErrorBody = 64 << 10

// backupQuery asks the PID Service for a full, non-paginated XML export
// including lookup maps and excluding deprecated mappings.
var backupQuery = url.Values{
	"cmd":        {"partial_backup"},
	"deprecated": {"false"},
	"lookup":     {"true"},
	"format":     {"xml"},
}

// BackupURL adds the export query to a PID Service API URI, keeping any query it already has.
func BackupURL(apiURI string) (string, error) {
	u, err := url.Parse(apiURI)
	if err != nil {
		return "", fmt.Errorf("invalid api_uri: %w", err)
	}
	q := u.Query()
	for k, v := range backupQuery {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// RemoteStoreTask saves one remote data store export as pretty printed XML.
type RemoteStoreTask struct {
	source job.RemoteStoreConfig
	dir    string
	client *http.Client
}

func NewRemoteStoreTask(dir string, source job.RemoteStoreConfig, client *http.Client) *RemoteStoreTask {
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteStoreTask{source: source, dir: dir, client: client}
}

func (t *RemoteStoreTask) ID() string { return t.source.ID() }

// Run fetches the export and replaces the output file. The output file is left
// untouched on any failure.
func (t *RemoteStoreTask) Run(ctx context.Context) (*Artifact, error) {
	endpoint, err := BackupURL(t.source.APIURI)
	if err != nil {
		return nil, t.fail(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, t.fail(fmt.Errorf("failed to create request: %w", err))
	}
	if t.source.Username != "" {
		req.SetBasicAuth(t.source.Username, t.source.Password)
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, t.fail(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &RemoteBackupError{
			Source:     t.ID(),
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	doc, err := parseExport(resp.Body)
	if err != nil {
		return nil, t.fail(err)
	}
	prettyPrint(doc)

	artifact, err := writeAtomic(t.dir, t.source.BackupFile, func(w io.Writer) error {
		_, err := doc.WriteTo(w)
		return err
	})
	if err != nil {
		return nil, t.fail(fmt.Errorf("failed to write %s: %w", t.source.BackupFile, err))
	}
	return artifact, nil
}

func (t *RemoteStoreTask) fail(err error) *RemoteBackupError {
	return &RemoteBackupError{Source: t.ID(), Err: err}
}
