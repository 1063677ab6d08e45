package job

import (
	"strings"
	"testing"
)

func TestRemoteStoreConfigValidate(t *testing.T) {
	testCases := []struct {
		name    string
		config  RemoteStoreConfig
		wantErr string
	}{
		{
			name:   "valid",
			config: RemoteStoreConfig{APIURI: "https://pid.example.org/pidsvc/query", BackupFile: "pidsvc.xml"},
		},
		{
			name:    "missing uri",
			config:  RemoteStoreConfig{BackupFile: "pidsvc.xml"},
			wantErr: "api_uri is required",
		},
		{
			name:    "unsupported scheme",
			config:  RemoteStoreConfig{APIURI: "ftp://pid.example.org", BackupFile: "pidsvc.xml"},
			wantErr: "must be http or https",
		},
		{
			name:    "nested output",
			config:  RemoteStoreConfig{APIURI: "https://pid.example.org", BackupFile: "sub/pidsvc.xml"},
			wantErr: "plain file name",
		},
		{
			name:    "hidden output",
			config:  RemoteStoreConfig{APIURI: "https://pid.example.org", BackupFile: ".pidsvc.xml"},
			wantErr: "hidden",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error = %v, want it to contain %q", err, tc.wantErr)
			}
		})
	}
}

func TestApacheConfigValidate(t *testing.T) {
	c := &ApacheConfig{BackupFile: "apache.conf"}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for empty conf_files")
	}

	c.ConfFiles = []string{"/etc/apache2/apache2.conf", ""}
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "conf_files[1]") {
		t.Fatalf("error = %v, want conf_files[1] complaint", err)
	}

	c.ConfFiles = []string{"/etc/apache2/apache2.conf"}
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTaskIDs(t *testing.T) {
	remote := &RemoteStoreConfig{BackupFile: "pidsvc.xml"}
	apache := &ApacheConfig{BackupFile: "apache.conf"}

	if got := remote.ID(); got != "pidsvc:pidsvc.xml" {
		t.Errorf("remote ID = %s", got)
	}
	if got := apache.ID(); got != "apache:apache.conf" {
		t.Errorf("apache ID = %s", got)
	}
}

func TestValidateAllRejectsSharedOutput(t *testing.T) {
	remote := &RemoteStoreConfig{APIURI: "https://pid.example.org", BackupFile: "backup.txt"}
	apache := &ApacheConfig{BackupFile: "backup.txt", ConfFiles: []string{"/etc/httpd.conf"}}

	err := ValidateAll(remote, apache)
	if err == nil {
		t.Fatal("expected duplicate bkp_file error")
	}
	if !strings.Contains(err.Error(), "pidsvc:backup.txt") {
		t.Errorf("error should name the first owner: %v", err)
	}

	apache.BackupFile = "apache.conf"
	if err := ValidateAll(remote, apache); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
