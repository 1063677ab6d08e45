package config

// MirrorConfig enables copying the backups directory to an S3 compatible bucket.
type MirrorConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

func (m MirrorConfig) Enabled() bool { return m.Bucket != "" }

// HistoryConfig enables recording run summaries in MySQL.
// DSN wins over the individual fields when both are set.
type HistoryConfig struct {
	DSN      string `mapstructure:"dsn"`
	Addr     string `mapstructure:"addr"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

func (h HistoryConfig) Enabled() bool { return h.DSN != "" || h.Addr != "" }
