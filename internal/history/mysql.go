package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"pidsvc-backup/internal/backup"
	"pidsvc-backup/internal/config"

	"github.com/go-sql-driver/mysql"
)

const createTable = `CREATE TABLE IF NOT EXISTS backup_runs (
	run_id      CHAR(36)     NOT NULL PRIMARY KEY,
	started_at  DATETIME(6)  NOT NULL,
	finished_at DATETIME(6)  NOT NULL,
	state       VARCHAR(32)  NOT NULL,
	succeeded   INT          NOT NULL,
	failed      INT          NOT NULL,
	commit_hash VARCHAR(64)  NOT NULL DEFAULT '',
	pushed      BOOLEAN      NOT NULL,
	detail      JSON         NOT NULL
)`

const insertRun = `INSERT INTO backup_runs
	(run_id, started_at, finished_at, state, succeeded, failed, commit_hash, pushed, detail)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// MySQLRecorder stores one row per backup run in the backup_runs table.
type MySQLRecorder struct {
	db    execer
	close func() error
}

type detail struct {
	Results  []backup.Result `json:"results"`
	Warnings []string        `json:"warnings,omitempty"`
}

// DSN returns cfg.DSN when set, otherwise a DSN built from the individual fields.
func DSN(cfg config.HistoryConfig) (string, error) {
	if cfg.DSN != "" {
		if _, err := mysql.ParseDSN(cfg.DSN); err != nil {
			return "", fmt.Errorf("failed to parse DSN: %w", err)
		}
		return cfg.DSN, nil
	}

	c := mysql.NewConfig()
	c.Net = "tcp"
	c.Addr = cfg.Addr
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.DBName = cfg.Database
	c.ParseTime = true
	return c.FormatDSN(), nil
}

// Open connects to MySQL and makes sure the history table exists.
func Open(ctx context.Context, cfg config.HistoryConfig) (*MySQLRecorder, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	r := &MySQLRecorder{db: db, close: db.Close}
	if err := r.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func NewMySQLRecorder(db execer) *MySQLRecorder {
	return &MySQLRecorder{db: db}
}

func (r *MySQLRecorder) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create backup_runs table: %w", err)
	}
	return nil
}

// Record implements backup.Recorder.
func (r *MySQLRecorder) Record(ctx context.Context, summary backup.Summary) error {
	results := summary.Results
	if results == nil {
		results = []backup.Result{}
	}
	body, err := json.Marshal(detail{Results: results, Warnings: summary.Warnings})
	if err != nil {
		return fmt.Errorf("failed to encode run detail: %w", err)
	}

	_, err = r.db.ExecContext(ctx, insertRun,
		summary.RunID,
		summary.StartedAt.UTC(),
		summary.FinishedAt.UTC(),
		string(summary.State),
		summary.SucceededCount(),
		len(summary.Failed()),
		summary.Commit,
		summary.Pushed,
		string(body),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", summary.RunID, err)
	}
	return nil
}

func (r *MySQLRecorder) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}
