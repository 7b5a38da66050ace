// Package store keeps a history of reconciliation runs in SQLite or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"wms-sap-sync/pkg/errors"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Run statuses
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Config selects the history database
type Config struct {
	Driver string `json:"driver" mapstructure:"history-driver"`
	DSN    string `json:"dsn" mapstructure:"history-db"`
}

// Enabled reports whether a history database is configured
func (c *Config) Enabled() bool {
	return c != nil && strings.TrimSpace(c.DSN) != ""
}

// Validate checks the driver name
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverSQLite, DriverPostgres:
		return nil
	default:
		return fmt.Errorf("unsupported history driver %q", c.Driver)
	}
}

// SyncRun is one recorded reconciliation run
type SyncRun struct {
	ID               int64      `db:"id" json:"id"`
	StartedAt        time.Time  `db:"started_at" json:"started_at"`
	FinishedAt       *time.Time `db:"finished_at" json:"finished_at,omitempty"`
	WMSFile          string     `db:"wms_file" json:"wms_file"`
	SAPFile          string     `db:"sap_file" json:"sap_file"`
	POFile           string     `db:"po_file" json:"po_file"`
	OutputFile       string     `db:"output_file" json:"output_file"`
	Status           string     `db:"status" json:"status"`
	NoPORows         int        `db:"no_po_rows" json:"no_po_rows"`
	NoPOMismatches   int        `db:"no_po_mismatches" json:"no_po_mismatches"`
	WithPORows       int        `db:"with_po_rows" json:"with_po_rows"`
	WithPOMismatches int        `db:"with_po_mismatches" json:"with_po_mismatches"`
	ErrorMessage     string     `db:"error_message" json:"error_message,omitempty"`
}

// Store reads and writes run history
type Store struct {
	db     *sqlx.DB
	driver string
}

// Open connects to the configured database and creates the history table
func Open(ctx context.Context, config *Config) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "history-driver", config.Driver, err)
	}

	db, err := sqlx.Open(config.Driver, config.DSN)
	if err != nil {
		return nil, errors.StorageError(errors.CodeConnectionFailed, "open", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.StorageError(errors.CodeConnectionFailed, "ping", err)
	}

	if config.Driver == DriverSQLite {
		// A single writer avoids SQLITE_BUSY between the CLI and the server.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, driver: config.Driver}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == DriverPostgres {
		id = "BIGSERIAL PRIMARY KEY"
	}

	ddl := `CREATE TABLE IF NOT EXISTS sync_runs (
		id ` + id + `,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NULL,
		wms_file TEXT NOT NULL DEFAULT '',
		sap_file TEXT NOT NULL DEFAULT '',
		po_file TEXT NOT NULL DEFAULT '',
		output_file TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		no_po_rows INTEGER NOT NULL DEFAULT 0,
		no_po_mismatches INTEGER NOT NULL DEFAULT 0,
		with_po_rows INTEGER NOT NULL DEFAULT 0,
		with_po_mismatches INTEGER NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT ''
	)`

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return errors.StorageError(errors.CodeQueryFailed, "migrate", err)
	}
	return nil
}

// StartRun records a new run in the running state and sets its ID
func (s *Store) StartRun(ctx context.Context, run *SyncRun) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.StartedAt = run.StartedAt.UTC()
	run.Status = StatusRunning

	query := s.db.Rebind(`INSERT INTO sync_runs (
		started_at, wms_file, sap_file, po_file, output_file, status
	) VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)

	err := s.db.QueryRowxContext(ctx, query,
		run.StartedAt, run.WMSFile, run.SAPFile, run.POFile, run.OutputFile, run.Status,
	).Scan(&run.ID)
	if err != nil {
		return errors.StorageError(errors.CodeQueryFailed, "start run", err)
	}
	return nil
}

// FinishRun stores the final status, counts and error of run
func (s *Store) FinishRun(ctx context.Context, run *SyncRun) error {
	finished := time.Now().UTC()
	run.FinishedAt = &finished

	query := `UPDATE sync_runs SET
		finished_at = :finished_at,
		status = :status,
		no_po_rows = :no_po_rows,
		no_po_mismatches = :no_po_mismatches,
		with_po_rows = :with_po_rows,
		with_po_mismatches = :with_po_mismatches,
		error_message = :error_message
	WHERE id = :id`

	res, err := s.db.NamedExecContext(ctx, query, run)
	if err != nil {
		return errors.StorageError(errors.CodeQueryFailed, "finish run", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.StorageError(errors.CodeRecordNotFound, "finish run", fmt.Errorf("run %d does not exist", run.ID)).
			WithContext("run_id", run.ID)
	}
	return nil
}

const selectRuns = `SELECT id, started_at, finished_at, wms_file, sap_file, po_file, output_file,
	status, no_po_rows, no_po_mismatches, with_po_rows, with_po_mismatches, error_message
	FROM sync_runs`

// ListRuns returns the most recent runs, newest first
func (s *Store) ListRuns(ctx context.Context, limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 10
	}

	runs := []SyncRun{}
	query := s.db.Rebind(selectRuns + ` ORDER BY id DESC LIMIT ?`)
	if err := s.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, errors.StorageError(errors.CodeQueryFailed, "list runs", err)
	}
	return runs, nil
}

// GetRun returns a single run by ID
func (s *Store) GetRun(ctx context.Context, id int64) (*SyncRun, error) {
	var run SyncRun
	query := s.db.Rebind(selectRuns + ` WHERE id = ?`)
	if err := s.db.GetContext(ctx, &run, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.StorageError(errors.CodeRecordNotFound, "get run", err).WithContext("run_id", id)
		}
		return nil, errors.StorageError(errors.CodeQueryFailed, "get run", err)
	}
	return &run, nil
}
