package sink

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver

	"github.com/dshills/codeaudit/internal/analysis"
	"github.com/dshills/codeaudit/internal/cache"
)

// Backend names a database flavour.
type Backend string

const (
	None     Backend = "none"
	SQLite   Backend = "sqlite"
	MySQL    Backend = "mysql"
	Postgres Backend = "postgres"
)

// Table names.
const (
	runsTable    = "codeaudit_runs"
	metricsTable = "codeaudit_metrics"
	issuesTable  = "codeaudit_issues"
)

// Run describes one analysis run.
type Run struct {
	ID       string
	Provider string
	Model    string
	Root     string
	Started  time.Time
}

// Store appends records to a database as files are analyzed. A Store opened
// with backend none, or a nil *Store, accepts every call and stores nothing.
type Store struct {
	db      *sql.DB
	backend Backend
}

// DefaultSQLitePath is where the sqlite sink lives when no DSN is given.
func DefaultSQLitePath() (string, error) {
	dir, err := cache.DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "runs.db"), nil
}

// Open connects to the backend, verifies the connection and creates the
// tables if they do not exist.
func Open(ctx context.Context, backend, dsn string) (*Store, error) {
	b := Backend(strings.ToLower(backend))
	var driverName string
	switch b {
	case None, "":
		return &Store{backend: None}, nil
	case SQLite:
		driverName = "sqlite"
		if dsn == "" {
			path, err := DefaultSQLitePath()
			if err != nil {
				return nil, err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
				return nil, fmt.Errorf("creating sink directory: %w", err)
			}
			dsn = path
		}
	case MySQL:
		driverName = "mysql"
	case Postgres:
		driverName = "pgx"
	default:
		return nil, fmt.Errorf("unsupported sink backend: %s", backend)
	}
	if dsn == "" {
		return nil, fmt.Errorf("sink backend %s needs a dsn", b)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s sink: %w", b, err)
	}
	if b == SQLite {
		// Avoids "database is locked" with a single writer.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to %s sink: %w", b, err)
	}

	s := &Store{db: db, backend: b}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Enabled reports whether records are actually persisted.
func (s *Store) Enabled() bool { return s != nil && s.db != nil }

// Backend returns the configured backend.
func (s *Store) Backend() Backend {
	if s == nil {
		return None
	}
	return s.backend
}

func (s *Store) createTables(ctx context.Context) error {
	for _, q := range createQueries(s.backend) {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("creating sink tables: %w", err)
		}
	}
	return nil
}

func createQueries(b Backend) []string {
	text, key, ts := "TEXT", "VARCHAR(64)", "TEXT"
	switch b {
	case MySQL:
		ts = "DATETIME(6)"
	case Postgres:
		ts = "TIMESTAMPTZ"
	}
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			run_id %s PRIMARY KEY,
			provider %s NOT NULL,
			model %s NOT NULL,
			root %s NOT NULL,
			started_at %s NOT NULL,
			finished_at %s,
			files_processed INT
		)`, runsTable, key, text, text, text, ts, ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			run_id %s NOT NULL,
			file %s NOT NULL,
			maintainability INT,
			readability INT,
			performance INT,
			security INT,
			modularity INT,
			full_path %s NOT NULL
		)`, metricsTable, key, text, text),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			run_id %s NOT NULL,
			file %s NOT NULL,
			line INT NOT NULL,
			category %s NOT NULL,
			severity %s NOT NULL,
			description %s NOT NULL,
			suggestion %s NOT NULL,
			full_path %s NOT NULL
		)`, issuesTable, key, text, text, text, text, text, text),
	}
}

// placeholders returns n bind parameters in the backend's syntax.
func (s *Store) placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		if s.backend == Postgres {
			parts[i] = fmt.Sprintf("$%d", i+1)
		} else {
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ", ")
}

func (s *Store) formatTime(t time.Time) any {
	if s.backend == SQLite {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return t
}

// BeginRun records the start of a run.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if !s.Enabled() {
		return nil
	}
	q := fmt.Sprintf(`INSERT INTO %s (run_id, provider, model, root, started_at) VALUES (%s)`, runsTable, s.placeholders(5))
	if _, err := s.db.ExecContext(ctx, q, run.ID, run.Provider, run.Model, run.Root, s.formatTime(run.Started)); err != nil {
		return fmt.Errorf("recording run start: %w", err)
	}
	return nil
}

// Append stores one file's records in a single transaction.
func (s *Store) Append(ctx context.Context, runID string, metrics []analysis.MetricRecord, issues []analysis.IssueRecord) error {
	if !s.Enabled() || (len(metrics) == 0 && len(issues) == 0) {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting sink transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	mq := fmt.Sprintf(`INSERT INTO %s (run_id, file, maintainability, readability, performance, security, modularity, full_path) VALUES (%s)`,
		metricsTable, s.placeholders(8))
	for _, m := range metrics {
		if _, err := tx.ExecContext(ctx, mq, runID, m.Filename,
			nullScore(m.Maintainability), nullScore(m.Readability), nullScore(m.Performance),
			nullScore(m.Security), nullScore(m.Modularity), m.FullPath); err != nil {
			return fmt.Errorf("inserting metric row: %w", err)
		}
	}
	iq := fmt.Sprintf(`INSERT INTO %s (run_id, file, line, category, severity, description, suggestion, full_path) VALUES (%s)`,
		issuesTable, s.placeholders(8))
	for _, is := range issues {
		if _, err := tx.ExecContext(ctx, iq, runID, is.Filename, is.Line, is.Category,
			is.Severity, is.Description, is.Suggestion, is.FullPath); err != nil {
			return fmt.Errorf("inserting issue row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing sink transaction: %w", err)
	}
	return nil
}

// EndRun stamps the finish time and the number of files processed.
func (s *Store) EndRun(ctx context.Context, runID string, finished time.Time, files int) error {
	if !s.Enabled() {
		return nil
	}
	var q string
	if s.backend == Postgres {
		q = fmt.Sprintf(`UPDATE %s SET finished_at = $1, files_processed = $2 WHERE run_id = $3`, runsTable)
	} else {
		q = fmt.Sprintf(`UPDATE %s SET finished_at = ?, files_processed = ? WHERE run_id = ?`, runsTable)
	}
	if _, err := s.db.ExecContext(ctx, q, s.formatTime(finished), files, runID); err != nil {
		return fmt.Errorf("recording run end: %w", err)
	}
	return nil
}

// Counts returns how many metric and issue rows a run has stored.
func (s *Store) Counts(ctx context.Context, runID string) (metrics, issues int, err error) {
	if !s.Enabled() {
		return 0, 0, nil
	}
	for _, c := range []struct {
		table string
		dst   *int
	}{{metricsTable, &metrics}, {issuesTable, &issues}} {
		q := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE run_id = %s`, c.table, s.placeholders(1))
		if err := s.db.QueryRowContext(ctx, q, runID).Scan(c.dst); err != nil {
			return 0, 0, fmt.Errorf("counting %s: %w", c.table, err)
		}
	}
	return metrics, issues, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	if s.Enabled() {
		return s.db.Close()
	}
	return nil
}

func nullScore(sc analysis.Score) sql.NullInt32 {
	return sql.NullInt32{Int32: int32(sc), Valid: sc.Valid()}
}
