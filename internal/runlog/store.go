package runlog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stored in PRAGMA user_version and bumped whenever
// schema.sql changes incompatibly.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was written by an incompatible version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// busyBackoff is the wait before each retry of a statement that hit
// SQLITE_BUSY despite busy_timeout.
var busyBackoff = []time.Duration{10 * time.Millisecond, 40 * time.Millisecond, 160 * time.Millisecond}

// Store manages run log persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	host string
}

// Open initializes or connects to the run log database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create run log directory: %w", err)
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open run log %s: %w", path, err)
	}

	host, _ := os.Hostname()
	store := &Store{db: db, path: path, host: host}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// migrate creates the schema on a fresh database and refuses one stamped with
// a different version.
func (s *Store) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read run log version: %w", err)
	}
	switch version {
	case schemaVersion:
		return nil
	case 0:
	default:
		return fmt.Errorf("%w: %s has version %d, want %d; remove it to start a fresh log",
			ErrSchemaMismatch, s.path, version, schemaVersion)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create run log schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("stamp run log version: %w", err)
	}
	return tx.Commit()
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func busy(err error) bool {
	var coded interface{ Code() int }
	if errors.As(err, &coded) && coded.Code()&0xff == 5 {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "database is locked")
}

// exec runs a write statement, retrying briefly while another process holds
// the write lock.
func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	ctx = orBackground(ctx)
	_, err := s.db.ExecContext(ctx, query, args...)
	for _, wait := range busyBackoff {
		if !busy(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		_, err = s.db.ExecContext(ctx, query, args...)
	}
	return err
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(raw sql.NullString) time.Time {
	if !raw.Valid || raw.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Run summarises one batch.
type Run struct {
	ID         string
	Host       string
	Strategy   string
	StartedAt  time.Time
	FinishedAt time.Time
	Converted  int
	Short      int
	Failed     int
}

// BeginRun records the start of a batch and returns its run id.
func (s *Store) BeginRun(ctx context.Context, strategy string) (string, error) {
	id := uuid.NewString()
	err := s.exec(ctx,
		"INSERT INTO runs (id, host, strategy, started_at) VALUES (?, ?, ?, ?)",
		id, s.host, strategy, timestamp(time.Now()),
	)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// FinishRun stamps the end of a batch with its outcome counters.
func (s *Store) FinishRun(ctx context.Context, runID string, converted, short, failed int) error {
	err := s.exec(ctx,
		"UPDATE runs SET finished_at = ?, converted = ?, short = ?, failed = ? WHERE id = ?",
		timestamp(time.Now()), converted, short, failed, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// Runs returns the most recent batches, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(orBackground(ctx),
		"SELECT id, host, strategy, started_at, finished_at, converted, short, failed FROM runs ORDER BY started_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run               Run
			started, finished sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Host, &run.Strategy, &started, &finished, &run.Converted, &run.Short, &run.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = parseTimestamp(started)
		run.FinishedAt = parseTimestamp(finished)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
