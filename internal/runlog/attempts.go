package runlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Attempts holds the persisted failure counters for one fingerprint.
type Attempts struct {
	ProbeFailures   int
	ConvertFailures int
}

// Attempts returns the counters recorded for fingerprint, or zeros.
func (s *Store) Attempts(ctx context.Context, fingerprint string) (Attempts, error) {
	var a Attempts
	err := s.db.QueryRowContext(orBackground(ctx),
		"SELECT probe_failures, convert_failures FROM attempts WHERE fingerprint = ?",
		fingerprint,
	).Scan(&a.ProbeFailures, &a.ConvertFailures)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempts{}, nil
	}
	if err != nil {
		return Attempts{}, fmt.Errorf("read attempts: %w", err)
	}
	return a, nil
}

// SetAttempts stores the counters for fingerprint. Zero counters delete the row.
func (s *Store) SetAttempts(ctx context.Context, fingerprint, path string, a Attempts) error {
	if a.ProbeFailures == 0 && a.ConvertFailures == 0 {
		if err := s.exec(ctx, "DELETE FROM attempts WHERE fingerprint = ?", fingerprint); err != nil {
			return fmt.Errorf("clear attempts: %w", err)
		}
		return nil
	}
	err := s.exec(ctx,
		`INSERT INTO attempts (fingerprint, path, probe_failures, convert_failures, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET
		   path = excluded.path,
		   probe_failures = excluded.probe_failures,
		   convert_failures = excluded.convert_failures,
		   updated_at = excluded.updated_at`,
		fingerprint, path, a.ProbeFailures, a.ConvertFailures, timestamp(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("write attempts: %w", err)
	}
	return nil
}

// RecordBenchmark replaces the benchmark verdict for host and strategy.
func (s *Store) RecordBenchmark(ctx context.Context, host, strategy string, ok bool, throughput float64, excerpt string) error {
	if host == "" {
		host = s.host
	}
	err := s.exec(ctx,
		`INSERT INTO benchmarks (host, strategy, ok, throughput, excerpt, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(host, strategy) DO UPDATE SET
		   ok = excluded.ok,
		   throughput = excluded.throughput,
		   excerpt = excluded.excerpt,
		   recorded_at = excluded.recorded_at`,
		host, strategy, boolToInt(ok), throughput, nullable(excerpt), timestamp(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("record benchmark: %w", err)
	}
	return nil
}

// LastBenchmark returns the recorded verdict for host and strategy.
func (s *Store) LastBenchmark(ctx context.Context, host, strategy string) (ok bool, found bool, err error) {
	if host == "" {
		host = s.host
	}
	var value int
	err = s.db.QueryRowContext(orBackground(ctx),
		"SELECT ok FROM benchmarks WHERE host = ? AND strategy = ?",
		host, strategy,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("read benchmark: %w", err)
	}
	return value != 0, true, nil
}

// BenchmarkFailed reports whether the last benchmark for host and strategy failed.
func (s *Store) BenchmarkFailed(ctx context.Context, host, strategy string) bool {
	ok, found, err := s.LastBenchmark(ctx, host, strategy)
	return err == nil && found && !ok
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
