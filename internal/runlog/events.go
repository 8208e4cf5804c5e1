package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Kind names the operation an event describes.
type Kind string

const (
	KindProbe   Kind = "probe"
	KindConvert Kind = "convert"
	KindRetire  Kind = "retire"
	KindAbort   Kind = "abort"
)

// Event is one appended run log row.
type Event struct {
	ID          int64
	RunID       string
	At          time.Time
	Kind        Kind
	Outcome     string
	Path        string
	Strategy    string
	Detail      string
	InputBytes  int64
	OutputBytes int64
}

// Append writes an event. A zero At is stamped with the current time.
func (s *Store) Append(ctx context.Context, event Event) error {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	if event.Kind == "" || event.Path == "" {
		return fmt.Errorf("append event: kind and path are required")
	}
	err := s.exec(ctx,
		`INSERT INTO events (run_id, at, kind, outcome, path, strategy, detail, input_bytes, output_bytes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullable(event.RunID), timestamp(event.At), string(event.Kind), event.Outcome, event.Path,
		nullable(event.Strategy), nullable(event.Detail), event.InputBytes, event.OutputBytes,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(orBackground(ctx),
		`SELECT id, run_id, at, kind, outcome, path, strategy, detail, input_bytes, output_bytes
		 FROM events ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event                   Event
			runID, strategy, detail sql.NullString
			at                      sql.NullString
			kind                    string
		)
		if err := rows.Scan(&event.ID, &runID, &at, &kind, &event.Outcome, &event.Path,
			&strategy, &detail, &event.InputBytes, &event.OutputBytes); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event.RunID = runID.String
		event.At = parseTimestamp(at)
		event.Kind = Kind(kind)
		event.Strategy = strategy.String
		event.Detail = detail.String
		events = append(events, event)
	}
	return events, rows.Err()
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}
