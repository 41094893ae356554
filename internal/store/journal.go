package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Outcomes recorded in the journal.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	// OutcomeUnknown marks a write whose host run timed out.
	OutcomeUnknown = "unknown"
)

// Execution is one journal row.
type Execution struct {
	Seq          int64     `json:"seq"`
	ID           string    `json:"id"`
	RequestKey   string    `json:"requestKey,omitempty"`
	Operation    string    `json:"operation"`
	Entity       string    `json:"entity"`
	Strategy     string    `json:"strategy,omitempty"`
	Outcome      string    `json:"outcome"`
	ErrorKind    string    `json:"errorKind,omitempty"`
	DurationMs   int64     `json:"durationMs"`
	FromCache    bool      `json:"fromCache"`
	ScriptDigest string    `json:"scriptDigest,omitempty"`
	RecordedAt   time.Time `json:"recordedAt"`
}

// SummaryRow counts executions per strategy and outcome.
type SummaryRow struct {
	Strategy string `json:"strategy"`
	Outcome  string `json:"outcome"`
	Count    int64  `json:"count"`
}

// Record appends an execution. Seq is assigned by the database.
func (s *Store) Record(ctx context.Context, e Execution) error {
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions
		(id, request_key, operation, entity, strategy, outcome, error_kind, duration_ms, from_cache, script_digest, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		e.RequestKey,
		e.Operation,
		e.Entity,
		e.Strategy,
		e.Outcome,
		e.ErrorKind,
		e.DurationMs,
		e.FromCache,
		e.ScriptDigest,
		e.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record execution: %w", err)
	}
	return nil
}

// Recent returns up to limit executions, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Execution, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, request_key, operation, entity, strategy, outcome, error_kind,
		       duration_ms, from_cache, script_digest, recorded_at
		FROM executions
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("read executions: %w", err)
	}
	defer rows.Close()

	var out []Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read executions: %w", err)
	}
	return out, nil
}

// Summary counts executions grouped by strategy and outcome.
func (s *Store) Summary(ctx context.Context) ([]SummaryRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT strategy, outcome, COUNT(*)
		FROM executions
		GROUP BY strategy, outcome
		ORDER BY strategy, outcome
	`)
	if err != nil {
		return nil, fmt.Errorf("summarize executions: %w", err)
	}
	defer rows.Close()

	var out []SummaryRow
	for rows.Next() {
		var r SummaryRow
		if err := rows.Scan(&r.Strategy, &r.Outcome, &r.Count); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanExecution(rows *sql.Rows) (Execution, error) {
	var (
		e          Execution
		recordedAt string
	)
	err := rows.Scan(
		&e.Seq, &e.ID, &e.RequestKey, &e.Operation, &e.Entity, &e.Strategy,
		&e.Outcome, &e.ErrorKind, &e.DurationMs, &e.FromCache, &e.ScriptDigest, &recordedAt,
	)
	if err != nil {
		return Execution{}, fmt.Errorf("scan execution: %w", err)
	}
	e.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt)
	if err != nil {
		return Execution{}, fmt.Errorf("parse recorded_at %q: %w", recordedAt, err)
	}
	return e, nil
}
