package runlog

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists run records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed run log store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Save inserts a run record.
func (s *PostgresStore) Save(ctx context.Context, record Record) error {
	query := `
		INSERT INTO pipeline_runs (id, request_id, outcome, diagnostics, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.RequestID,
		record.Outcome,
		record.Diagnostics,
		record.DurationMS,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save pipeline run: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, request_id, outcome, diagnostics, duration_ms, created_at
		FROM pipeline_runs
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pipeline runs: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.RequestID, &r.Outcome, &r.Diagnostics, &r.DurationMS, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pipeline run: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pipeline runs: %w", err)
	}
	return records, nil
}
