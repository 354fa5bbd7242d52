// Package runlog records one row per pipeline run for operational review.
// Records carry outcomes and timings only, never patient demographics.
package runlog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is the persisted summary of one pipeline run.
type Record struct {
	ID          uuid.UUID
	RequestID   string
	Outcome     string
	Diagnostics int
	DurationMS  int64
	CreatedAt   time.Time
}

// Store persists pipeline run records.
type Store interface {
	Save(ctx context.Context, record Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
}
