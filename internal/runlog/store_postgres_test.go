//go:build integration

package runlog_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"fhir-bridge/internal/runlog"
	"fhir-bridge/pkg/testutil/containers"
)

func TestPostgresStore(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	ctx := context.Background()
	store := runlog.NewPostgresStore(pc.DB)

	base := time.Now().UTC().Truncate(time.Millisecond)
	outcomes := []string{"Created", "InvalidOutbound", "UnexpectedFailure"}
	for i, outcome := range outcomes {
		err := store.Save(ctx, runlog.Record{
			ID:          uuid.New(),
			RequestID:   uuid.NewString(),
			Outcome:     outcome,
			Diagnostics: i,
			DurationMS:  int64(10 * (i + 1)),
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	records, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Outcome != "UnexpectedFailure" {
		t.Fatalf("expected newest record first, got %s", records[0].Outcome)
	}
	if records[0].Diagnostics != 2 {
		t.Fatalf("expected diagnostics count round-tripped, got %d", records[0].Diagnostics)
	}
}
