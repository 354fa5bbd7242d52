package runlog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	for i, outcome := range []string{"Created", "InvalidInbound", "GatewayRejected"} {
		err := store.Save(ctx, Record{
			ID:         uuid.New(),
			RequestID:  uuid.NewString(),
			Outcome:    outcome,
			DurationMS: int64(i + 1),
			CreatedAt:  time.Now(),
		})
		if err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	t.Run("newest first", func(t *testing.T) {
		records, err := store.Recent(ctx, 10)
		if err != nil {
			t.Fatalf("recent: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected 3 records, got %d", len(records))
		}
		if records[0].Outcome != "GatewayRejected" {
			t.Fatalf("expected newest record first, got %s", records[0].Outcome)
		}
	})

	t.Run("limit applies", func(t *testing.T) {
		records, err := store.Recent(ctx, 2)
		if err != nil {
			t.Fatalf("recent: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
	})
}
