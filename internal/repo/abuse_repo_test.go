package repo

import (
	"context"
	"testing"

	"github.com/devyouns/martyrs-gallery-bot/internal/domain"
)

func TestGetOrCreateCounter(t *testing.T) {
	db := newTestDB(t, &domain.AbuseCounter{})
	ctx := context.Background()

	c, err := GetOrCreateCounter(ctx, db, "u1")
	if err != nil {
		t.Fatalf("GetOrCreateCounter: %v", err)
	}
	if c.TelegramID != "u1" || c.RequestCount != 0 || c.IsBlocked {
		t.Fatalf("unexpected fresh counter: %+v", c)
	}

	// Second call must return the same row, not insert another.
	if _, err := GetOrCreateCounter(ctx, db, "u1"); err != nil {
		t.Fatalf("second GetOrCreateCounter: %v", err)
	}
	var count int64
	if err := db.Model(&domain.AbuseCounter{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 counter row, got %d", count)
	}
}

func TestIncrementCounter(t *testing.T) {
	db := newTestDB(t, &domain.AbuseCounter{})
	ctx := context.Background()

	if _, err := GetOrCreateCounter(ctx, db, "u1"); err != nil {
		t.Fatalf("GetOrCreateCounter: %v", err)
	}
	for want := 1; want <= 3; want++ {
		got, err := IncrementCounter(ctx, db, "u1")
		if err != nil {
			t.Fatalf("IncrementCounter #%d: %v", want, err)
		}
		if got != want {
			t.Fatalf("expected count %d, got %d", want, got)
		}
	}
}

func TestBlockForLimitAndReset(t *testing.T) {
	db := newTestDB(t, &domain.AbuseCounter{})
	ctx := context.Background()

	if _, err := GetOrCreateCounter(ctx, db, "limited"); err != nil {
		t.Fatalf("seed limited: %v", err)
	}
	if _, err := GetOrCreateCounter(ctx, db, "clean"); err != nil {
		t.Fatalf("seed clean: %v", err)
	}
	if _, err := IncrementCounter(ctx, db, "clean"); err != nil {
		t.Fatalf("bump clean: %v", err)
	}

	if err := BlockForLimit(ctx, db, "limited"); err != nil {
		t.Fatalf("BlockForLimit: %v", err)
	}
	c, err := GetOrCreateCounter(ctx, db, "limited")
	if err != nil {
		t.Fatalf("reload limited: %v", err)
	}
	if !c.IsBlocked || !c.ReachedLimit {
		t.Fatalf("expected blocked+limited, got %+v", c)
	}

	// The sweep unblocks only rows that hit the ceiling.
	n, err := ResetLimitedCounters(ctx, db)
	if err != nil {
		t.Fatalf("ResetLimitedCounters: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 counter reset, got %d", n)
	}

	c, err = GetOrCreateCounter(ctx, db, "limited")
	if err != nil {
		t.Fatalf("reload limited: %v", err)
	}
	if c.IsBlocked || c.ReachedLimit || c.RequestCount != 0 {
		t.Fatalf("expected zeroed counter, got %+v", c)
	}

	clean, err := GetOrCreateCounter(ctx, db, "clean")
	if err != nil {
		t.Fatalf("reload clean: %v", err)
	}
	if clean.RequestCount != 1 {
		t.Fatalf("clean counter must be untouched, got %+v", clean)
	}
}
