package services

import (
	"context"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/devyouns/martyrs-gallery-bot/internal/domain"
)

// fakeAbuseRepo keeps counters in a map.
type fakeAbuseRepo struct {
	mu       sync.Mutex
	counters map[string]*domain.AbuseCounter
}

func newFakeAbuseRepo() *fakeAbuseRepo {
	return &fakeAbuseRepo{counters: make(map[string]*domain.AbuseCounter)}
}

func (f *fakeAbuseRepo) GetOrCreateCounter(_ context.Context, _ *gorm.DB, userID string) (*domain.AbuseCounter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.counters[userID]
	if !ok {
		c = &domain.AbuseCounter{TelegramID: userID}
		f.counters[userID] = c
	}
	cp := *c
	return &cp, nil
}

func (f *fakeAbuseRepo) IncrementCounter(_ context.Context, _ *gorm.DB, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.counters[userID]
	c.RequestCount++
	return c.RequestCount, nil
}

func (f *fakeAbuseRepo) BlockForLimit(_ context.Context, _ *gorm.DB, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.counters[userID]
	c.IsBlocked = true
	c.ReachedLimit = true
	return nil
}

func (f *fakeAbuseRepo) ResetLimitedCounters(_ context.Context, _ *gorm.DB) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, c := range f.counters {
		if c.ReachedLimit {
			c.RequestCount = 0
			c.ReachedLimit = false
			c.IsBlocked = false
			n++
		}
	}
	return n, nil
}

func TestAdmit_BlocksAtCeiling(t *testing.T) {
	repo := newFakeAbuseRepo()
	guard := NewGuardService(nil, repo, 3)
	ctx := context.Background()

	// The ceiling-hitting event is still admitted; everything after it is
	// dropped silently.
	for i := 1; i <= 3; i++ {
		ok, err := guard.Admit(ctx, "u1")
		if err != nil {
			t.Fatalf("Admit #%d: %v", i, err)
		}
		if !ok {
			t.Fatalf("event %d of 3 should be admitted", i)
		}
	}
	ok, err := guard.Admit(ctx, "u1")
	if err != nil {
		t.Fatalf("Admit past ceiling: %v", err)
	}
	if ok {
		t.Fatal("event past the ceiling must be dropped")
	}

	// Other users are unaffected.
	if ok, _ := guard.Admit(ctx, "u2"); !ok {
		t.Fatal("unrelated user must not be blocked")
	}
}

func TestResetLimited_Unblocks(t *testing.T) {
	repo := newFakeAbuseRepo()
	guard := NewGuardService(nil, repo, 2)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = guard.Admit(ctx, "u1")
	}
	if ok, _ := guard.Admit(ctx, "u1"); ok {
		t.Fatal("user should be blocked before the sweep")
	}

	n, err := guard.ResetLimited(ctx)
	if err != nil {
		t.Fatalf("ResetLimited: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 counter reset, got %d", n)
	}
	if ok, _ := guard.Admit(ctx, "u1"); !ok {
		t.Fatal("user should be admitted again after the sweep")
	}
}

func TestNewGuardService_DefaultCeiling(t *testing.T) {
	guard := NewGuardService(nil, newFakeAbuseRepo(), 0)
	if guard.Ceiling != DefaultRequestCeiling {
		t.Fatalf("ceiling = %d, want %d", guard.Ceiling, DefaultRequestCeiling)
	}
}
