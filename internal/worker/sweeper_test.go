package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"
)

type fakeSessionStore struct {
	mu      sync.Mutex
	cutoffs []time.Time
	deleted int64
	err     error
}

func (f *fakeSessionStore) DeleteSessionsIdleBefore(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.deleted, f.err
}

type fakeResetter struct {
	mu    sync.Mutex
	calls int
	reset int64
	err   error
}

func (f *fakeResetter) ResetLimited(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.reset, f.err
}

func TestRunSessionSweep_UsesTTLCutoff(t *testing.T) {
	store := &fakeSessionStore{deleted: 3}
	s := NewSweeper(nil, store, &fakeResetter{}, time.Hour)

	before := time.Now().UTC().Add(-time.Hour)
	if err := s.RunSessionSweep(context.Background()); err != nil {
		t.Fatalf("RunSessionSweep: %v", err)
	}
	after := time.Now().UTC().Add(-time.Hour)

	if len(store.cutoffs) != 1 {
		t.Fatalf("expected one sweep, got %d", len(store.cutoffs))
	}
	cutoff := store.cutoffs[0]
	if cutoff.Before(before) || cutoff.After(after) {
		t.Fatalf("cutoff %v not within [%v, %v]", cutoff, before, after)
	}
}

func TestRunLimitReset_PropagatesError(t *testing.T) {
	boom := errors.New("db locked")
	s := NewSweeper(nil, &fakeSessionStore{}, &fakeResetter{err: boom}, time.Hour)

	if err := s.RunLimitReset(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected repo error, got %v", err)
	}
}

func TestStartLoops_StopOnCancelAndSurviveErrors(t *testing.T) {
	store := &fakeSessionStore{err: errors.New("transient")}
	reset := &fakeResetter{}
	s := NewSweeper(nil, store, reset, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{}, 2)
	go func() { s.StartSessionSweep(ctx, 5*time.Millisecond); done <- struct{}{} }()
	go func() { s.StartLimitReset(ctx, 5*time.Millisecond); done <- struct{}{} }()

	// Let both tickers fire at least once; the session sweep keeps failing
	// and the loop must keep running regardless.
	deadline := time.After(2 * time.Second)
	for {
		store.mu.Lock()
		sweeps := len(store.cutoffs)
		store.mu.Unlock()
		reset.mu.Lock()
		resets := reset.calls
		reset.mu.Unlock()
		if sweeps >= 2 && resets >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("loops did not fire: sweeps=%d resets=%d", sweeps, resets)
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("loop did not stop on context cancel")
		}
	}
}
