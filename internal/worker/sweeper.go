// Package worker runs the periodic maintenance loops: expiring idle
// conversation sessions and lifting the abuse guard's automatic blocks.
// Both loops run until their context is cancelled and tolerate individual
// sweep failures.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// SessionStore is the session-expiry surface the sweeper drives.
type SessionStore interface {
	DeleteSessionsIdleBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)
}

// LimitResetter lifts automatic blocks placed by the abuse guard.
type LimitResetter interface {
	ResetLimited(ctx context.Context) (int64, error)
}

// Sweeper owns the maintenance tickers.
type Sweeper struct {
	DB       *gorm.DB
	Sessions SessionStore
	Guard    LimitResetter

	// SessionTTL is the idle window after which a half-finished
	// conversation is discarded.
	SessionTTL time.Duration
}

// NewSweeper wires a Sweeper.
func NewSweeper(db *gorm.DB, sessions SessionStore, guard LimitResetter, sessionTTL time.Duration) *Sweeper {
	return &Sweeper{DB: db, Sessions: sessions, Guard: guard, SessionTTL: sessionTTL}
}

// RunSessionSweep deletes sessions idle longer than SessionTTL once.
func (s *Sweeper) RunSessionSweep(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.SessionTTL)
	n, err := s.Sessions.DeleteSessionsIdleBefore(ctx, s.DB, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Info().Int64("expired", n).Msg("expired idle sessions")
	}
	return nil
}

// RunLimitReset unblocks users the guard auto-blocked, once.
func (s *Sweeper) RunLimitReset(ctx context.Context) error {
	n, err := s.Guard.ResetLimited(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Info().Int64("reset", n).Msg("lifted abuse-guard blocks")
	}
	return nil
}

// StartSessionSweep runs RunSessionSweep on the given interval until ctx is
// cancelled. Intended to run in its own goroutine.
func (s *Sweeper) StartSessionSweep(ctx context.Context, interval time.Duration) {
	s.loop(ctx, interval, "session sweep", s.RunSessionSweep)
}

// StartLimitReset runs RunLimitReset on the given interval until ctx is
// cancelled. Intended to run in its own goroutine.
func (s *Sweeper) StartLimitReset(ctx context.Context, interval time.Duration) {
	s.loop(ctx, interval, "limit reset", s.RunLimitReset)
}

func (s *Sweeper) loop(ctx context.Context, interval time.Duration, name string, run func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Str("task", name).Dur("interval", interval).Msg("maintenance loop started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("task", name).Msg("maintenance loop stopped")
			return
		case <-ticker.C:
			if err := run(ctx); err != nil {
				log.Error().Err(err).Str("task", name).Msg("maintenance sweep failed")
			}
		}
	}
}
