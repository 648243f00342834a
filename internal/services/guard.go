// Package services – GuardService
//
// Per-user volume limiting. Every inbound event increments the sender's
// counter; hitting the ceiling flips the block flag and all further events
// from that user are dropped silently, with no reply of any kind. A
// periodic sweep resets the counters of previously limited users, which
// unblocks them.
package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/devyouns/martyrs-gallery-bot/internal/domain"
)

// DefaultRequestCeiling is the number of inbound events a user may produce before being blocked.
const DefaultRequestCeiling = 200

// AbuseRepo defines the counter persistence contract.
type AbuseRepo interface {
	GetOrCreateCounter(ctx context.Context, db *gorm.DB, userID string) (*domain.AbuseCounter, error)
	IncrementCounter(ctx context.Context, db *gorm.DB, userID string) (int, error)
	BlockForLimit(ctx context.Context, db *gorm.DB, userID string) error
	ResetLimitedCounters(ctx context.Context, db *gorm.DB) (int64, error)
}

// GuardService decides whether an inbound event may proceed.
type GuardService struct {
	DB      *gorm.DB
	Repo    AbuseRepo
	Ceiling int
}

// NewGuardService wires a GuardService. A non-positive ceiling falls back
// to DefaultRequestCeiling.
func NewGuardService(db *gorm.DB, repo AbuseRepo, ceiling int) *GuardService {
	if ceiling <= 0 {
		ceiling = DefaultRequestCeiling
	}
	return &GuardService{DB: db, Repo: repo, Ceiling: ceiling}
}

// Admit counts one inbound event for userID and reports whether it may be
// processed. The event that reaches the ceiling is still admitted; it also
// flips the block flag so everything after it is dropped.
func (s *GuardService) Admit(ctx context.Context, userID string) (bool, error) {
	c, err := s.Repo.GetOrCreateCounter(ctx, s.DB, userID)
	if err != nil {
		return false, fmt.Errorf("load counter for %s: %w", userID, err)
	}
	if c.IsBlocked {
		return false, nil
	}

	n, err := s.Repo.IncrementCounter(ctx, s.DB, userID)
	if err != nil {
		return false, fmt.Errorf("increment counter for %s: %w", userID, err)
	}
	if n >= s.Ceiling {
		if err := s.Repo.BlockForLimit(ctx, s.DB, userID); err != nil {
			return false, fmt.Errorf("block %s: %w", userID, err)
		}
	}
	return n <= s.Ceiling, nil
}

// ResetLimited clears the counters of users blocked for volume, unblocking
// them. Returns how many counters were reset.
func (s *GuardService) ResetLimited(ctx context.Context) (int64, error) {
	return s.Repo.ResetLimitedCounters(ctx, s.DB)
}
