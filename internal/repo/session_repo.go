// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Session
// model.
//
// Sessions are keyed by user id with at most one row per user; SaveSession
// is an upsert so concurrent saves for the same user collapse to
// last-write-wins at the row level, which the conversation engine tolerates
// by design.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/devyouns/martyrs-gallery-bot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// SaveSession inserts or replaces the session row for its user id.
func SaveSession(ctx context.Context, db *gorm.DB, s *domain.Session) error {
	s.UpdatedAt = time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = s.UpdatedAt
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(s).Error
}

// GetSession fetches the session for userID, or ErrNotFound when the user
// has no active flow.
func GetSession(ctx context.Context, db *gorm.DB, userID string) (*domain.Session, error) {
	var s domain.Session
	err := db.WithContext(ctx).Where("user_id = ?", userID).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteSession removes the session for userID. Deleting a missing session
// is not an error; cancellation must be unconditional.
func DeleteSession(ctx context.Context, db *gorm.DB, userID string) error {
	err := db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.Session{}).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

// DeleteSessionsIdleBefore removes all sessions whose last update is older
// than cutoff and returns how many rows were removed. Used by the TTL sweep
// so abandoned flows do not block a user from starting over.
func DeleteSessionsIdleBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Delete(&domain.Session{})
	return res.RowsAffected, res.Error
}
