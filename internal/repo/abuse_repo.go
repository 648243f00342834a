// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// AbuseCounter model used by the pre-dispatch abuse guard.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/devyouns/martyrs-gallery-bot/internal/domain"
)

// GetOrCreateCounter returns the counter row for userID, lazily inserting a
// zeroed row on first contact.
func GetOrCreateCounter(ctx context.Context, db *gorm.DB, userID string) (*domain.AbuseCounter, error) {
	var c domain.AbuseCounter
	err := db.WithContext(ctx).Where("telegram_id = ?", userID).First(&c).Error
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	c = domain.AbuseCounter{TelegramID: userID, CreatedAt: now, UpdatedAt: now}
	// A concurrent first contact may insert the same key; treat that as won
	// by the other writer and fall through to the existing row.
	err = db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "telegram_id"}}, DoNothing: true}).
		Create(&c).Error
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Where("telegram_id = ?", userID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// IncrementCounter bumps the request count for userID and returns the new
// value.
func IncrementCounter(ctx context.Context, db *gorm.DB, userID string) (int, error) {
	res := db.WithContext(ctx).
		Model(&domain.AbuseCounter{}).
		Where("telegram_id = ?", userID).
		Updates(map[string]any{
			"request_count": gorm.Expr("request_count + 1"),
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	var c domain.AbuseCounter
	if err := db.WithContext(ctx).Where("telegram_id = ?", userID).First(&c).Error; err != nil {
		return 0, err
	}
	return c.RequestCount, nil
}

// BlockForLimit marks userID as blocked because it crossed the ceiling.
func BlockForLimit(ctx context.Context, db *gorm.DB, userID string) error {
	return db.WithContext(ctx).
		Model(&domain.AbuseCounter{}).
		Where("telegram_id = ?", userID).
		Updates(map[string]any{
			"is_blocked":    true,
			"reached_limit": true,
			"updated_at":    time.Now().UTC(),
		}).Error
}

// ResetLimitedCounters clears count and flags for every row that reached
// the ceiling, unblocking previously limited users. Manually blocked rows
// (is_blocked without reached_limit) are left alone. Returns the number of
// rows reset.
func ResetLimitedCounters(ctx context.Context, db *gorm.DB) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.AbuseCounter{}).
		Where("reached_limit = ?", true).
		Updates(map[string]any{
			"request_count": 0,
			"reached_limit": false,
			"is_blocked":    false,
			"updated_at":    time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}
