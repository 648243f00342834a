// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for the
// administrator's system statistics view.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/devyouns/martyrs-gallery-bot/internal/domain"
)

// CountRequests returns the total number of submission requests.
func CountRequests(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.SubmissionRequest{}).Count(&total).Error
	return total, err
}

// CountRequestsByStatus returns the number of submission requests carrying
// the given status.
func CountRequestsByStatus(ctx context.Context, db *gorm.DB, status domain.RequestStatus) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.SubmissionRequest{}).
		Where("status = ?", status).
		Count(&total).Error
	return total, err
}
