// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Martyr
// model (the published gallery entries).
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/devyouns/martyrs-gallery-bot/internal/domain"
)

// CreateMartyr publishes a new entry from an approved add request. The
// requestID linkage plus its unique index is what makes a retried approval
// detectable (see GetMartyrByRequestID).
func CreateMartyr(ctx context.Context, db *gorm.DB, requestID, ownerUserID string, payload domain.MartyrPayload) (*domain.Martyr, error) {
	m := &domain.Martyr{
		ID:          uuid.NewString(),
		RequestID:   requestID,
		OwnerUserID: ownerUserID,
		Payload:     payload,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// GetMartyr fetches a published entry by id, or ErrNotFound.
func GetMartyr(ctx context.Context, db *gorm.DB, id string) (*domain.Martyr, error) {
	var m domain.Martyr
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMartyrOwned fetches a published entry by id scoped to the user who
// originally submitted it, or ErrNotFound.
func GetMartyrOwned(ctx context.Context, db *gorm.DB, id, ownerUserID string) (*domain.Martyr, error) {
	var m domain.Martyr
	err := db.WithContext(ctx).
		Where("id = ? AND owner_user_id = ?", id, ownerUserID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMartyrByRequestID returns the entry created from the given add
// request, or ErrNotFound. Approve consults this before creating a record
// so a crash-retry never publishes twice.
func GetMartyrByRequestID(ctx context.Context, db *gorm.DB, requestID string) (*domain.Martyr, error) {
	var m domain.Martyr
	err := db.WithContext(ctx).Where("request_id = ?", requestID).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMartyrsByOwner returns the published entries a user originated, most
// recent first.
func ListMartyrsByOwner(ctx context.Context, db *gorm.DB, ownerUserID string) ([]domain.Martyr, error) {
	var out []domain.Martyr
	err := db.WithContext(ctx).
		Where("owner_user_id = ?", ownerUserID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// CountMartyrs returns the total number of published entries.
func CountMartyrs(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Martyr{}).Count(&total).Error
	return total, err
}

// ListMartyrsPage returns a page of published entries, most recent first,
// for the public gallery API.
func ListMartyrsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Martyr, error) {
	var out []domain.Martyr
	err := db.WithContext(ctx).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateMartyrPayload applies an approved edit onto the published entry in
// place. Returns ErrNotFound when the target no longer exists.
func UpdateMartyrPayload(ctx context.Context, db *gorm.DB, id string, payload domain.MartyrPayload) error {
	res := db.WithContext(ctx).
		Model(&domain.Martyr{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"name_first":     payload.NameFirst,
			"name_father":    payload.NameFather,
			"name_family":    payload.NameFamily,
			"full_name":      payload.FullName,
			"age":            payload.Age,
			"date_birth":     payload.DateBirth,
			"date_martyrdom": payload.DateMartyrdom,
			"place":          payload.Place,
			"image_url":      payload.ImageURL,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteMartyr removes a published entry. Removing a missing entry is not
// an error so a retried delete-approval stays safe.
func DeleteMartyr(ctx context.Context, db *gorm.DB, id string) error {
	err := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Martyr{}).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
