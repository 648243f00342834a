// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// SubmissionRequest model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. The moderation service layers the
// lifecycle rules (single pending per target, approval side effects) on top.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/devyouns/martyrs-gallery-bot/internal/domain"
)

// CreateRequest inserts a new pending SubmissionRequest and returns it.
// The id is a generated UUID and CreatedAt is set to UTC.
func CreateRequest(ctx context.Context, db *gorm.DB, userID string, typ domain.RequestType, targetID *string, payload domain.MartyrPayload, submitter domain.Submitter) (*domain.SubmissionRequest, error) {
	r := &domain.SubmissionRequest{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		TargetID:  targetID,
		Payload:   payload,
		Submitter: submitter,
		Status:    domain.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// GetRequest fetches a request by id, or ErrNotFound.
func GetRequest(ctx context.Context, db *gorm.DB, id string) (*domain.SubmissionRequest, error) {
	var r domain.SubmissionRequest
	if err := db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRequestOwned fetches a request by id scoped to its owner, or
// ErrNotFound when missing or owned by someone else.
func GetRequestOwned(ctx context.Context, db *gorm.DB, id, userID string) (*domain.SubmissionRequest, error) {
	var r domain.SubmissionRequest
	err := db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetPendingByTarget returns the pending request aimed at targetID, or
// ErrNotFound when none exists. The moderation service uses this to enforce
// the one-pending-request-per-target invariant.
func GetPendingByTarget(ctx context.Context, db *gorm.DB, targetID string) (*domain.SubmissionRequest, error) {
	var r domain.SubmissionRequest
	err := db.WithContext(ctx).
		Where("target_id = ? AND status = ?", targetID, domain.StatusPending).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRequestsByUser returns all of a user's requests with the given
// statuses, most recent first.
func ListRequestsByUser(ctx context.Context, db *gorm.DB, userID string, statuses ...domain.RequestStatus) ([]domain.SubmissionRequest, error) {
	var out []domain.SubmissionRequest
	q := db.WithContext(ctx).Where("user_id = ?", userID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	err := q.Order("created_at desc").Find(&out).Error
	return out, err
}

// ListPendingPage returns a page of pending requests, oldest first, so the
// administrator reviews submissions in arrival order.
func ListPendingPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.SubmissionRequest, error) {
	var out []domain.SubmissionRequest
	err := db.WithContext(ctx).
		Where("status = ?", domain.StatusPending).
		Order("created_at asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateRequestPayload replaces the payload columns of a request in place.
// Returns ErrNotFound when no row matches.
func UpdateRequestPayload(ctx context.Context, db *gorm.DB, id string, payload domain.MartyrPayload) error {
	res := db.WithContext(ctx).
		Model(&domain.SubmissionRequest{}).
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

// UpdateRequestStatus sets the status and review timestamp of a request.
// Returns ErrNotFound when no row matches.
func UpdateRequestStatus(ctx context.Context, db *gorm.DB, id string, status domain.RequestStatus, reviewedAt time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.SubmissionRequest{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      status,
			"reviewed_at": reviewedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteRequest removes a request row by id. Removing a missing row is not
// an error so withdrawals stay idempotent.
func DeleteRequest(ctx context.Context, db *gorm.DB, id string) error {
	err := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.SubmissionRequest{}).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
