// Package services – GalleryService
//
// Read-only access to the published record store for the public HTTP API.
// Listing is newest-first and paginated; nothing here can mutate state.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/devyouns/martyrs-gallery-bot/internal/domain"
)

// GalleryRepo defines the read-side persistence contract for published
// entries.
type GalleryRepo interface {
	GetMartyr(ctx context.Context, db *gorm.DB, id string) (*domain.Martyr, error)
	ListMartyrsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Martyr, error)
	CountMartyrs(ctx context.Context, db *gorm.DB) (int64, error)
}

// GalleryService serves the public, read-only view of published entries.
type GalleryService struct {
	DB   *gorm.DB
	Repo GalleryRepo
}

// NewGalleryService wires a GalleryService.
func NewGalleryService(db *gorm.DB, repo GalleryRepo) *GalleryService {
	return &GalleryService{DB: db, Repo: repo}
}

// ListPage returns one page of published entries plus the total count.
// page and pageSize are 1-based and already clamped by the caller.
func (s *GalleryService) ListPage(ctx context.Context, page, pageSize int) ([]domain.Martyr, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	total, err := s.Repo.CountMartyrs(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.Repo.ListMartyrsPage(ctx, s.DB, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Get returns one published entry by id.
func (s *GalleryService) Get(ctx context.Context, id string) (*domain.Martyr, error) {
	m, err := s.Repo.GetMartyr(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMartyrNotFound
		}
		return nil, err
	}
	return m, nil
}
