// Gallery HTTP handlers.
//
// This file exposes the public, read-only REST endpoints for published
// entries:
//   - GET /martyrs        (list, paginated, newest first)
//   - GET /martyrs/{id}   (single entry)
//
// Handlers are transport-thin: they validate input, call the gallery
// service, and translate results into HTTP responses. Moderation linkage
// fields (origin request, owner) are never exposed here.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/devyouns/martyrs-gallery-bot/internal/domain"
	"github.com/devyouns/martyrs-gallery-bot/internal/services"
	"github.com/devyouns/martyrs-gallery-bot/internal/utils"
)

// GalleryService defines the read-only operations consumed by the gallery
// handlers. Implementations must be safe for concurrent use and honor the
// provided context.
type GalleryService interface {
	// ListPage returns a page of published entries and the total count.
	ListPage(ctx context.Context, page, pageSize int) ([]domain.Martyr, int64, error)
	// Get returns a single published entry by id.
	Get(ctx context.Context, id string) (*domain.Martyr, error)
}

// GalleryItem is the public projection of a published entry.
type GalleryItem struct {
	ID            string    `json:"id"`
	FullName      string    `json:"full_name"`
	Age           *int      `json:"age,omitempty"`
	DateBirth     string    `json:"date_birth,omitempty"`
	DateMartyrdom string    `json:"date_martyrdom,omitempty"`
	Place         string    `json:"place,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListMartyrsResponse wraps a page of entries and pagination information.
type ListMartyrsResponse struct {
	Martyrs    []GalleryItem `json:"martyrs"`
	Pagination Pagination    `json:"pagination"`
}

// Handlers groups the HTTP endpoints for the public gallery API.
type Handlers struct {
	gallerySvc GalleryService
}

// New constructs a Handlers instance bound to the given service.
func New(gallerySvc GalleryService) *Handlers {
	return &Handlers{gallerySvc: gallerySvc}
}

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

func galleryItem(m *domain.Martyr) GalleryItem {
	return GalleryItem{
		ID:            m.ID,
		FullName:      m.Payload.FullName,
		Age:           m.Payload.Age,
		DateBirth:     m.Payload.DateBirth,
		DateMartyrdom: m.Payload.DateMartyrdom,
		Place:         m.Payload.Place,
		ImageURL:      m.Payload.ImageURL,
		CreatedAt:     m.CreatedAt,
	}
}

// ListMartyrs returns one page of published entries, newest first.
func (h *Handlers) ListMartyrs(c *gin.Context) {
	page, pageSize := clampPagination(c)

	items, total, err := h.gallerySvc.ListPage(c.Request.Context(), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	out := make([]GalleryItem, 0, len(items))
	for i := range items {
		out = append(out, galleryItem(&items[i]))
	}
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListMartyrsResponse{
		Martyrs: out,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetMartyr returns a single published entry by id.
func (h *Handlers) GetMartyr(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "martyr id must be a UUID")
		return
	}

	m, err := h.gallerySvc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrMartyrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "martyr not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, galleryItem(m))
}
