package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/devyouns/martyrs-gallery-bot/internal/domain"
)

type fakeGalleryRepo struct {
	items []domain.Martyr
	err   error
}

func (f *fakeGalleryRepo) GetMartyr(_ context.Context, _ *gorm.DB, id string) (*domain.Martyr, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.items {
		if f.items[i].ID == id {
			cp := f.items[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeGalleryRepo) ListMartyrsPage(_ context.Context, _ *gorm.DB, offset, limit int) ([]domain.Martyr, error) {
	if f.err != nil {
		return nil, f.err
	}
	if offset >= len(f.items) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.items) {
		end = len(f.items)
	}
	return f.items[offset:end], nil
}

func (f *fakeGalleryRepo) CountMartyrs(_ context.Context, _ *gorm.DB) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return int64(len(f.items)), nil
}

func seedGallery(n int) []domain.Martyr {
	items := make([]domain.Martyr, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, domain.Martyr{
			ID:        fmt.Sprintf("m-%02d", i),
			CreatedAt: time.Now().UTC(),
			Payload:   domain.MartyrPayload{FullName: fmt.Sprintf("شهيد %d", i)},
		})
	}
	return items
}

func TestGalleryListPage(t *testing.T) {
	svc := NewGalleryService(nil, &fakeGalleryRepo{items: seedGallery(5)})
	ctx := context.Background()

	items, total, err := svc.ListPage(ctx, 2, 2)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}
	if len(items) != 2 || items[0].ID != "m-02" {
		t.Fatalf("unexpected page: %+v", items)
	}

	// Page beyond the end is empty, not an error.
	items, total, err = svc.ListPage(ctx, 9, 2)
	if err != nil || total != 5 || len(items) != 0 {
		t.Fatalf("tail page: items=%d total=%d err=%v", len(items), total, err)
	}

	// Degenerate inputs are clamped.
	items, _, err = svc.ListPage(ctx, 0, 0)
	if err != nil || len(items) != 1 {
		t.Fatalf("clamped page: items=%d err=%v", len(items), err)
	}
}

func TestGalleryGet(t *testing.T) {
	svc := NewGalleryService(nil, &fakeGalleryRepo{items: seedGallery(1)})
	ctx := context.Background()

	m, err := svc.Get(ctx, "m-00")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if m.Payload.FullName != "شهيد 0" {
		t.Fatalf("unexpected entry: %+v", m)
	}

	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, ErrMartyrNotFound) {
		t.Fatalf("expected ErrMartyrNotFound, got %v", err)
	}
}

func TestGalleryRepoErrorPassesThrough(t *testing.T) {
	boom := errors.New("disk gone")
	svc := NewGalleryService(nil, &fakeGalleryRepo{err: boom})

	if _, _, err := svc.ListPage(context.Background(), 1, 10); !errors.Is(err, boom) {
		t.Fatalf("expected repo error, got %v", err)
	}
}
