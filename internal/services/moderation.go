// Package services – ModerationService
//
// This file implements the review workflow. Submissions are persisted as
// pending requests; an administrator approves or rejects them. Approval is
// the only path that touches the published record store, and it runs inside
// a transaction: an approved add creates the record linked to its origin
// request, an approved edit rewrites the target in place, an approved
// delete removes it. A retried approval finds the record already linked to
// the request instead of inserting a duplicate.
//
// Notifications are strictly post-commit: a delivery failure is logged and
// swallowed, never allowed to affect stored state.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/devyouns/martyrs-gallery-bot/internal/domain"
)

// RequestRepo defines the submission-request persistence contract.
type RequestRepo interface {
	CreateRequest(ctx context.Context, db *gorm.DB, userID string, typ domain.RequestType, targetID *string, payload domain.MartyrPayload, sub domain.Submitter) (*domain.SubmissionRequest, error)
	GetRequest(ctx context.Context, db *gorm.DB, id string) (*domain.SubmissionRequest, error)
	GetRequestOwned(ctx context.Context, db *gorm.DB, id, userID string) (*domain.SubmissionRequest, error)
	GetPendingByTarget(ctx context.Context, db *gorm.DB, targetID string) (*domain.SubmissionRequest, error)
	ListRequestsByUser(ctx context.Context, db *gorm.DB, userID string, statuses ...domain.RequestStatus) ([]domain.SubmissionRequest, error)
	ListPendingPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.SubmissionRequest, error)
	UpdateRequestPayload(ctx context.Context, db *gorm.DB, id string, payload domain.MartyrPayload) error
	UpdateRequestStatus(ctx context.Context, db *gorm.DB, id string, status domain.RequestStatus, reviewedAt time.Time) error
	DeleteRequest(ctx context.Context, db *gorm.DB, id string) error
	CountRequests(ctx context.Context, db *gorm.DB) (int64, error)
	CountRequestsByStatus(ctx context.Context, db *gorm.DB, status domain.RequestStatus) (int64, error)
}

// MartyrRepo defines the published-record persistence contract.
type MartyrRepo interface {
	CreateMartyr(ctx context.Context, db *gorm.DB, requestID, ownerUserID string, payload domain.MartyrPayload) (*domain.Martyr, error)
	GetMartyrOwned(ctx context.Context, db *gorm.DB, id, ownerUserID string) (*domain.Martyr, error)
	GetMartyrByRequestID(ctx context.Context, db *gorm.DB, requestID string) (*domain.Martyr, error)
	UpdateMartyrPayload(ctx context.Context, db *gorm.DB, id string, payload domain.MartyrPayload) error
	DeleteMartyr(ctx context.Context, db *gorm.DB, id string) error
	ListMartyrsByOwner(ctx context.Context, db *gorm.DB, ownerUserID string) ([]domain.Martyr, error)
	CountMartyrs(ctx context.Context, db *gorm.DB) (int64, error)
}

// Notifier delivers out-of-band messages after a workflow step commits.
// Implementations must not block indefinitely.
type Notifier interface {
	NotifyAdmin(ctx context.Context, text string)
	NotifyUser(ctx context.Context, userID, text string)
}

// Stats is a point-in-time aggregate over requests and published records.
type Stats struct {
	TotalRequests int64
	Pending       int64
	Approved      int64
	Rejected      int64
	TotalMartyrs  int64
}

// ModerationService owns the submission lifecycle from creation to decision.
type ModerationService struct {
	DB       *gorm.DB
	Requests RequestRepo
	Martyrs  MartyrRepo
	// Notify may be nil; workflow steps then complete silently.
	Notify Notifier
}

// NewModerationService wires a ModerationService.
func NewModerationService(db *gorm.DB, requests RequestRepo, martyrs MartyrRepo, notify Notifier) *ModerationService {
	return &ModerationService{DB: db, Requests: requests, Martyrs: martyrs, Notify: notify}
}

// PendingForTarget returns the pending request occupying targetID, or
// ErrRequestNotFound when the target is free.
func (s *ModerationService) PendingForTarget(ctx context.Context, targetID string) (*domain.SubmissionRequest, error) {
	req, err := s.Requests.GetPendingByTarget(ctx, s.DB, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("pending for target %s: %w", targetID, err)
	}
	return req, nil
}

// Submit records a new pending request. For targeted requests (edit/delete)
// at most one pending request may exist per target: a second submission is
// refused with ErrDuplicatePendingRequest and the occupying request is
// returned alongside the error. The admin is notified post-commit.
func (s *ModerationService) Submit(ctx context.Context, userID string, typ domain.RequestType, targetID *string, payload domain.MartyrPayload, sub domain.Submitter) (*domain.SubmissionRequest, error) {
	if targetID != nil {
		existing, err := s.Requests.GetPendingByTarget(ctx, s.DB, *targetID)
		if err == nil {
			return existing, ErrDuplicatePendingRequest
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("check pending for target %s: %w", *targetID, err)
		}
	}

	req, err := s.Requests.CreateRequest(ctx, s.DB, userID, typ, targetID, payload, sub)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.notifyAdmin(ctx, fmt.Sprintf(
		"<b>⭐️ طلب جديد للمراجعة ⭐️</b>\n\n<b>ID الطلب:</b> <code>%s</code>\n<b>ID المستخدم:</b> <code>%s</code>\n<b>الاسم:</b> %s\n\n<b>مقدم الطلب:</b> %s %s (@%s)\n\nيمكنك مراجعة الطلب باستخدام /review",
		req.ID, userID, payload.FullName, sub.FirstName, sub.LastName, sub.Username,
	))
	return req, nil
}

// RequestDelete submits a delete request against the user's own published
// record, carrying a snapshot of its payload for review display.
func (s *ModerationService) RequestDelete(ctx context.Context, userID, martyrID string, sub domain.Submitter) (*domain.SubmissionRequest, error) {
	m, err := s.Martyrs.GetMartyrOwned(ctx, s.DB, martyrID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMartyrNotFound
		}
		return nil, fmt.Errorf("load martyr %s: %w", martyrID, err)
	}
	return s.Submit(ctx, userID, domain.RequestDelete, &m.ID, m.Payload, sub)
}

// Approve applies a pending request to the record store and marks it
// approved, atomically. Re-approving an already approved request is a
// no-op success; a request made rejected meanwhile is refused.
func (s *ModerationService) Approve(ctx context.Context, requestID string) (*domain.SubmissionRequest, error) {
	req, err := s.Requests.GetRequest(ctx, s.DB, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("load request %s: %w", requestID, err)
	}

	switch req.Status {
	case domain.StatusApproved:
		return req, nil
	case domain.StatusRejected:
		return nil, ErrRequestNotPending
	}

	now := time.Now().UTC()
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch req.Type {
		case domain.RequestAdd:
			// A crash after record creation but before the status update
			// leaves the request pending with its record already linked;
			// the retry must find it rather than insert again.
			if _, err := s.Martyrs.GetMartyrByRequestID(ctx, tx, req.ID); err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("check linkage: %w", err)
				}
				if _, err := s.Martyrs.CreateMartyr(ctx, tx, req.ID, req.UserID, req.Payload); err != nil {
					return fmt.Errorf("create record: %w", err)
				}
			}
		case domain.RequestEdit:
			if req.TargetID == nil {
				return fmt.Errorf("edit request %s has no target", req.ID)
			}
			if err := s.Martyrs.UpdateMartyrPayload(ctx, tx, *req.TargetID, req.Payload); err != nil {
				return fmt.Errorf("apply edit to %s: %w", *req.TargetID, err)
			}
		case domain.RequestDelete:
			if req.TargetID == nil {
				return fmt.Errorf("delete request %s has no target", req.ID)
			}
			if err := s.Martyrs.DeleteMartyr(ctx, tx, *req.TargetID); err != nil {
				return fmt.Errorf("apply delete to %s: %w", *req.TargetID, err)
			}
		default:
			return fmt.Errorf("unknown request type %q", req.Type)
		}
		return s.Requests.UpdateRequestStatus(ctx, tx, req.ID, domain.StatusApproved, now)
	})
	if err != nil {
		return nil, err
	}

	req.Status = domain.StatusApproved
	req.ReviewedAt = &now
	s.notifyUser(ctx, req.UserID, approvalNotice(req))
	return req, nil
}

// Reject marks a pending request rejected. The row is retained so the user
// can see the outcome and withdraw it later; it is notified post-commit
// with resubmission guidance.
func (s *ModerationService) Reject(ctx context.Context, requestID string) (*domain.SubmissionRequest, error) {
	req, err := s.Requests.GetRequest(ctx, s.DB, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("load request %s: %w", requestID, err)
	}
	switch req.Status {
	case domain.StatusRejected:
		return req, nil
	case domain.StatusApproved:
		return nil, ErrRequestNotPending
	}

	now := time.Now().UTC()
	if err := s.Requests.UpdateRequestStatus(ctx, s.DB, req.ID, domain.StatusRejected, now); err != nil {
		return nil, fmt.Errorf("mark rejected: %w", err)
	}

	req.Status = domain.StatusRejected
	req.ReviewedAt = &now
	s.notifyUser(ctx, req.UserID, rejectionNotice(req))
	return req, nil
}

// ReplacePending rewrites the payload of the user's own pending request in
// place, keeping its id and queue position.
func (s *ModerationService) ReplacePending(ctx context.Context, userID, requestID string, payload domain.MartyrPayload) (*domain.SubmissionRequest, error) {
	req, err := s.Requests.GetRequestOwned(ctx, s.DB, requestID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("load request %s: %w", requestID, err)
	}
	if req.Status != domain.StatusPending {
		return nil, ErrRequestNotPending
	}
	if err := s.Requests.UpdateRequestPayload(ctx, s.DB, req.ID, payload); err != nil {
		return nil, fmt.Errorf("replace payload: %w", err)
	}
	req.Payload = payload
	return req, nil
}

// WithdrawOwn hard-deletes the user's own pending or rejected request.
// Approved requests are history and cannot be withdrawn.
func (s *ModerationService) WithdrawOwn(ctx context.Context, userID, requestID string) error {
	req, err := s.Requests.GetRequestOwned(ctx, s.DB, requestID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRequestNotFound
		}
		return fmt.Errorf("load request %s: %w", requestID, err)
	}
	if req.Status == domain.StatusApproved {
		return ErrRequestNotPending
	}
	if err := s.Requests.DeleteRequest(ctx, s.DB, req.ID); err != nil {
		return fmt.Errorf("withdraw request %s: %w", req.ID, err)
	}
	return nil
}

// ListPendingForReview returns the review queue oldest first.
func (s *ModerationService) ListPendingForReview(ctx context.Context, offset, limit int) ([]domain.SubmissionRequest, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.Requests.ListPendingPage(ctx, s.DB, offset, limit)
}

// ListUserRequests returns the user's requests, optionally filtered by
// status, newest first.
func (s *ModerationService) ListUserRequests(ctx context.Context, userID string, statuses ...domain.RequestStatus) ([]domain.SubmissionRequest, error) {
	return s.Requests.ListRequestsByUser(ctx, s.DB, userID, statuses...)
}

// ListUserMartyrs returns the published records the user submitted.
func (s *ModerationService) ListUserMartyrs(ctx context.Context, userID string) ([]domain.Martyr, error) {
	return s.Martyrs.ListMartyrsByOwner(ctx, s.DB, userID)
}

// SystemStats aggregates the request and record counts concurrently.
func (s *ModerationService) SystemStats(ctx context.Context) (*Stats, error) {
	var (
		st   Stats
		mu   sync.Mutex
		wg   sync.WaitGroup
		errs []error
	)
	count := func(dst *int64, fn func() (int64, error)) {
		defer wg.Done()
		n, err := fn()
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs = append(errs, err)
			return
		}
		*dst = n
	}

	wg.Add(5)
	go count(&st.TotalRequests, func() (int64, error) { return s.Requests.CountRequests(ctx, s.DB) })
	go count(&st.Pending, func() (int64, error) { return s.Requests.CountRequestsByStatus(ctx, s.DB, domain.StatusPending) })
	go count(&st.Approved, func() (int64, error) { return s.Requests.CountRequestsByStatus(ctx, s.DB, domain.StatusApproved) })
	go count(&st.Rejected, func() (int64, error) { return s.Requests.CountRequestsByStatus(ctx, s.DB, domain.StatusRejected) })
	go count(&st.TotalMartyrs, func() (int64, error) { return s.Martyrs.CountMartyrs(ctx, s.DB) })
	wg.Wait()

	if len(errs) > 0 {
		return nil, fmt.Errorf("collect stats: %w", errs[0])
	}
	return &st, nil
}

func (s *ModerationService) notifyAdmin(ctx context.Context, text string) {
	if s.Notify == nil {
		return
	}
	s.Notify.NotifyAdmin(ctx, text)
}

func (s *ModerationService) notifyUser(ctx context.Context, userID, text string) {
	if s.Notify == nil {
		return
	}
	s.Notify.NotifyUser(ctx, userID, text)
}

func approvalNotice(req *domain.SubmissionRequest) string {
	name := displayName(req.Payload.FullName)
	switch req.Type {
	case domain.RequestEdit:
		return fmt.Sprintf("<b>🎉 تهانينا!</b>\n\nتم قبول طلبك لتعديل بيانات الشهيد <b>%s</b>.", name)
	case domain.RequestDelete:
		return fmt.Sprintf("تم قبول طلبك لحذف الشهيد <b>%s</b>.", name)
	default:
		return fmt.Sprintf("<b>🎉 تهانينا!</b>\n\nتم قبول طلبك لإضافة الشهيد <b>%s</b>.\n\nشكراً لك على مساهمتك في حفظ ذكرى شهدائنا الأبرار.", name)
	}
}

func rejectionNotice(req *domain.SubmissionRequest) string {
	action := "لإضافة الشهيد"
	switch req.Type {
	case domain.RequestEdit:
		action = "لتعديل بيانات الشهيد"
	case domain.RequestDelete:
		action = "لحذف الشهيد"
	}
	return fmt.Sprintf(
		"<b>😔 عذراً،</b>\n\nتم رفض طلبك %s <b>%s</b>.\n\nيمكنك تقديم طلب جديد بعد مراجعة البيانات والتأكد من صحتها.",
		action, displayName(req.Payload.FullName),
	)
}

func displayName(fullName string) string {
	if fullName == "" {
		return "غير محدد"
	}
	return fullName
}
