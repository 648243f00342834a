// Package services – ConversationService
//
// This file implements the multi-step collection flow. A session walks a
// fixed, linear sequence of states (first name, father name, family name,
// birth date, martyrdom date, place, photo); each text answer is recorded
// under the state's draft field and advances the session one state. The
// sequence is declared as a transition table so the walk itself is generic.
//
// Age is never asked: it is derived from the two dates when the flow leaves
// the martyrdom-date state. Edit flows seed the draft from the target entity
// and interpolate the current value into each prompt; at the photo step a
// text answer means "keep the existing image".
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/devyouns/martyrs-gallery-bot/internal/domain"
)

// Keyboard selects the reply-keyboard variant the dispatcher should attach.
type Keyboard int

const (
	// KeyboardNone leaves the current keyboard in place.
	KeyboardNone Keyboard = iota
	// KeyboardCancel shows only the cancel button, used mid-flow.
	KeyboardCancel
	// KeyboardMain restores the main menu.
	KeyboardMain
)

// Reply is a single outbound message produced by the flow. When PhotoFileID
// is set the dispatcher sends a photo with Text as its caption.
type Reply struct {
	Text        string
	PhotoFileID string
	Keyboard    Keyboard
}

// SessionRepo defines the session persistence contract.
type SessionRepo interface {
	SaveSession(ctx context.Context, db *gorm.DB, s *domain.Session) error
	GetSession(ctx context.Context, db *gorm.DB, userID string) (*domain.Session, error)
	DeleteSession(ctx context.Context, db *gorm.DB, userID string) error
}

// EditSourceRepo loads the entities an edit flow seeds its draft from.
type EditSourceRepo interface {
	GetMartyrOwned(ctx context.Context, db *gorm.DB, id, ownerUserID string) (*domain.Martyr, error)
	GetRequestOwned(ctx context.Context, db *gorm.DB, id, userID string) (*domain.SubmissionRequest, error)
}

// FileResolver turns a transport file id into a downloadable URL.
type FileResolver interface {
	FileURL(ctx context.Context, fileID string) (string, error)
}

// ImageStore re-hosts an image and returns its permanent URL.
type ImageStore interface {
	UploadFromURL(ctx context.Context, srcURL string) (string, error)
}

// FlowSink receives completed flows. Implemented by ModerationService.
type FlowSink interface {
	Submit(ctx context.Context, userID string, typ domain.RequestType, targetID *string, payload domain.MartyrPayload, sub domain.Submitter) (*domain.SubmissionRequest, error)
	ReplacePending(ctx context.Context, userID, requestID string, payload domain.MartyrPayload) (*domain.SubmissionRequest, error)
}

// step declares one transition of the collection walk: where the answer
// goes, which state follows, and the prompt for the next field. prompt
// receives the draft so edit flows can show the current value; empty is
// the re-prompt sent when the answer is blank.
type step struct {
	next      string
	isDate    bool
	empty     string
	assign    func(d *domain.Draft, v string)
	onAdvance func(d *domain.Draft)
	prompt    func(d *domain.Draft, editing bool) string
}

// withCurrent appends the draft's current value to a prompt, matching the
// edit-flow convention of showing what is already recorded.
func withCurrent(base, current string) string {
	if current == "" {
		return base
	}
	return fmt.Sprintf("%s (الحالي: %s)", base, current)
}

var flowSteps = map[string]step{
	domain.StateWaitingFirstName: {
		next:   domain.StateWaitingFatherName,
		empty:  "❌ الرجاء إدخال الاسم الأول",
		assign: func(d *domain.Draft, v string) { d.FirstName = v },
		prompt: func(d *domain.Draft, _ bool) string { return withCurrent("الرجاء إدخال اسم الأب:", d.FatherName) },
	},
	domain.StateWaitingFatherName: {
		next:   domain.StateWaitingFamilyName,
		empty:  "❌ الرجاء إدخال اسم الأب",
		assign: func(d *domain.Draft, v string) { d.FatherName = v },
		prompt: func(d *domain.Draft, _ bool) string { return withCurrent("الرجاء إدخال اسم العائلة:", d.FamilyName) },
	},
	domain.StateWaitingFamilyName: {
		next:   domain.StateWaitingBirthDate,
		empty:  "❌ الرجاء إدخال اسم العائلة",
		assign: func(d *domain.Draft, v string) { d.FamilyName = v },
		prompt: func(d *domain.Draft, _ bool) string {
			return withCurrent("الرجاء إدخال تاريخ الولادة (مثال: 1990/01/15):", d.BirthDate)
		},
	},
	domain.StateWaitingBirthDate: {
		next:   domain.StateWaitingMartyrdomDate,
		isDate: true,
		empty:  "❌ الرجاء إدخال تاريخ الولادة",
		assign: func(d *domain.Draft, v string) { d.BirthDate = v },
		prompt: func(d *domain.Draft, _ bool) string {
			return withCurrent("الرجاء إدخال تاريخ الاستشهاد (مثال: 2024/03/15):", d.MartyrdomDate)
		},
	},
	domain.StateWaitingMartyrdomDate: {
		next:      domain.StateWaitingPlace,
		isDate:    true,
		empty:     "❌ الرجاء إدخال تاريخ الاستشهاد",
		assign:    func(d *domain.Draft, v string) { d.MartyrdomDate = v },
		onAdvance: func(d *domain.Draft) { d.Age = DeriveAge(d.BirthDate, d.MartyrdomDate) },
		prompt: func(d *domain.Draft, _ bool) string {
			return withCurrent("الرجاء إدخال مكان الاستشهاد:", d.Place)
		},
	},
	domain.StateWaitingPlace: {
		next:   domain.StateWaitingPhoto,
		empty:  "❌ الرجاء إدخال مكان الاستشهاد",
		assign: func(d *domain.Draft, v string) { d.Place = v },
		prompt: func(d *domain.Draft, editing bool) string {
			if editing {
				return "الرجاء إرسال صورة الشهيد الجديدة:\n\n(إذا كنت لا تريد تغيير الصورة الحالية، أرسل أي نص مثل 'تخطي')"
			}
			return "الرجاء إرسال صورة الشهيد:\n\nيمكنك إضافة تعليق على الصورة إذا رغبت"
		},
	},
}

// ConversationService drives the collection flow for one user at a time.
type ConversationService struct {
	DB       *gorm.DB
	Sessions SessionRepo
	Sources  EditSourceRepo
	Files    FileResolver
	Images   ImageStore
	Sink     FlowSink
}

// NewConversationService wires a ConversationService.
func NewConversationService(db *gorm.DB, sessions SessionRepo, sources EditSourceRepo, files FileResolver, images ImageStore, sink FlowSink) *ConversationService {
	return &ConversationService{DB: db, Sessions: sessions, Sources: sources, Files: files, Images: images, Sink: sink}
}

// Start begins a fresh add flow, replacing any session the user had.
func (s *ConversationService) Start(ctx context.Context, userID string, sub domain.Submitter) (*Reply, error) {
	sess := &domain.Session{
		UserID:    userID,
		State:     domain.StateWaitingFirstName,
		Flow:      domain.FlowAdd,
		Submitter: sub,
	}
	if err := s.Sessions.SaveSession(ctx, s.DB, sess); err != nil {
		return nil, fmt.Errorf("start flow: %w", err)
	}
	return &Reply{
		Text:     "لنبدأ بإضافة شهيد جديد\n\nالرجاء إدخال الاسم الأول:",
		Keyboard: KeyboardCancel,
	}, nil
}

// StartEdit begins an edit flow against the user's own published record,
// seeding the draft with its current values.
func (s *ConversationService) StartEdit(ctx context.Context, userID string, sub domain.Submitter, martyrID string) (*Reply, error) {
	m, err := s.Sources.GetMartyrOwned(ctx, s.DB, martyrID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMartyrNotFound
		}
		return nil, fmt.Errorf("load martyr %s: %w", martyrID, err)
	}
	return s.startSeeded(ctx, userID, sub, domain.FlowEdit, m.ID, m.Payload)
}

// StartPendingEdit begins an in-place rewrite of the user's own pending
// submission.
func (s *ConversationService) StartPendingEdit(ctx context.Context, userID string, sub domain.Submitter, requestID string) (*Reply, error) {
	req, err := s.Sources.GetRequestOwned(ctx, s.DB, requestID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("load request %s: %w", requestID, err)
	}
	if req.Status != domain.StatusPending {
		return nil, ErrRequestNotPending
	}
	return s.startSeeded(ctx, userID, sub, domain.FlowPendingEdit, req.ID, req.Payload)
}

func (s *ConversationService) startSeeded(ctx context.Context, userID string, sub domain.Submitter, flow domain.FlowType, targetID string, src domain.MartyrPayload) (*Reply, error) {
	sess := &domain.Session{
		UserID:   userID,
		State:    domain.StateWaitingFirstName,
		Flow:     flow,
		TargetID: targetID,
		Draft: domain.Draft{
			FirstName:     src.NameFirst,
			FatherName:    src.NameFather,
			FamilyName:    src.NameFamily,
			BirthDate:     src.DateBirth,
			MartyrdomDate: src.DateMartyrdom,
			Place:         src.Place,
		},
		Submitter: sub,
	}
	if err := s.Sessions.SaveSession(ctx, s.DB, sess); err != nil {
		return nil, fmt.Errorf("start edit flow: %w", err)
	}
	return &Reply{
		Text: fmt.Sprintf("بدء تعديل بيانات الشهيد: <b>%s</b>\n\nالرجاء إدخال الاسم الأول الجديد (الحالي: %s):",
			src.FullName, src.NameFirst),
		Keyboard: KeyboardCancel,
	}, nil
}

// Cancel abandons the user's in-progress flow unconditionally.
func (s *ConversationService) Cancel(ctx context.Context, userID string) (*Reply, error) {
	if err := s.Sessions.DeleteSession(ctx, s.DB, userID); err != nil {
		return nil, fmt.Errorf("cancel flow: %w", err)
	}
	return &Reply{Text: "تم إلغاء العملية الحالية.", Keyboard: KeyboardMain}, nil
}

// HandleText advances the flow with one text answer. ErrNoActiveFlow means
// the text was not flow input and the caller should treat it as a command.
func (s *ConversationService) HandleText(ctx context.Context, userID, text string) (*Reply, error) {
	sess, err := s.Sessions.GetSession(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveFlow
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	if sess.State == domain.StateWaitingPhoto {
		// Any text at the photo step keeps the existing image in edit
		// flows; add flows have no image to keep.
		if sess.IsEditing() {
			return s.complete(ctx, sess, true)
		}
		return &Reply{
			Text:     "الرجاء إرسال صورة الشهيد لإتمام الطلب.",
			Keyboard: KeyboardCancel,
		}, nil
	}

	st, ok := flowSteps[sess.State]
	if !ok {
		return nil, ErrNoActiveFlow
	}

	answer := strings.TrimSpace(text)
	if answer == "" {
		return &Reply{Text: st.empty, Keyboard: KeyboardCancel}, nil
	}
	if st.isDate {
		_, canonical, err := ParseFlexibleDate(answer)
		if err != nil {
			return &Reply{
				Text:     "التنسيق غير صالح. الرجاء إدخال التاريخ بالتنسيق الصحيح (مثال: 1990/01/15)",
				Keyboard: KeyboardCancel,
			}, nil
		}
		answer = canonical
	}

	st.assign(&sess.Draft, answer)
	sess.State = st.next
	if st.onAdvance != nil {
		st.onAdvance(&sess.Draft)
	}

	if err := s.Sessions.SaveSession(ctx, s.DB, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &Reply{Text: st.prompt(&sess.Draft, sess.IsEditing()), Keyboard: KeyboardCancel}, nil
}

// HandlePhoto records the submitted photo and completes the flow.
func (s *ConversationService) HandlePhoto(ctx context.Context, userID, fileID, caption string) (*Reply, error) {
	sess, err := s.Sessions.GetSession(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveFlow
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess.State != domain.StateWaitingPhoto {
		return &Reply{Text: "يرجى اتباع الخطوات بالترتيب.", Keyboard: KeyboardCancel}, nil
	}

	sess.Draft.PhotoFileID = fileID
	sess.Draft.PhotoCaption = caption
	return s.complete(ctx, sess, false)
}

// complete assembles the payload, persists the image, routes the result to
// the moderation sink, and clears the session. Image failures leave the
// session at the photo step so the user can retry.
func (s *ConversationService) complete(ctx context.Context, sess *domain.Session, skipPhoto bool) (*Reply, error) {
	d := &sess.Draft

	imageURL, errReply := s.resolveImage(ctx, sess, skipPhoto)
	if errReply != nil {
		return errReply, nil
	}

	payload := domain.MartyrPayload{
		NameFirst:     d.FirstName,
		NameFather:    d.FatherName,
		NameFamily:    d.FamilyName,
		FullName:      strings.Join(strings.Fields(d.FirstName+" "+d.FatherName+" "+d.FamilyName), " "),
		Age:           d.Age,
		DateBirth:     d.BirthDate,
		DateMartyrdom: d.MartyrdomDate,
		Place:         d.Place,
		ImageURL:      imageURL,
	}

	var actionText string
	switch sess.Flow {
	case domain.FlowPendingEdit:
		if _, err := s.Sink.ReplacePending(ctx, sess.UserID, sess.TargetID, payload); err != nil {
			return s.completionFailure(ctx, sess, err)
		}
		actionText = "تحديث"
	case domain.FlowEdit:
		target := sess.TargetID
		if _, err := s.Sink.Submit(ctx, sess.UserID, domain.RequestEdit, &target, payload, sess.Submitter); err != nil {
			return s.completionFailure(ctx, sess, err)
		}
		actionText = "تعديل"
	default:
		if _, err := s.Sink.Submit(ctx, sess.UserID, domain.RequestAdd, nil, payload, sess.Submitter); err != nil {
			return s.completionFailure(ctx, sess, err)
		}
		actionText = "إضافة"
	}

	if err := s.Sessions.DeleteSession(ctx, s.DB, sess.UserID); err != nil {
		log.Warn().Err(err).Str("user_id", sess.UserID).Msg("clear session after completion")
	}

	reply := &Reply{Text: completionSummary(actionText, payload, sess.Flow), Keyboard: KeyboardMain}
	if !skipPhoto && d.PhotoFileID != "" {
		reply.PhotoFileID = d.PhotoFileID
	}
	return reply, nil
}

// resolveImage returns the payload image URL, or a user-facing error Reply
// when the image cannot be obtained.
func (s *ConversationService) resolveImage(ctx context.Context, sess *domain.Session, skipPhoto bool) (string, *Reply) {
	d := &sess.Draft

	if !skipPhoto && d.PhotoFileID != "" {
		srcURL, err := s.Files.FileURL(ctx, d.PhotoFileID)
		if err == nil {
			var hosted string
			hosted, err = s.Images.UploadFromURL(ctx, srcURL)
			if err == nil {
				return hosted, nil
			}
		}
		log.Warn().Err(err).Str("user_id", sess.UserID).Msg("photo upload failed")
		return "", &Reply{
			Text:     "حدث خطأ في تحميل الصورة. يرجى المحاولة مرة أخرى.",
			Keyboard: KeyboardCancel,
		}
	}

	if sess.IsEditing() {
		url, err := s.existingImage(ctx, sess)
		if err != nil || url == "" {
			log.Warn().Err(err).Str("target_id", sess.TargetID).Msg("no prior image for edit")
			return "", &Reply{
				Text:     "حدث خطأ في العثور على الصورة الأصلية. يرجى إعادة المحاولة وإرفاق صورة.",
				Keyboard: KeyboardCancel,
			}
		}
		return url, nil
	}
	return "", nil
}

func (s *ConversationService) existingImage(ctx context.Context, sess *domain.Session) (string, error) {
	if sess.Flow == domain.FlowPendingEdit {
		req, err := s.Sources.GetRequestOwned(ctx, s.DB, sess.TargetID, sess.UserID)
		if err != nil {
			return "", err
		}
		return req.Payload.ImageURL, nil
	}
	m, err := s.Sources.GetMartyrOwned(ctx, s.DB, sess.TargetID, sess.UserID)
	if err != nil {
		return "", err
	}
	return m.Payload.ImageURL, nil
}

// completionFailure maps sink errors to user replies. Duplicate submissions
// end the flow; anything else keeps the session so the user can retry.
func (s *ConversationService) completionFailure(ctx context.Context, sess *domain.Session, err error) (*Reply, error) {
	if errors.Is(err, ErrDuplicatePendingRequest) {
		if derr := s.Sessions.DeleteSession(ctx, s.DB, sess.UserID); derr != nil {
			log.Warn().Err(derr).Str("user_id", sess.UserID).Msg("clear session after duplicate")
		}
		return &Reply{
			Text:     "يوجد طلب قيد المراجعة بالفعل لهذا الشهيد.",
			Keyboard: KeyboardMain,
		}, nil
	}
	log.Error().Err(err).Str("user_id", sess.UserID).Msg("flow completion failed")
	return &Reply{
		Text:     "حدث خطأ في حفظ الطلب، يرجى المحاولة مرة أخرى",
		Keyboard: KeyboardMain,
	}, nil
}

func completionSummary(actionText string, p domain.MartyrPayload, flow domain.FlowType) string {
	orNA := func(v string) string {
		if v == "" {
			return "غير متوفر"
		}
		return v
	}
	age := "غير متوفر"
	if p.Age != nil {
		age = fmt.Sprintf("%d", *p.Age)
	}
	tail := "سيتم مراجعة طلبك من قبل الإدارة."
	if flow == domain.FlowPendingEdit {
		tail = "تم تحديث طلبك مباشرة."
	}
	return fmt.Sprintf(
		"تم إرسال طلب %s بنجاح!\n\n<b>ملخص البيانات:</b>\nالاسم: %s\nالعمر: %s\nالولادة: %s\nالاستشهاد: %s\nالمكان: %s\n\n%s",
		actionText, orNA(p.FullName), age, orNA(p.DateBirth), orNA(p.DateMartyrdom), orNA(p.Place), tail,
	)
}
