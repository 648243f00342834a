// Package bot – Dispatcher
//
// The dispatcher is the single entry point for inbound updates. Order
// matters: the abuse guard runs before anything else and a blocked sender
// gets no reply of any kind. Then admin commands (gated on the configured
// admin id), menu commands, flow input, and inline-button callbacks.
//
// Handler errors are terminal here: they are logged and turned into an
// Arabic error reply, never propagated to the transport, so the webhook can
// acknowledge every delivery.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/devyouns/martyrs-gallery-bot/internal/domain"
	"github.com/devyouns/martyrs-gallery-bot/internal/services"
	"github.com/devyouns/martyrs-gallery-bot/internal/telegram"
)

// Sender is the outbound transport contract.
type Sender interface {
	SendMessage(ctx context.Context, p telegram.SendMessageParams) error
	SendPhoto(ctx context.Context, p telegram.SendPhotoParams) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
}

// Guard admits or silently drops inbound events.
type Guard interface {
	Admit(ctx context.Context, userID string) (bool, error)
}

// Flow drives the multi-step collection conversation.
type Flow interface {
	Start(ctx context.Context, userID string, sub domain.Submitter) (*services.Reply, error)
	StartEdit(ctx context.Context, userID string, sub domain.Submitter, martyrID string) (*services.Reply, error)
	StartPendingEdit(ctx context.Context, userID string, sub domain.Submitter, requestID string) (*services.Reply, error)
	Cancel(ctx context.Context, userID string) (*services.Reply, error)
	HandleText(ctx context.Context, userID, text string) (*services.Reply, error)
	HandlePhoto(ctx context.Context, userID, fileID, caption string) (*services.Reply, error)
}

// Moderation is the review workflow surface the dispatcher drives.
type Moderation interface {
	RequestDelete(ctx context.Context, userID, martyrID string, sub domain.Submitter) (*domain.SubmissionRequest, error)
	PendingForTarget(ctx context.Context, targetID string) (*domain.SubmissionRequest, error)
	Approve(ctx context.Context, requestID string) (*domain.SubmissionRequest, error)
	Reject(ctx context.Context, requestID string) (*domain.SubmissionRequest, error)
	WithdrawOwn(ctx context.Context, userID, requestID string) error
	ListPendingForReview(ctx context.Context, offset, limit int) ([]domain.SubmissionRequest, error)
	ListUserRequests(ctx context.Context, userID string, statuses ...domain.RequestStatus) ([]domain.SubmissionRequest, error)
	ListUserMartyrs(ctx context.Context, userID string) ([]domain.Martyr, error)
	SystemStats(ctx context.Context) (*services.Stats, error)
}

// Dispatcher routes one update at a time.
type Dispatcher struct {
	Client  Sender
	Guard   Guard
	Flow    Flow
	Mod     Moderation
	AdminID string

	// ReviewPageSize caps one /review sweep.
	ReviewPageSize int
}

// NewDispatcher wires a Dispatcher.
func NewDispatcher(client Sender, guard Guard, flow Flow, mod Moderation, adminID string) *Dispatcher {
	return &Dispatcher{Client: client, Guard: guard, Flow: flow, Mod: mod, AdminID: adminID, ReviewPageSize: 20}
}

// Dispatch handles one inbound update end to end. It returns an error only
// for infrastructure failures; user-level failures become replies.
func (d *Dispatcher) Dispatch(ctx context.Context, upd *telegram.Update) error {
	userID := upd.SenderID()
	if userID == "" {
		return nil
	}

	ok, err := d.Guard.Admit(ctx, userID)
	if err != nil {
		return fmt.Errorf("guard: %w", err)
	}
	if !ok {
		log.Debug().Str("user_id", userID).Msg("update dropped by abuse guard")
		return nil
	}

	if upd.CallbackQuery != nil {
		return d.handleCallback(ctx, userID, upd.CallbackQuery)
	}
	if upd.Message == nil {
		return nil
	}

	chatID := itoa(upd.Message.Chat.ID)
	sub := submitterFrom(upd.Sender())

	if photo := upd.Message.LargestPhoto(); photo != nil {
		reply, err := d.Flow.HandlePhoto(ctx, userID, photo.FileID, upd.Message.Caption)
		if errors.Is(err, services.ErrNoActiveFlow) {
			return d.sendText(ctx, chatID, "لا توجد عملية جارية.", d.menuFor(userID))
		}
		if err != nil {
			return d.failure(ctx, chatID, userID, err)
		}
		return d.sendReply(ctx, chatID, userID, reply)
	}

	return d.handleText(ctx, chatID, userID, sub, strings.TrimSpace(upd.Message.Text))
}

func (d *Dispatcher) handleText(ctx context.Context, chatID, userID string, sub domain.Submitter, text string) error {
	if userID == d.AdminID {
		if handled, err := d.handleAdminCommand(ctx, chatID, text); handled {
			return err
		}
	}

	switch text {
	case cmdStart:
		if _, err := d.Flow.Cancel(ctx, userID); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("clear session on /start")
		}
		m := welcomeView(userID == d.AdminID)
		return d.sendMessages(ctx, chatID, m)
	case btnAdd, cmdUpload:
		reply, err := d.Flow.Start(ctx, userID, sub)
		if err != nil {
			return d.failure(ctx, chatID, userID, err)
		}
		return d.sendReply(ctx, chatID, userID, reply)
	case btnHelp, cmdHelp:
		return d.sendMessages(ctx, chatID, helpView(userID == d.AdminID))
	case btnMyRequests, cmdMyRequests:
		requests, err := d.Mod.ListUserRequests(ctx, userID)
		if err != nil {
			return d.failure(ctx, chatID, userID, err)
		}
		return d.sendMessages(ctx, chatID, myRequestsView(requests)...)
	case btnMyAdditions:
		martyrs, err := d.Mod.ListUserMartyrs(ctx, userID)
		if err != nil {
			return d.failure(ctx, chatID, userID, err)
		}
		return d.sendMessages(ctx, chatID, myAdditionsView(martyrs)...)
	case btnCancel, cmdCancel:
		reply, err := d.Flow.Cancel(ctx, userID)
		if err != nil {
			return d.failure(ctx, chatID, userID, err)
		}
		return d.sendReply(ctx, chatID, userID, reply)
	}

	reply, err := d.Flow.HandleText(ctx, userID, text)
	if errors.Is(err, services.ErrNoActiveFlow) {
		return d.sendText(ctx, chatID, "لا توجد عملية جارية.", d.menuFor(userID))
	}
	if err != nil {
		return d.failure(ctx, chatID, userID, err)
	}
	return d.sendReply(ctx, chatID, userID, reply)
}

// handleAdminCommand returns handled=false for text that is not an admin
// command, letting the regular routing take over.
func (d *Dispatcher) handleAdminCommand(ctx context.Context, chatID, text string) (bool, error) {
	switch {
	case text == cmdReview:
		pending, err := d.Mod.ListPendingForReview(ctx, 0, d.ReviewPageSize)
		if err != nil {
			return true, d.failure(ctx, chatID, d.AdminID, err)
		}
		return true, d.sendMessages(ctx, chatID, reviewQueueView(pending)...)

	case text == cmdStats || text == btnStats:
		st, err := d.Mod.SystemStats(ctx)
		if err != nil {
			return true, d.failure(ctx, chatID, d.AdminID, err)
		}
		return true, d.sendMessages(ctx, chatID, statsView(st))

	case strings.HasPrefix(text, cmdApprove):
		fields := strings.Fields(text)
		if len(fields) < 2 {
			return true, d.sendText(ctx, chatID, "صيغة الأمر غير صحيحة. الصيغة الصحيحة: /approve [request_id]", nil)
		}
		return true, d.decide(ctx, chatID, fields[1], true)

	case strings.HasPrefix(text, cmdReject):
		fields := strings.Fields(text)
		if len(fields) < 2 {
			return true, d.sendText(ctx, chatID, "صيغة الأمر غير صحيحة. الصيغة الصحيحة: /reject [request_id]", nil)
		}
		return true, d.decide(ctx, chatID, fields[1], false)
	}
	return false, nil
}

// decide applies one review decision and reports the outcome to the admin.
func (d *Dispatcher) decide(ctx context.Context, chatID, requestID string, approve bool) error {
	var err error
	if approve {
		_, err = d.Mod.Approve(ctx, requestID)
	} else {
		_, err = d.Mod.Reject(ctx, requestID)
	}
	switch {
	case err == nil:
		if approve {
			return d.sendText(ctx, chatID, fmt.Sprintf("✅ تم قبول الطلب <code>%s</code> بنجاح.", requestID), nil)
		}
		return d.sendText(ctx, chatID, fmt.Sprintf("❌ تم رفض الطلب <code>%s</code> بنجاح.", requestID), nil)
	case errors.Is(err, services.ErrRequestNotFound):
		return d.sendText(ctx, chatID, fmt.Sprintf("لم يتم العثور على الطلب <code>%s</code>.", requestID), nil)
	case errors.Is(err, services.ErrRequestNotPending):
		return d.sendText(ctx, chatID, fmt.Sprintf("الطلب <code>%s</code> تمت مراجعته مسبقاً بنتيجة مختلفة.", requestID), nil)
	default:
		log.Error().Err(err).Str("request_id", requestID).Msg("review decision failed")
		return d.sendText(ctx, chatID, fmt.Sprintf("❌ حدث خطأ في معالجة الطلب <code>%s</code>.", requestID), nil)
	}
}

func (d *Dispatcher) handleCallback(ctx context.Context, userID string, cq *telegram.CallbackQuery) error {
	chatID := userID
	if cq.Message != nil {
		chatID = itoa(cq.Message.Chat.ID)
	}

	cb, err := DecodeCallback(cq.Data)
	if err != nil {
		log.Warn().Err(err).Str("data", cq.Data).Msg("undecodable callback")
		return d.answer(ctx, cq.ID, "❌ بيانات غير صحيحة")
	}
	if err := d.answer(ctx, cq.ID, "جاري معالجة طلبك..."); err != nil {
		log.Warn().Err(err).Msg("answer callback query")
	}

	sub := submitterFrom(&cq.From)

	switch cb.Action {
	case ActionApprove, ActionReject:
		if userID != d.AdminID {
			return d.sendText(ctx, chatID, "هذا الإجراء متاح للإدارة فقط.", nil)
		}
		return d.decide(ctx, chatID, cb.EntityID, cb.Action == ActionApprove)

	case ActionEdit:
		if reply := d.occupiedTarget(ctx, cb.EntityID); reply != "" {
			return d.sendText(ctx, chatID, reply, nil)
		}
		reply, err := d.Flow.StartEdit(ctx, userID, sub, cb.EntityID)
		if errors.Is(err, services.ErrMartyrNotFound) {
			return d.sendText(ctx, chatID, "لم يتم العثور على الشهيد أو لا تملك صلاحية الوصول إليه.", nil)
		}
		if err != nil {
			return d.failure(ctx, chatID, userID, err)
		}
		return d.sendReply(ctx, chatID, userID, reply)

	case ActionDelete:
		req, err := d.Mod.RequestDelete(ctx, userID, cb.EntityID, sub)
		switch {
		case errors.Is(err, services.ErrMartyrNotFound):
			return d.sendText(ctx, chatID, "لم يتم العثور على الشهيد أو لا تملك صلاحية الوصول إليه.", nil)
		case errors.Is(err, services.ErrDuplicatePendingRequest):
			return d.sendText(ctx, chatID, occupiedText(req), nil)
		case err != nil:
			log.Error().Err(err).Str("martyr_id", cb.EntityID).Msg("create delete request")
			return d.sendText(ctx, chatID, "حدث خطأ أثناء إنشاء طلب الحذف.", nil)
		}
		return d.sendText(ctx, chatID,
			fmt.Sprintf("تم إرسال طلب لحذف الشهيد \"<b>%s</b>\".", orUnset(req.Payload.FullName)), nil)

	case ActionPendingEdit:
		reply, err := d.Flow.StartPendingEdit(ctx, userID, sub, cb.EntityID)
		switch {
		case errors.Is(err, services.ErrRequestNotFound), errors.Is(err, services.ErrRequestNotPending):
			return d.sendText(ctx, chatID, "لم يتم العثور على الطلب أو لا تملك صلاحية الوصول إليه.", nil)
		case err != nil:
			return d.failure(ctx, chatID, userID, err)
		}
		return d.sendReply(ctx, chatID, userID, reply)

	case ActionPendingDelete, ActionRejectedDelete:
		err := d.Mod.WithdrawOwn(ctx, userID, cb.EntityID)
		switch {
		case err == nil:
			return d.sendText(ctx, chatID, "تم حذف الطلب بنجاح.", nil)
		case errors.Is(err, services.ErrRequestNotFound), errors.Is(err, services.ErrRequestNotPending):
			return d.sendText(ctx, chatID, "لم يتم العثور على الطلب أو لا تملك صلاحية الوصول إليه.", nil)
		default:
			log.Error().Err(err).Str("request_id", cb.EntityID).Msg("withdraw request")
			return d.sendText(ctx, chatID, "حدث خطأ أثناء حذف الطلب.", nil)
		}
	}
	return nil
}

// occupiedTarget returns the duplicate-pending message for targetID, or ""
// when the target is free.
func (d *Dispatcher) occupiedTarget(ctx context.Context, targetID string) string {
	existing, err := d.Mod.PendingForTarget(ctx, targetID)
	if err != nil {
		return ""
	}
	return occupiedText(existing)
}

func occupiedText(existing *domain.SubmissionRequest) string {
	if existing == nil {
		return "يوجد طلب قيد المراجعة بالفعل لهذا الشهيد."
	}
	return fmt.Sprintf("يوجد طلب %s قيد المراجعة بالفعل لهذا الشهيد.", typeText(existing.Type))
}

func (d *Dispatcher) failure(ctx context.Context, chatID, userID string, err error) error {
	log.Error().Err(err).Str("user_id", userID).Msg("update handling failed")
	return d.sendText(ctx, chatID, "حدث خطأ في معالجة رسالتك. يرجى المحاولة مرة أخرى.", d.menuFor(userID))
}

func (d *Dispatcher) menuFor(userID string) any {
	if userID == d.AdminID {
		return adminKeyboard()
	}
	return mainKeyboard()
}

func (d *Dispatcher) sendReply(ctx context.Context, chatID, userID string, reply *services.Reply) error {
	if reply == nil {
		return nil
	}
	markup := markupFor(reply.Keyboard, userID == d.AdminID)
	if reply.PhotoFileID != "" {
		return d.Client.SendPhoto(ctx, telegram.SendPhotoParams{
			ChatID: chatID, Photo: reply.PhotoFileID, Caption: reply.Text, ReplyMarkup: markup,
		})
	}
	return d.Client.SendMessage(ctx, telegram.SendMessageParams{
		ChatID: chatID, Text: reply.Text, ReplyMarkup: markup,
	})
}

func (d *Dispatcher) sendMessages(ctx context.Context, chatID string, msgs ...Message) error {
	for _, m := range msgs {
		var err error
		switch {
		case m.PhotoURL != "":
			err = d.Client.SendPhoto(ctx, telegram.SendPhotoParams{
				ChatID: chatID, Photo: m.PhotoURL, Caption: m.Text, ReplyMarkup: m.ReplyMarkup,
			})
		case m.PhotoFileID != "":
			err = d.Client.SendPhoto(ctx, telegram.SendPhotoParams{
				ChatID: chatID, Photo: m.PhotoFileID, Caption: m.Text, ReplyMarkup: m.ReplyMarkup,
			})
		default:
			err = d.Client.SendMessage(ctx, telegram.SendMessageParams{
				ChatID: chatID, Text: m.Text, ReplyMarkup: m.ReplyMarkup,
			})
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) sendText(ctx context.Context, chatID, text string, markup any) error {
	return d.Client.SendMessage(ctx, telegram.SendMessageParams{ChatID: chatID, Text: text, ReplyMarkup: markup})
}

func (d *Dispatcher) answer(ctx context.Context, callbackID, text string) error {
	return d.Client.AnswerCallbackQuery(ctx, callbackID, text)
}

func itoa(id int64) string { return fmt.Sprintf("%d", id) }

func submitterFrom(u *telegram.User) domain.Submitter {
	if u == nil {
		return domain.Submitter{}
	}
	return domain.Submitter{
		TelegramID: itoa(u.ID),
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Username:   u.Username,
	}
}
