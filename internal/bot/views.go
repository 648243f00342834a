// Package bot – views
//
// All user-facing rendering: menu keyboards, command copy, the user's
// request and addition listings, the admin review queue, and system stats.
// Everything here is pure formatting; nothing talks to storage or the
// network.
package bot

import (
	"fmt"

	"github.com/devyouns/martyrs-gallery-bot/internal/domain"
	"github.com/devyouns/martyrs-gallery-bot/internal/services"
	"github.com/devyouns/martyrs-gallery-bot/internal/telegram"
)

// Menu button labels double as commands: pressing a reply-keyboard button
// sends its label as a plain text message.
const (
	cmdStart       = "/start"
	cmdHelp        = "/help"
	cmdCancel      = "/cancel"
	cmdMyRequests  = "/my_requests"
	cmdUpload      = "/upload"
	cmdReview      = "/review"
	cmdStats       = "/stats"
	cmdApprove     = "/approve"
	cmdReject      = "/reject"
	btnAdd         = "إضافة شهيد جديد"
	btnMyRequests  = "عرض طلباتي"
	btnMyAdditions = "عرض اضافاتي"
	btnHelp        = "مساعدة"
	btnCancel      = "إلغاء"
	btnStats       = "عرض إحصائيات النظام"
)

// Message is one outbound unit a view produces. When PhotoFileID or
// PhotoURL is set the text becomes the photo caption.
type Message struct {
	Text        string
	PhotoFileID string
	PhotoURL    string
	ReplyMarkup any
}

func mainKeyboard() *telegram.ReplyKeyboardMarkup {
	return &telegram.ReplyKeyboardMarkup{
		Keyboard: [][]telegram.KeyboardButton{
			{{Text: btnAdd}},
			{{Text: btnMyRequests}},
			{{Text: btnMyAdditions}},
			{{Text: btnHelp}},
		},
		ResizeKeyboard: true,
	}
}

func adminKeyboard() *telegram.ReplyKeyboardMarkup {
	kb := mainKeyboard()
	kb.Keyboard = append(kb.Keyboard,
		[]telegram.KeyboardButton{{Text: cmdReview}},
		[]telegram.KeyboardButton{{Text: btnStats}},
	)
	return kb
}

func cancelKeyboard() *telegram.ReplyKeyboardMarkup {
	return &telegram.ReplyKeyboardMarkup{
		Keyboard:       [][]telegram.KeyboardButton{{{Text: btnCancel}}},
		ResizeKeyboard: true,
	}
}

// markupFor maps a flow keyboard hint to concrete reply markup.
func markupFor(k services.Keyboard, admin bool) any {
	switch k {
	case services.KeyboardCancel:
		return cancelKeyboard()
	case services.KeyboardMain:
		if admin {
			return adminKeyboard()
		}
		return mainKeyboard()
	default:
		return nil
	}
}

func welcomeView(admin bool) Message {
	text := "أهلاً وسهلاً بك في بوت معرض شهداء الساحل السوري\n\n" +
		"يمكنك من خلال هذا البوت إضافة شهيد جديد إلى المعرض، ومتابعة حالة طلباتك، وطلب تعديل أو حذف ما أضفته.\n\n" +
		"اختر ما تريد من الأزرار أدناه."
	m := Message{Text: text, ReplyMarkup: mainKeyboard()}
	if admin {
		m.Text += "\n\n<b>أوامر الإدارة:</b>\n/review - مراجعة الطلبات المعلقة\n/stats - عرض إحصائيات النظام"
		m.ReplyMarkup = adminKeyboard()
	}
	return m
}

func helpView(admin bool) Message {
	text := "مساعدة بوت معرض شهداء الساحل السوري\n\n" +
		"<b>إضافة شهيد جديد:</b>\nيمكنك إضافة شهيد جديد باتباع الخطوات المطلوبة\n\n" +
		"<b>عرض طلباتي:</b>\nيمكنك مشاهدة حالة جميع طلباتك المقدمة، وتعديل أو سحب ما يزال قيد المراجعة.\n\n" +
		"<b>عرض اضافاتي:</b>\nيمكنك مشاهدة الشهداء المنشورين الذين أضفتهم، وطلب تعديل بياناتهم أو حذفهم.\n\n" +
		"للمساعدة الإضافية، تواصل مع المدير: @DevYouns"
	if admin {
		text += "\n\n<b>أوامر الإدارة:</b>\n" +
			"✅ <b>/approve [request_id]</b> - قبول طلب محدد\n" +
			"❌ <b>/reject [request_id]</b> - رفض طلب محدد\n" +
			"/review - مراجعة الطلبات المعلقة\n" +
			"/stats - عرض إحصائيات النظام"
	}
	return Message{Text: text, ReplyMarkup: mainKeyboard()}
}

// myRequestsView lists the user's submissions: pending entries carry
// in-place edit and withdraw buttons, rejected entries carry a withdraw
// button, approved entries appear as history lines.
func myRequestsView(requests []domain.SubmissionRequest) []Message {
	if len(requests) == 0 {
		return []Message{{
			Text:        "لا توجد طلبات مقدمة من قبلك حتى الآن",
			ReplyMarkup: mainKeyboard(),
		}}
	}

	var out []Message
	out = append(out, Message{Text: "<b>طلباتك المقدمة:</b>"})
	for _, req := range requests {
		name := req.Payload.FullName
		if name == "" {
			name = "غير محدد"
		}
		line := fmt.Sprintf("%s <b>%s</b> (طلب %s)\n   الحالة: %s",
			statusEmoji(req.Status), name, typeText(req.Type), statusText(req.Status))

		m := Message{Text: line}
		switch req.Status {
		case domain.StatusPending:
			m.ReplyMarkup = &telegram.InlineKeyboardMarkup{
				InlineKeyboard: [][]telegram.InlineKeyboardButton{{
					{Text: "✏️ تعديل الطلب", CallbackData: EncodeCallback(Callback{Action: ActionPendingEdit, EntityID: req.ID})},
					{Text: "🗑️ سحب الطلب", CallbackData: EncodeCallback(Callback{Action: ActionPendingDelete, EntityID: req.ID})},
				}},
			}
		case domain.StatusRejected:
			m.ReplyMarkup = &telegram.InlineKeyboardMarkup{
				InlineKeyboard: [][]telegram.InlineKeyboardButton{{
					{Text: "🗑️ حذف الطلب", CallbackData: EncodeCallback(Callback{Action: ActionRejectedDelete, EntityID: req.ID})},
				}},
			}
		}
		out = append(out, m)
	}
	return out
}

// myAdditionsView lists the user's published records with edit and delete
// request buttons.
func myAdditionsView(martyrs []domain.Martyr) []Message {
	if len(martyrs) == 0 {
		return []Message{{
			Text:        "لم تقم بإضافة أي شهيد حتى الآن.",
			ReplyMarkup: mainKeyboard(),
		}}
	}

	var out []Message
	out = append(out, Message{Text: "<b>الشهداء الذين أضفتهم:</b>\n\nيمكنك طلب تعديل بياناتهم أو حذفهم."})
	for _, m := range martyrs {
		name := m.Payload.FullName
		if name == "" {
			name = "غير محدد"
		}
		out = append(out, Message{
			Text: fmt.Sprintf("<b>%s</b>\n\nاختر الإجراء الذي تريده:", name),
			ReplyMarkup: &telegram.InlineKeyboardMarkup{
				InlineKeyboard: [][]telegram.InlineKeyboardButton{{
					{Text: "✏️ تعديل", CallbackData: EncodeCallback(Callback{Action: ActionEdit, EntityID: m.ID})},
					{Text: "🗑️ حذف", CallbackData: EncodeCallback(Callback{Action: ActionDelete, EntityID: m.ID})},
				}},
			},
		})
	}
	return out
}

// reviewQueueView renders the pending queue for the admin, one message per
// request with approve/reject buttons and the hosted photo when available.
func reviewQueueView(requests []domain.SubmissionRequest) []Message {
	if len(requests) == 0 {
		return []Message{{Text: "لا توجد طلبات معلقة للمراجعة في الوقت الحالي."}}
	}

	var out []Message
	for _, req := range requests {
		p := req.Payload
		age := "غير متوفر"
		if p.Age != nil {
			age = fmt.Sprintf("%d", *p.Age)
		}
		summary := fmt.Sprintf(
			"<b>طلب %s للمراجعة</b>\n\n<b>ID:</b> <code>%s</code>\n<b>الاسم:</b> %s\n<b>العمر:</b> %s\n<b>تاريخ الولادة:</b> %s\n<b>تاريخ الاستشهاد:</b> %s\n<b>مكان الاستشهاد:</b> %s\n\n<b>مقدم الطلب:</b> %s %s (@%s)\n<b>ID المستخدم:</b> <code>%s</code>",
			typeText(req.Type), req.ID, orUnset(p.FullName), age, orNA(p.DateBirth), orNA(p.DateMartyrdom), orNA(p.Place),
			req.Submitter.FirstName, req.Submitter.LastName, req.Submitter.Username, req.UserID,
		)
		out = append(out, Message{
			Text:     summary,
			PhotoURL: p.ImageURL,
			ReplyMarkup: &telegram.InlineKeyboardMarkup{
				InlineKeyboard: [][]telegram.InlineKeyboardButton{{
					{Text: "✅ قبول", CallbackData: EncodeCallback(Callback{Action: ActionApprove, EntityID: req.ID, Params: []string{req.UserID}})},
					{Text: "❌ رفض", CallbackData: EncodeCallback(Callback{Action: ActionReject, EntityID: req.ID, Params: []string{req.UserID}})},
				}},
			},
		})
	}
	return out
}

func statsView(st *services.Stats) Message {
	approvalRate := 0
	if st.TotalRequests > 0 {
		approvalRate = int(st.Approved * 100 / st.TotalRequests)
	}
	return Message{Text: fmt.Sprintf(
		"📊 <b>إحصائيات النظام</b>\n\n<b>الطلبات:</b>\nإجمالي الطلبات: %d\n⏳ قيد المراجعة: %d\n✅ تم القبول: %d\n❌ تم الرفض: %d\n\n<b>الشهداء:</b>\nإجمالي الشهداء المسجلين: %d\n\nنسبة القبول: %d%%",
		st.TotalRequests, st.Pending, st.Approved, st.Rejected, st.TotalMartyrs, approvalRate,
	)}
}

func statusEmoji(s domain.RequestStatus) string {
	switch s {
	case domain.StatusPending:
		return "⏳"
	case domain.StatusApproved:
		return "✅"
	default:
		return "❌"
	}
}

func statusText(s domain.RequestStatus) string {
	switch s {
	case domain.StatusPending:
		return "قيد المراجعة"
	case domain.StatusApproved:
		return "تم القبول"
	default:
		return "تم الرفض"
	}
}

func typeText(t domain.RequestType) string {
	switch t {
	case domain.RequestEdit:
		return "تعديل"
	case domain.RequestDelete:
		return "حذف"
	default:
		return "إضافة"
	}
}

func orNA(v string) string {
	if v == "" {
		return "غير متوفر"
	}
	return v
}

func orUnset(v string) string {
	if v == "" {
		return "غير محدد"
	}
	return v
}
