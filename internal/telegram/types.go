// Package telegram implements a minimal Bot API client covering the calls
// the gallery bot needs: sending text and photo messages with inline or
// reply keyboards, answering callback queries, and resolving file download
// URLs. Wire types mirror the Bot API JSON shapes.
package telegram

import "strconv"

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

// Update is a single inbound event delivered to the webhook endpoint.
// Exactly one of Message or CallbackQuery is set.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// Message is an inbound chat message.
type Message struct {
	MessageID int64       `json:"message_id"`
	From      *User       `json:"from,omitempty"`
	Chat      Chat        `json:"chat"`
	Text      string      `json:"text,omitempty"`
	Caption   string      `json:"caption,omitempty"`
	Photo     []PhotoSize `json:"photo,omitempty"`
}

// CallbackQuery is a button press on an inline keyboard.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

// User identifies a Telegram account.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// Chat identifies a conversation.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// PhotoSize is one resolution variant of an uploaded photo. The Bot API
// sends variants ordered smallest first; the last element is the largest.
type PhotoSize struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	FileSize     int64  `json:"file_size,omitempty"`
}

// File is the getFile response payload.
type File struct {
	FileID   string `json:"file_id"`
	FilePath string `json:"file_path"`
	FileSize int64  `json:"file_size,omitempty"`
}

// InlineKeyboardButton is a single callback button.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	URL          string `json:"url,omitempty"`
}

// InlineKeyboardMarkup attaches callback buttons to a message.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// KeyboardButton is a single reply-keyboard button.
type KeyboardButton struct {
	Text string `json:"text"`
}

// ReplyKeyboardMarkup replaces the user's keyboard with preset choices.
type ReplyKeyboardMarkup struct {
	Keyboard       [][]KeyboardButton `json:"keyboard"`
	ResizeKeyboard bool               `json:"resize_keyboard,omitempty"`
	OneTime        bool               `json:"one_time_keyboard,omitempty"`
}

// ReplyKeyboardRemove clears a previously sent reply keyboard.
type ReplyKeyboardRemove struct {
	RemoveKeyboard bool `json:"remove_keyboard"`
}

// SenderID returns the stringified user id of the update's originator, or
// "" when the update carries no sender.
func (u *Update) SenderID() string {
	if u.CallbackQuery != nil {
		return itoa(u.CallbackQuery.From.ID)
	}
	if u.Message != nil && u.Message.From != nil {
		return itoa(u.Message.From.ID)
	}
	return ""
}

// Sender returns the originating user, or nil.
func (u *Update) Sender() *User {
	if u.CallbackQuery != nil {
		return &u.CallbackQuery.From
	}
	if u.Message != nil {
		return u.Message.From
	}
	return nil
}

// LargestPhoto returns the highest-resolution variant of a message's photo,
// or nil when the message carries none.
func (m *Message) LargestPhoto() *PhotoSize {
	if m == nil || len(m.Photo) == 0 {
		return nil
	}
	best := &m.Photo[0]
	for i := range m.Photo {
		if m.Photo[i].Width*m.Photo[i].Height > best.Width*best.Height {
			best = &m.Photo[i]
		}
	}
	return best
}
