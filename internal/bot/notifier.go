package bot

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/devyouns/martyrs-gallery-bot/internal/telegram"
)

// TelegramNotifier delivers workflow notifications over the Bot API.
// Delivery failures are logged and swallowed: notifications run after the
// state they announce has committed and must never undo it.
type TelegramNotifier struct {
	Client  Sender
	AdminID string
}

// NewTelegramNotifier wires a TelegramNotifier.
func NewTelegramNotifier(client Sender, adminID string) *TelegramNotifier {
	return &TelegramNotifier{Client: client, AdminID: adminID}
}

// NotifyAdmin sends text to the configured admin chat.
func (n *TelegramNotifier) NotifyAdmin(ctx context.Context, text string) {
	n.NotifyUser(ctx, n.AdminID, text)
}

// NotifyUser sends text to a user chat.
func (n *TelegramNotifier) NotifyUser(ctx context.Context, userID, text string) {
	if userID == "" {
		return
	}
	err := n.Client.SendMessage(ctx, telegram.SendMessageParams{ChatID: userID, Text: text})
	if err != nil {
		log.Warn().Err(err).Str("chat_id", userID).Msg("notification delivery failed")
	}
}
