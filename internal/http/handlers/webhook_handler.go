// Telegram webhook handler.
//
// Telegram redelivers a webhook update until it receives a 2xx, so the
// handler acknowledges every well-formed delivery even when processing
// fails: a handler error is logged and swallowed rather than turned into a
// retry storm. Only a malformed body (which cannot have come from Telegram)
// is rejected.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/devyouns/martyrs-gallery-bot/internal/http/middleware"
	"github.com/devyouns/martyrs-gallery-bot/internal/telegram"
)

// UpdateDispatcher routes one inbound Telegram update.
type UpdateDispatcher interface {
	Dispatch(ctx context.Context, upd *telegram.Update) error
}

// WebhookHandler accepts Telegram webhook deliveries.
type WebhookHandler struct {
	dispatcher UpdateDispatcher
}

// NewWebhookHandler wires a WebhookHandler.
func NewWebhookHandler(d UpdateDispatcher) *WebhookHandler {
	return &WebhookHandler{dispatcher: d}
}

// Receive decodes one update and hands it to the dispatcher.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var upd telegram.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid update body")
		return
	}

	if err := h.dispatcher.Dispatch(c.Request.Context(), &upd); err != nil {
		lg := middleware.LoggerFrom(c)
		lg.Error().Err(err).Int64("update_id", upd.UpdateID).Msg("dispatch update")
	}
	ok(c, http.StatusOK, gin.H{"ok": true})
}
