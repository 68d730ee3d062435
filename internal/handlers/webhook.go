package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vkrlab/briefbot/internal/bot"
	"github.com/vkrlab/briefbot/internal/clients/telegram"
	"github.com/vkrlab/briefbot/internal/pkg/logger"
)

// WebhookHandler accepts Bot API webhook posts as an alternative to long
// polling. Updates are acknowledged immediately; failures surface to the
// user through the bot, not through the webhook response.
type WebhookHandler struct {
	log        *logger.Logger
	dispatcher *bot.Dispatcher
}

func NewWebhookHandler(log *logger.Logger, dispatcher *bot.Dispatcher) *WebhookHandler {
	return &WebhookHandler{log: log.With("handler", "WebhookHandler"), dispatcher: dispatcher}
}

func (h *WebhookHandler) Receive(c *gin.Context) {
	var upd telegram.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		h.log.Warn("Malformed webhook payload", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed update"})
		return
	}
	h.dispatcher.HandleUpdate(c.Request.Context(), upd)
	c.Status(http.StatusOK)
}
