package handlers

import (
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hkarimi/telegpt/internal/bot"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// Webhook decodes front-end updates into bot events and answers with a
// webhook-reply payload, so no outbound API client is needed for plain
// text responses.
type Webhook struct {
	bot    *bot.Handler
	secret string
}

func NewWebhook(h *bot.Handler, secret string) *Webhook {
	return &Webhook{bot: h, secret: secret}
}

type updateFrom struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

type updateChat struct {
	ID int64 `json:"id"`
}

type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		From *updateFrom `json:"from"`
		Chat *updateChat `json:"chat"`
		Text string      `json:"text"`
	} `json:"message"`
	CallbackQuery *struct {
		From    *updateFrom `json:"from"`
		Message *struct {
			Chat *updateChat `json:"chat"`
		} `json:"message"`
		Data string `json:"data"`
	} `json:"callback_query"`
}

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type inlineMarkup struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

// sendMessageReply is the webhook-reply envelope: returning it as the
// response body makes the front-end deliver the message without a separate
// outbound call.
type sendMessageReply struct {
	Method      string        `json:"method"`
	ChatID      int64         `json:"chat_id"`
	Text        string        `json:"text"`
	ReplyMarkup *inlineMarkup `json:"reply_markup,omitempty"`
}

func (w *Webhook) Handle(c *gin.Context) {
	if w.secret != "" {
		got := c.GetHeader(secretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(w.secret)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "bad secret token"})
			return
		}
	}

	var upd update
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update"})
		return
	}

	ctx := c.Request.Context()

	var (
		reply  *bot.Reply
		chatID int64
		err    error
	)

	switch {
	case upd.Message != nil && upd.Message.From != nil && upd.Message.Text != "":
		chatID = upd.Message.From.ID
		if upd.Message.Chat != nil {
			chatID = upd.Message.Chat.ID
		}
		reply, err = w.bot.HandleMessage(ctx, bot.TextMessage{
			UserID:    upd.Message.From.ID,
			Username:  upd.Message.From.Username,
			FirstName: upd.Message.From.FirstName,
			Text:      upd.Message.Text,
		})

	case upd.CallbackQuery != nil && upd.CallbackQuery.From != nil:
		chatID = upd.CallbackQuery.From.ID
		if upd.CallbackQuery.Message != nil && upd.CallbackQuery.Message.Chat != nil {
			chatID = upd.CallbackQuery.Message.Chat.ID
		}
		reply, err = w.bot.HandleCallback(ctx, bot.Callback{
			UserID: upd.CallbackQuery.From.ID,
			Data:   upd.CallbackQuery.Data,
		})

	default:
		// Non-text messages (photos, stickers, voice) and unknown update
		// kinds are acknowledged and dropped.
		c.Status(http.StatusOK)
		return
	}

	if err != nil {
		// Store and parse failures abort this event; acknowledging the
		// update keeps the front-end from redelivering it forever.
		log.Printf("webhook update=%d failed: %v", upd.UpdateID, err)
		c.Status(http.StatusOK)
		return
	}
	if reply == nil {
		c.Status(http.StatusOK)
		return
	}

	out := sendMessageReply{
		Method: "sendMessage",
		ChatID: chatID,
		Text:   reply.Text,
	}
	if len(reply.Keyboard) > 0 {
		markup := &inlineMarkup{InlineKeyboard: make([][]inlineButton, 0, len(reply.Keyboard))}
		for _, row := range reply.Keyboard {
			btns := make([]inlineButton, 0, len(row))
			for _, b := range row {
				btns = append(btns, inlineButton{Text: b.Text, CallbackData: b.Data})
			}
			markup.InlineKeyboard = append(markup.InlineKeyboard, btns)
		}
		out.ReplyMarkup = markup
	}
	c.JSON(http.StatusOK, out)
}
