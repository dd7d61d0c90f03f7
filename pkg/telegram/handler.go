package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dskvich/pmc-assistant/pkg/domain"
	"github.com/dskvich/pmc-assistant/pkg/logger"
	"github.com/dskvich/pmc-assistant/pkg/metrics"
	"github.com/dskvich/pmc-assistant/pkg/render"
)

const (
	channelTelegram = "telegram"

	greeting = "Namaskar! I answer questions about Pune Municipal Corporation services in English or Marathi. " +
		"Send /new to start a fresh conversation.\n\n" +
		"नमस्कार! पुणे महानगरपालिकेच्या सेवांबद्दल इंग्रजी किंवा मराठीत प्रश्न विचारा."
	resetDone = "Started a new conversation. / नवीन संवाद सुरू केला."
)

type Answerer interface {
	Answer(ctx context.Context, sessionID, query string) (domain.Answer, error)
	Reset(ctx context.Context, sessionID string) error
}

type handler struct {
	answerer   Answerer
	responseCh chan<- domain.Response
}

func NewHandler(answerer Answerer, responseCh chan<- domain.Response) *handler {
	return &handler{
		answerer:   answerer,
		responseCh: responseCh,
	}
}

// SessionID scopes a Telegram chat to its own conversation.
func SessionID(chatID int64) string {
	return fmt.Sprintf("telegram-%d", chatID)
}

func (h *handler) HandleUpdate(ctx context.Context, update *tgbotapi.Update) {
	msg := update.Message
	if msg == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}

	switch msg.Command() {
	case "start":
		h.reply(msg, domain.Response{Text: greeting})
	case "new":
		h.reset(ctx, msg)
	case "":
		h.answer(ctx, msg)
	default:
		slog.InfoContext(ctx, "Ignoring unknown command", "command", msg.Command())
	}
}

func (h *handler) answer(ctx context.Context, msg *tgbotapi.Message) {
	sessionID := SessionID(msg.Chat.ID)

	ans, err := h.answerer.Answer(ctx, sessionID, msg.Text)
	metrics.ChatRequests.WithLabelValues(channelTelegram, metrics.Outcome(err)).Inc()
	if err != nil {
		slog.ErrorContext(ctx, "Failed to answer telegram message", "sessionID", sessionID, logger.Err(err))
		h.reply(msg, domain.Response{Language: ans.Language, Err: err})
		return
	}

	h.reply(msg, domain.Response{Text: render.PlainText(ans.Text), Language: ans.Language})
}

func (h *handler) reset(ctx context.Context, msg *tgbotapi.Message) {
	if err := h.answerer.Reset(ctx, SessionID(msg.Chat.ID)); err != nil {
		slog.ErrorContext(ctx, "Failed to reset session", "chatID", msg.Chat.ID, logger.Err(err))
		h.reply(msg, domain.Response{Err: err})
		return
	}
	h.reply(msg, domain.Response{Text: resetDone})
}

func (h *handler) reply(msg *tgbotapi.Message, response domain.Response) {
	response.ChatID = msg.Chat.ID
	response.ReplyToMessageID = msg.MessageID
	h.responseCh <- response
}
