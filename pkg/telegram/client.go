package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"

	"github.com/dskvich/pmc-assistant/pkg/domain"
	"github.com/dskvich/pmc-assistant/pkg/logger"
)

// maxMessageRunes is the Telegram limit for a single text message.
const maxMessageRunes = 4096

type client struct {
	bot       *tgbotapi.BotAPI
	updatesCh tgbotapi.UpdatesChannel
}

func NewClient(token string) (*client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating bot api instance: %w", err)
	}

	slog.Info("Authorized on telegram", "account", bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	return &client{
		bot:       bot,
		updatesCh: bot.GetUpdatesChan(u),
	}, nil
}

func (c *client) GetUpdates() tgbotapi.UpdatesChannel {
	return c.updatesCh
}

func (c *client) StopUpdates() {
	c.bot.StopReceivingUpdates()
}

func (c *client) StartTyping(ctx context.Context, chatID int64) {
	if _, err := c.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		slog.WarnContext(ctx, "Failed to send typing action", "chatID", chatID, logger.Err(err))
	}
}

func (c *client) SendResponse(ctx context.Context, response *domain.Response) {
	for _, msg := range Messages(response) {
		if _, err := c.bot.Send(msg); err != nil {
			slog.ErrorContext(ctx, "Failed to send message", "chatID", response.ChatID, logger.Err(err))
			return
		}
	}
}

// Messages splits a response into sendable text messages. Only the first
// part replies to the original message.
func Messages(response *domain.Response) []tgbotapi.MessageConfig {
	text := response.Text
	if response.Err != nil {
		text = apology(response.Language, response.Err)
	}
	if text == "" {
		return nil
	}

	parts := lo.ChunkString(text, maxMessageRunes)
	return lo.Map(parts, func(part string, i int) tgbotapi.MessageConfig {
		msg := tgbotapi.NewMessage(response.ChatID, part)
		msg.DisableWebPagePreview = true
		if i == 0 {
			msg.ReplyToMessageID = response.ReplyToMessageID
		}
		return msg
	})
}

func apology(lang domain.Language, err error) string {
	timeout := errors.Is(err, domain.ErrTimeout)
	switch {
	case lang == domain.LanguageMarathi && timeout:
		return "उत्तर देण्यास खूप वेळ लागला. कृपया पुन्हा प्रयत्न करा."
	case lang == domain.LanguageMarathi:
		return "क्षमस्व, सध्या उत्तर देता आले नाही. कृपया थोड्या वेळाने पुन्हा प्रयत्न करा."
	case timeout:
		return "The assistant took too long to answer. Please try again."
	default:
		return "Sorry, I could not answer right now. Please try again later."
	}
}
