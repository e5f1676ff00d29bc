package messaging

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"molbhav/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	telegramPrefix         = "telegram:"
	telegramMaxMsgLen      = 4000
	telegramMaxSendRetries = 3
)

// TelegramChannel implements Channel over the Telegram Bot API.
type TelegramChannel struct {
	bot    *tgbotapi.BotAPI
	logger *zap.Logger
}

// NewTelegramChannel connects the bot. The token comes from configuration.
func NewTelegramChannel(token string) (*TelegramChannel, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	logger := utils.GetLogger()
	logger.Info("telegram bot connected", zap.String("username", bot.Self.UserName))
	return &TelegramChannel{bot: bot, logger: logger}, nil
}

func (t *TelegramChannel) Name() string { return "telegram" }

func (t *TelegramChannel) CanSend(identity string) bool {
	return strings.HasPrefix(identity, telegramPrefix)
}

func (t *TelegramChannel) Send(ctx context.Context, identity, text string) error {
	chatID, err := t.chatID(identity)
	if err != nil {
		return err
	}
	return t.sendMessage(chatID, text, nil)
}

// SendWithActions attaches inline accept/reject/counter buttons so the
// provider can answer with one tap instead of typing.
func (t *TelegramChannel) SendWithActions(ctx context.Context, identity, text string) error {
	chatID, err := t.chatID(identity)
	if err != nil {
		return err
	}
	markup := NegotiationKeyboard()
	return t.sendMessage(chatID, text, &markup)
}

// Callback data carried by the negotiation buttons.
const (
	CallbackAccept  = "negotiate_accept"
	CallbackReject  = "negotiate_reject"
	CallbackCounter = "negotiate_counter"
)

// NegotiationKeyboard is the accept/reject/counter control row attached to
// negotiation prompts. The webhook handler reuses it when answering updates.
func NegotiationKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Accept", CallbackAccept),
			tgbotapi.NewInlineKeyboardButtonData("❌ Reject", CallbackReject),
			tgbotapi.NewInlineKeyboardButtonData("💬 Counter", CallbackCounter),
		),
	)
}

// AckCallback answers a callback query so the provider's client stops the
// loading spinner.
func (t *TelegramChannel) AckCallback(callbackID string) {
	callback := tgbotapi.NewCallback(callbackID, "")
	if _, err := t.bot.Request(callback); err != nil {
		t.logger.Warn("telegram callback ack failed", zap.Error(err))
	}
}

func (t *TelegramChannel) chatID(identity string) (int64, error) {
	_, handle, err := SplitIdentity(identity)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(handle, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat id %q: %w", handle, err)
	}
	return id, nil
}

// sendMessage chunks long texts; Telegram rejects messages over 4096 chars.
func (t *TelegramChannel) sendMessage(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	for len(text) > 0 {
		chunk := text
		if len(chunk) > telegramMaxMsgLen {
			cutAt := strings.LastIndex(chunk[:telegramMaxMsgLen], "\n")
			if cutAt < telegramMaxMsgLen/2 {
				cutAt = telegramMaxMsgLen
			}
			chunk = text[:cutAt]
			text = text[cutAt:]
		} else {
			text = ""
		}

		// Buttons go on the final chunk only.
		var chunkMarkup *tgbotapi.InlineKeyboardMarkup
		if text == "" {
			chunkMarkup = markup
		}
		if err := t.sendChunk(chatID, chunk, chunkMarkup); err != nil {
			return err
		}
	}
	return nil
}

// sendChunk sends a single message chunk with retry and rate limit handling.
func (t *TelegramChannel) sendChunk(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	var lastErr error

	for attempt := 0; attempt <= telegramMaxSendRetries; attempt++ {
		msg := tgbotapi.NewMessage(chatID, text)
		if markup != nil {
			msg.ReplyMarkup = *markup
		}

		_, err := t.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err

		// Handle Telegram rate limiting (HTTP 429).
		errStr := err.Error()
		if strings.Contains(errStr, "Too Many Requests") || strings.Contains(errStr, "429") {
			retryAfter := time.Duration(attempt+1) * 3 * time.Second
			t.logger.Warn("telegram rate limited, backing off",
				zap.Duration("retryAfter", retryAfter), zap.Int("attempt", attempt+1))
			time.Sleep(retryAfter)
			continue
		}

		if attempt < telegramMaxSendRetries {
			backoff := time.Duration(attempt+1) * time.Second
			t.logger.Warn("telegram send error, retrying", zap.Error(err), zap.Duration("backoff", backoff))
			time.Sleep(backoff)
		}
	}

	t.logger.Error("telegram send failed after retries",
		zap.Error(lastErr), zap.Int("attempts", telegramMaxSendRetries+1))
	return fmt.Errorf("telegram send to %d failed: %w", chatID, lastErr)
}
