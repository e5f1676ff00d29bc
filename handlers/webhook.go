package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"molbhav/config"
	"molbhav/services/messaging"
	"molbhav/services/negotiation"
	"molbhav/utils"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	twilioClient "github.com/twilio/twilio-go/client"
	"github.com/twilio/twilio-go/twiml"
	"go.uber.org/zap"
)

// webhookRetryReply is sent when processing an inbound message failed after
// the platform already delivered it. The provider resends instead of the
// platform retrying, so a transient failure never replays out of order.
const webhookRetryReply = "We hit a snag processing that. Please send your message again."

const telegramOnboardingReply = "Namaste 🙏 You are connected to the MolBhav negotiation assistant.\n\n" +
	"We will message you here when a customer nearby needs your services. You can:\n" +
	"• Reply with your price (a plain number works, for example 1500)\n" +
	"• Use /accept to take the offer on the table\n" +
	"• Use /reject to decline the negotiation"

// WebhookHandler receives inbound provider messages from the chat platforms
// and feeds them into the negotiation engine.
type WebhookHandler struct {
	Negotiation negotiation.NegotiationService
	Messenger   messaging.Sender
	// Telegram is the concrete channel, needed to ack button callbacks.
	// Optional: without it callbacks still process, the client just keeps
	// its loading spinner a while.
	Telegram *messaging.TelegramChannel
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(negSvc negotiation.NegotiationService, messenger messaging.Sender, telegram *messaging.TelegramChannel) *WebhookHandler {
	return &WebhookHandler{
		Negotiation: negSvc,
		Messenger:   messenger,
		Telegram:    telegram,
	}
}

// TelegramWebhookHandler handles POST /webhooks/telegram. Free-text replies
// ride back on the webhook response as a sendMessage payload; callback
// replies go out through the bot API after the callback is acked.
func (h *WebhookHandler) TelegramWebhookHandler(c *gin.Context) {
	logger := utils.GetLogger()

	if secret := config.AppConfig.TelegramWebhookToken; secret != "" {
		if c.GetHeader("X-Telegram-Bot-Api-Secret-Token") != secret {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid webhook token"})
			return
		}
	}

	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		logger.Warn("telegram webhook: malformed update", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if !h.claimDelivery(c, "telegram", strconv.Itoa(update.UpdateID)) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if update.CallbackQuery != nil {
		h.handleTelegramCallback(c, update.CallbackQuery)
		return
	}
	if update.Message != nil {
		h.handleTelegramMessage(c, update.Message)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *WebhookHandler) handleTelegramCallback(c *gin.Context, cb *tgbotapi.CallbackQuery) {
	logger := utils.GetLogger()

	if h.Telegram != nil {
		h.Telegram.AckCallback(cb.ID)
	}
	if cb.Message == nil || cb.Message.Chat == nil {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	identity := telegramIdentity(cb.Message.Chat.ID)

	var action string
	switch cb.Data {
	case messaging.CallbackAccept:
		action = messaging.ActionAccept
	case messaging.CallbackReject:
		action = messaging.ActionReject
	case messaging.CallbackCounter:
		action = messaging.ActionCounter
	default:
		logger.Warn("telegram webhook: unknown callback", zap.String("data", cb.Data))
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	reply, err := h.Negotiation.HandleProviderAction(c.Request.Context(), identity, action)
	if err != nil {
		logger.Error("telegram callback handling failed",
			zap.String("identity", identity), zap.Error(err))
		reply = webhookRetryReply
	}
	if err := h.Messenger.Send(c.Request.Context(), identity, reply); err != nil {
		logger.Error("telegram callback reply delivery failed",
			zap.String("identity", identity), zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *WebhookHandler) handleTelegramMessage(c *gin.Context, msg *tgbotapi.Message) {
	logger := utils.GetLogger()

	if msg.Chat == nil {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	identity := telegramIdentity(msg.Chat.ID)

	if msg.IsCommand() {
		var reply string
		var err error
		switch msg.Command() {
		case "start":
			reply = telegramOnboardingReply
		case "accept":
			reply, err = h.Negotiation.HandleProviderAction(c.Request.Context(), identity, messaging.ActionAccept)
		case "reject":
			reply, err = h.Negotiation.HandleProviderAction(c.Request.Context(), identity, messaging.ActionReject)
		default:
			reply = "Commands: /accept to take the offer on the table, /reject to decline. Or just reply with your price."
		}
		if err != nil {
			logger.Error("telegram command handling failed",
				zap.String("identity", identity), zap.Error(err))
			reply = webhookRetryReply
		}
		answerTelegram(c, msg.Chat.ID, reply, false)
		return
	}

	if msg.Text == "" {
		// Stickers, photos and the like carry no negotiable content.
		answerTelegram(c, msg.Chat.ID, "Please reply with text. A plain number like 1500 works best.", false)
		return
	}

	reply, err := h.Negotiation.HandleProviderMessage(c.Request.Context(), identity, msg.Text)
	if err != nil {
		logger.Error("telegram message handling failed",
			zap.String("identity", identity), zap.Error(err))
		answerTelegram(c, msg.Chat.ID, webhookRetryReply, false)
		return
	}
	answerTelegram(c, msg.Chat.ID, reply, true)
}

// answerTelegram responds to the webhook with a sendMessage payload, which
// Telegram executes as the reply. Saves a round trip to the bot API.
func answerTelegram(c *gin.Context, chatID int64, text string, withActions bool) {
	payload := gin.H{
		"method":  "sendMessage",
		"chat_id": chatID,
		"text":    text,
	}
	if withActions {
		payload["reply_markup"] = messaging.NegotiationKeyboard()
	}
	c.JSON(http.StatusOK, payload)
}

func telegramIdentity(chatID int64) string {
	return fmt.Sprintf("telegram:%d", chatID)
}

// TwilioWebhookHandler handles POST /webhooks/twilio. The reply rides back as
// TwiML, which Twilio relays to the provider's WhatsApp.
func (h *WebhookHandler) TwilioWebhookHandler(c *gin.Context) {
	logger := utils.GetLogger()

	if err := c.Request.ParseForm(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form payload"})
		return
	}

	if token := config.AppConfig.TwilioAuthToken; token != "" {
		if !validTwilioSignature(c, token) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid signature"})
			return
		}
	}

	from := c.PostForm("From")
	body := c.PostForm("Body")
	sid := c.PostForm("MessageSid")
	if from == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing From"})
		return
	}
	identity := whatsappIdentity(from)

	if sid != "" && !h.claimDelivery(c, "twilio", sid) {
		answerTwiML(c, "")
		return
	}

	reply, err := h.Negotiation.HandleProviderMessage(c.Request.Context(), identity, body)
	if err != nil {
		logger.Error("twilio message handling failed",
			zap.String("identity", identity), zap.Error(err))
		reply = webhookRetryReply
	}
	answerTwiML(c, reply)
}

// answerTwiML writes the TwiML response. An empty reply produces an empty
// <Response/>, which tells Twilio to send nothing.
func answerTwiML(c *gin.Context, reply string) {
	var verbs []twiml.Element
	if reply != "" {
		verbs = append(verbs, &twiml.MessagingMessage{Body: reply})
	}
	doc, err := twiml.Messages(verbs)
	if err != nil {
		utils.GetLogger().Error("twiml render failed", zap.Error(err))
		c.Status(http.StatusOK)
		return
	}
	c.Data(http.StatusOK, "text/xml; charset=utf-8", []byte(doc))
}

// validTwilioSignature checks X-Twilio-Signature over the full URL and the
// posted params, per Twilio's webhook security scheme.
func validTwilioSignature(c *gin.Context, authToken string) bool {
	params := make(map[string]string, len(c.Request.PostForm))
	for key, values := range c.Request.PostForm {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	proto := c.GetHeader("X-Forwarded-Proto")
	if proto == "" {
		proto = "https"
	}
	url := proto + "://" + c.Request.Host + c.Request.RequestURI

	validator := twilioClient.NewRequestValidator(authToken)
	return validator.Validate(url, params, c.GetHeader("X-Twilio-Signature"))
}

// whatsappIdentity normalizes Twilio's From into a messaging identity.
// Twilio already prefixes WhatsApp senders with "whatsapp:".
func whatsappIdentity(from string) string {
	if strings.HasPrefix(from, "whatsapp:") {
		return from
	}
	return "whatsapp:" + from
}

// claimDelivery reports whether this delivery id is fresh. Dedupe errors fail
// open: processing twice is version-guarded downstream, dropping a message is
// not recoverable.
func (h *WebhookHandler) claimDelivery(c *gin.Context, platform, deliveryID string) bool {
	fresh, err := utils.ClaimDelivery(c.Request.Context(), platform, deliveryID)
	if err != nil {
		utils.GetLogger().Warn("delivery dedupe unavailable",
			zap.String("platform", platform), zap.Error(err))
		return true
	}
	if !fresh {
		utils.GetLogger().Info("duplicate webhook delivery dropped",
			zap.String("platform", platform), zap.String("deliveryId", deliveryID))
	}
	return fresh
}
