package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"molbhav/utils"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

const (
	whatsappPrefix         = "whatsapp:"
	whatsappMaxSendRetries = 3
)

// WhatsAppChannel implements Channel over the Twilio Messages API. WhatsApp
// through Twilio carries free text only, so action buttons degrade to text
// and provider intents flow back through the price evaluator.
type WhatsAppChannel struct {
	client *twilio.RestClient
	from   string // sender number in E.164, without the whatsapp: prefix
	logger *zap.Logger
}

// NewWhatsAppChannel builds the Twilio-backed channel.
func NewWhatsAppChannel(accountSID, authToken, from string) *WhatsAppChannel {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &WhatsAppChannel{
		client: client,
		from:   from,
		logger: utils.GetLogger(),
	}
}

func (w *WhatsAppChannel) Name() string { return "whatsapp" }

func (w *WhatsAppChannel) CanSend(identity string) bool {
	return strings.HasPrefix(identity, whatsappPrefix)
}

func (w *WhatsAppChannel) Send(ctx context.Context, identity, text string) error {
	_, handle, err := SplitIdentity(identity)
	if err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(whatsappPrefix + w.from)
	params.SetTo(whatsappPrefix + handle)
	params.SetBody(text)

	var lastErr error
	for attempt := 0; attempt <= whatsappMaxSendRetries; attempt++ {
		_, err := w.client.Api.CreateMessage(params)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt < whatsappMaxSendRetries {
			backoff := time.Duration(attempt+1) * time.Second
			w.logger.Warn("whatsapp send error, retrying", zap.Error(err), zap.Duration("backoff", backoff))
			time.Sleep(backoff)
		}
	}

	w.logger.Error("whatsapp send failed after retries",
		zap.Error(lastErr), zap.Int("attempts", whatsappMaxSendRetries+1))
	return fmt.Errorf("whatsapp send to %s failed: %w", handle, lastErr)
}

// SendWithActions is plain Send: Twilio WhatsApp messages have no inline
// buttons, the provider answers in text.
func (w *WhatsAppChannel) SendWithActions(ctx context.Context, identity, text string) error {
	return w.Send(ctx, identity, text)
}
