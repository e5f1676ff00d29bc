package negotiation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"molbhav/models"
	"molbhav/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// Fixed replies for conversations that cannot advance.
const (
	replyNoActiveNegotiation = "Namaste! You have no active negotiation right now. We will message you when a customer nearby needs your services."
	replyExpired             = "This negotiation window has closed. Thank you for your time!"
	replyAskForPrice         = "Could you share your price as a plain number? For example: 1500"
	replyCounterPrompt       = "Sure, what price works for you? Reply with a number."
	replyAcceptNoCounter     = "There is no counter-offer on the table yet. Please quote your price first."
	replyRejectAck           = "No problem, thank you for your time! We will keep you in mind for future requests."
	replyBusy                = "We hit a snag processing that. Please send your price again."
)

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// initialInquiry is the opening message of every session. It shows the budget
// band rather than the hard ceiling so providers anchor low.
func initialInquiry(req *models.ServiceRequest, s *models.NegotiationSession) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Namaste 🙏 A customer nearby needs: %s\n", req.Description)
	fmt.Fprintf(&b, "Service: %s\n", strings.Join(req.ServiceCategories, ", "))
	fmt.Fprintf(&b, "Budget band: ₹%s-₹%s\n", formatPrice(s.MinAcceptable), formatPrice(s.MaxPrice))
	if req.PreferredDate != "" {
		fmt.Fprintf(&b, "Preferred date: %s\n", req.PreferredDate)
	}
	b.WriteString("If you are interested, reply with your best price (a plain number works, for example 1500).")
	return b.String()
}

func acceptText(price float64) string {
	return fmt.Sprintf("Great news! ₹%s works for us. 🤝 The customer will confirm the booking details shortly.", formatPrice(price))
}

func winnerText(price float64, description string) string {
	return fmt.Sprintf("🎉 Congratulations! The customer selected your offer of ₹%s for: %s. They will contact you to confirm the details.", formatPrice(price), description)
}

func notSelectedText() string {
	return "The customer went with another provider this time. Thank you for negotiating with us!"
}

func cancelledText() string {
	return "The customer has cancelled this request. Thank you for your time!"
}

// counterText is the deterministic wording for a counter decision. The
// numbers in it come from the evaluator and nothing may change them.
func counterText(d Decision) string {
	switch d.Kind {
	case DecideNegotiate:
		return fmt.Sprintf("₹%s is close! How about we meet in the middle at ₹%s?", formatPrice(d.Offer), formatPrice(d.Counter))
	case DecideRejectHigh:
		return fmt.Sprintf("Thank you for the quote of ₹%s, but that is above our customer's budget. Would you consider ₹%s?", formatPrice(d.Offer), formatPrice(d.Counter))
	default:
		return replyAskForPrice
	}
}

// counterReply wraps the canonical counter line in natural chat language when
// a rephraser is wired up. The rephrased text is only used when both amounts
// survive verbatim; anything else falls back to the template.
func (s *DefaultNegotiationService) counterReply(ctx context.Context, sess *models.NegotiationSession, d Decision) string {
	canonical := counterText(d)
	if s.Rephraser == nil {
		return canonical
	}

	instruction := "You are a polite Indian marketplace negotiation assistant haggling on a customer's behalf. " +
		"Rewrite the line below as one short, friendly chat message. " +
		"Keep every number exactly as written. Do not add offers, conditions or facts."
	if lang := s.providerLanguage(sess.ProviderID); lang != "" {
		instruction += " Write it in " + lang + "."
	}

	out, err := s.Rephraser.Rephrase(ctx, instruction, canonical)
	if err != nil {
		utils.GetLogger().Warn("Rephrase failed, using template",
			zap.String("sessionId", sess.ID), zap.Error(err))
		return canonical
	}
	out = strings.TrimSpace(out)
	if out == "" || !strings.Contains(out, formatPrice(d.Counter)) || !strings.Contains(out, formatPrice(d.Offer)) {
		utils.GetLogger().Warn("Rephrased text dropped a number, using template",
			zap.String("sessionId", sess.ID))
		return canonical
	}
	return out
}

func (s *DefaultNegotiationService) providerLanguage(providerID string) string {
	p, err := s.Providers.GetByIDWithProjection(providerID, bson.M{"preferredLanguage": 1})
	if err != nil || p == nil {
		return ""
	}
	return p.PreferredLanguage
}
