package negotiation

import (
	"context"
	"fmt"
	"time"

	"molbhav/models"
	"molbhav/services/messaging"
	"molbhav/utils"

	"go.uber.org/zap"
)

// sessionWriteAttempts bounds the reload-and-retry loop around guarded
// session writes. Platforms serialize messages per chat, so losing more than
// a couple of races in a row means something else is wrong.
const sessionWriteAttempts = 3

// HandleProviderMessage processes one inbound free-text message from a
// provider and returns the reply to send back. Deliveries may arrive more
// than once, out of order, or concurrently; every state change goes through
// the version guard so replays cannot corrupt a session.
func (s *DefaultNegotiationService) HandleProviderMessage(ctx context.Context, identity, text string) (string, error) {
	sess, deadEnd, err := s.activeSessionFor(ctx, identity)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return deadEnd, nil
	}

	out, persisted, err := s.applyGuarded(sess, func(cur *models.NegotiationSession) string {
		cur.Append(models.RoleProviderParty, text)
		d := EvaluateMessage(cur.MaxPrice, cur.MinAcceptable, text)

		var reply string
		switch d.Kind {
		case DecideAccept:
			offer := d.Offer
			cur.CurrentOffer = &offer
			cur.Status = models.SessionStatusCompleted
			cur.Outcome = models.OutcomeAgreed
			reply = acceptText(d.Offer)
		case DecideNegotiate, DecideRejectHigh:
			offer, counter := d.Offer, d.Counter
			cur.CurrentOffer = &offer
			cur.CounterOffer = &counter
			reply = s.counterReply(ctx, cur, d)
		default:
			reply = replyAskForPrice
		}
		cur.Append(models.RoleAgent, reply)
		return reply
	})
	if err != nil {
		return "", err
	}
	if persisted != nil && persisted.Status != models.SessionStatusActive {
		s.afterSessionClosed(ctx, persisted)
	}
	return out, nil
}

// HandleProviderAction processes a discrete accept/reject/counter signal.
// Accept completes the deal at the standing counter-offer; without one the
// provider is asked to quote first.
func (s *DefaultNegotiationService) HandleProviderAction(ctx context.Context, identity, action string) (string, error) {
	sess, deadEnd, err := s.activeSessionFor(ctx, identity)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return deadEnd, nil
	}

	var fn func(*models.NegotiationSession) string
	switch action {
	case messaging.ActionAccept:
		if sess.CounterOffer == nil {
			return replyAcceptNoCounter, nil
		}
		// CounterOffer is only ever set, never cleared, so the deref below
		// stays safe across guarded reloads of the same session.
		fn = func(cur *models.NegotiationSession) string {
			price := *cur.CounterOffer
			cur.Append(models.RoleProviderParty, fmt.Sprintf("Accepted the counter-offer of ₹%s", formatPrice(price)))
			cur.CurrentOffer = &price
			cur.Status = models.SessionStatusCompleted
			cur.Outcome = models.OutcomeAgreed
			reply := acceptText(price)
			cur.Append(models.RoleAgent, reply)
			return reply
		}
	case messaging.ActionReject:
		fn = func(cur *models.NegotiationSession) string {
			cur.Append(models.RoleProviderParty, "Declined the request")
			cur.Status = models.SessionStatusFailed
			cur.Outcome = models.OutcomeNoDeal
			cur.Append(models.RoleAgent, replyRejectAck)
			return replyRejectAck
		}
	case messaging.ActionCounter:
		fn = func(cur *models.NegotiationSession) string {
			cur.Append(models.RoleProviderParty, "Asked to propose a different price")
			cur.Append(models.RoleAgent, replyCounterPrompt)
			return replyCounterPrompt
		}
	default:
		return "", fmt.Errorf("unknown provider action %q", action)
	}

	out, persisted, err := s.applyGuarded(sess, fn)
	if err != nil {
		return "", err
	}
	if persisted != nil && persisted.Status != models.SessionStatusActive {
		s.afterSessionClosed(ctx, persisted)
	}
	return out, nil
}

// activeSessionFor resolves the session an inbound signal belongs to. When
// nothing can be processed it returns a nil session plus the reply to send:
// either no negotiation exists for the identity, or the newest one sat past
// its deadline and is expired on the spot.
func (s *DefaultNegotiationService) activeSessionFor(ctx context.Context, identity string) (*models.NegotiationSession, string, error) {
	logger := utils.GetLogger()

	sessions, err := s.Sessions.FindActiveByIdentity(identity)
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up active session for %s: %w", identity, err)
	}
	if len(sessions) == 0 {
		return nil, replyNoActiveNegotiation, nil
	}
	if len(sessions) > 1 {
		logger.Warn("Provider has several active sessions, taking the newest",
			zap.String("identity", identity), zap.Int("count", len(sessions)))
	}
	sess := &sessions[0]

	if time.Now().After(sess.ExpiresAt) {
		sess.Status = models.SessionStatusExpired
		sess.Outcome = models.OutcomeTimeout
		sess.Append(models.RoleSystem, "negotiation window elapsed")
		if ok, err := s.Sessions.UpdateGuarded(sess); err != nil || !ok {
			logger.Error("Failed to expire overdue session",
				zap.String("sessionId", sess.ID), zap.Error(err))
		} else {
			s.afterSessionClosed(ctx, sess)
		}
		return nil, replyExpired, nil
	}
	return sess, "", nil
}

// applyGuarded runs fn against an active session and persists the result,
// reloading and retrying when a concurrent writer won the version race. The
// returned session is nil when nothing was persisted; the reply is always
// usable.
func (s *DefaultNegotiationService) applyGuarded(sess *models.NegotiationSession, fn func(*models.NegotiationSession) string) (string, *models.NegotiationSession, error) {
	for attempt := 0; attempt < sessionWriteAttempts; attempt++ {
		out := fn(sess)
		ok, err := s.Sessions.UpdateGuarded(sess)
		if err != nil {
			return "", nil, fmt.Errorf("failed to persist session %s: %w", sess.ID, err)
		}
		if ok {
			return out, sess, nil
		}

		fresh, err := s.Sessions.GetByID(sess.ID)
		if err != nil {
			return "", nil, fmt.Errorf("failed to reload session %s: %w", sess.ID, err)
		}
		if fresh == nil || fresh.Status != models.SessionStatusActive {
			return closedReply(fresh), nil, nil
		}
		sess = fresh
	}
	utils.GetLogger().Warn("Session write kept losing version races",
		zap.String("sessionId", sess.ID))
	return replyBusy, nil, nil
}

// afterSessionClosed runs the side effects of a session leaving active: the
// customer hears about a fresh agreement, and a settle pass is queued so a
// request whose sessions all finished does not wait out the full window.
func (s *DefaultNegotiationService) afterSessionClosed(ctx context.Context, sess *models.NegotiationSession) {
	logger := utils.GetLogger()

	if sess.Agreed() {
		req, err := s.Requests.GetByID(sess.RequestID)
		if err != nil || req == nil {
			logger.Error("Agreed session has no loadable request",
				zap.String("sessionId", sess.ID),
				zap.String("requestId", sess.RequestID),
				zap.Error(err))
		} else {
			price := 0.0
			if sess.CurrentOffer != nil {
				price = *sess.CurrentOffer
			}
			if err := s.Notifier.NotifyUser(ctx, req.CustomerID, models.NotificationNewOffer,
				"New offer received!",
				fmt.Sprintf("A provider agreed to do %q for ₹%s. Review your offers.", req.Description, formatPrice(price)),
				map[string]string{"requestId": req.ID, "sessionId": sess.ID}); err != nil {
				logger.Warn("New-offer notification failed",
					zap.String("requestId", req.ID), zap.Error(err))
			}
		}
	}

	if err := s.Dispatcher.EnqueueFinalizeCheck(sess.RequestID); err != nil {
		logger.Error("Failed to enqueue finalize check",
			zap.String("requestId", sess.RequestID), zap.Error(err))
	}
}

// closedReply picks the right dead-end reply for a session that went
// terminal while a write was in flight.
func closedReply(sess *models.NegotiationSession) string {
	if sess == nil {
		return replyNoActiveNegotiation
	}
	switch {
	case sess.Agreed():
		price := 0.0
		if sess.CurrentOffer != nil {
			price = *sess.CurrentOffer
		}
		return fmt.Sprintf("We already have your offer of ₹%s locked in. The customer is reviewing offers now.", formatPrice(price))
	case sess.Status == models.SessionStatusExpired:
		return replyExpired
	default:
		return replyNoActiveNegotiation
	}
}
