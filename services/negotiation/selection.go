package negotiation

import (
	"context"
	"fmt"
	"time"

	"molbhav/models"
	"molbhav/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// SelectOffer claims one agreed session as the winner, books it, and tells
// everyone involved. The claim is a conditional update, so of two concurrent
// selections exactly one wins and the loser gets invalidState. Re-invocation
// after success is rejected the same way and nothing is re-sent.
func (s *DefaultNegotiationService) SelectOffer(ctx context.Context, customerID, requestID, sessionID string) (*models.Booking, error) {
	logger := utils.GetLogger()

	req, err := s.Requests.GetByID(requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load request %s: %w", requestID, err)
	}
	if req == nil {
		return nil, NewNotFoundError("service request not found")
	}
	if req.CustomerID != customerID {
		return nil, NewUnauthorizedError("request belongs to another customer")
	}
	if req.Status == models.RequestStatusAccepted {
		return nil, NewInvalidStateError("an offer was already selected for this request")
	}
	if req.Status == models.RequestStatusCancelled || req.Status == models.RequestStatusExpired {
		return nil, NewInvalidStateError(fmt.Sprintf("cannot select an offer on a %s request", req.Status))
	}

	sess, err := s.Sessions.GetByID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	if sess == nil {
		return nil, NewNotFoundError("negotiation session not found")
	}
	if sess.RequestID != req.ID {
		return nil, NewInvalidStateError("session does not belong to this request")
	}
	if !sess.Agreed() || sess.CurrentOffer == nil {
		return nil, NewInvalidStateError("session has no agreed offer to select")
	}

	won, err := s.Requests.SetSelected(req.ID, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to select offer for request %s: %w", req.ID, err)
	}
	if !won {
		return nil, NewInvalidStateError("an offer was already selected for this request")
	}

	booking := &models.Booking{
		ID:          uuid.New().String(),
		RequestID:   req.ID,
		SessionID:   sess.ID,
		CustomerID:  req.CustomerID,
		ProviderID:  sess.ProviderID,
		Description: req.Description,
		AgreedPrice: *sess.CurrentOffer,
		Status:      models.BookingStatusConfirmed,
		CreatedAt:   time.Now(),
	}
	if err := s.Bookings.Create(booking); err != nil {
		return nil, fmt.Errorf("offer selected but booking creation failed for request %s: %w", req.ID, err)
	}

	if err := s.Messenger.Send(ctx, sess.ProviderIdentity, winnerText(*sess.CurrentOffer, req.Description)); err != nil {
		logger.Warn("Winner message delivery failed",
			zap.String("sessionId", sess.ID), zap.Error(err))
	}
	if err := s.Notifier.NotifyProvider(ctx, sess.ProviderID, models.NotificationDealAgreed,
		"You got the job!",
		fmt.Sprintf("The customer selected your offer of ₹%s for %q.", formatPrice(*sess.CurrentOffer), req.Description),
		map[string]string{"requestId": req.ID, "bookingId": booking.ID}); err != nil {
		logger.Warn("Winner notification failed",
			zap.String("providerId", sess.ProviderID), zap.Error(err))
	}

	agreed, err := s.Sessions.GetAgreedByRequest(req.ID)
	if err != nil {
		logger.Error("Failed to list agreed sessions for non-selection notices",
			zap.String("requestId", req.ID), zap.Error(err))
	}
	for i := range agreed {
		other := &agreed[i]
		if other.ID == sess.ID {
			continue
		}
		if err := s.Messenger.Send(ctx, other.ProviderIdentity, notSelectedText()); err != nil {
			logger.Warn("Non-selection message delivery failed",
				zap.String("sessionId", other.ID), zap.Error(err))
		}
		if err := s.Notifier.NotifyProvider(ctx, other.ProviderID, models.NotificationNotSelected,
			"Request closed",
			"The customer chose another provider for this request.",
			map[string]string{"requestId": req.ID}); err != nil {
			logger.Warn("Non-selection notification failed",
				zap.String("providerId", other.ProviderID), zap.Error(err))
		}
	}

	if err := s.Notifier.NotifyUser(ctx, req.CustomerID, models.NotificationBookingCreated,
		"Booking confirmed",
		fmt.Sprintf("Your booking for %q at ₹%s is confirmed.", req.Description, formatPrice(booking.AgreedPrice)),
		map[string]string{"requestId": req.ID, "bookingId": booking.ID}); err != nil {
		logger.Warn("Booking notification failed",
			zap.String("requestId", req.ID), zap.Error(err))
	}

	logger.Info("Offer selected",
		zap.String("requestId", req.ID),
		zap.String("sessionId", sess.ID),
		zap.Float64("agreedPrice", booking.AgreedPrice),
	)
	return booking, nil
}

// CancelNegotiation ends one still-active session on the customer's behalf.
func (s *DefaultNegotiationService) CancelNegotiation(ctx context.Context, customerID, sessionID string) error {
	logger := utils.GetLogger()

	sess, err := s.Sessions.GetByID(sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	if sess == nil {
		return NewNotFoundError("negotiation session not found")
	}
	req, err := s.Requests.GetByID(sess.RequestID)
	if err != nil {
		return fmt.Errorf("failed to load request %s: %w", sess.RequestID, err)
	}
	if req == nil {
		return NewNotFoundError("service request not found")
	}
	if req.CustomerID != customerID {
		return NewUnauthorizedError("negotiation belongs to another customer")
	}
	if sess.Status != models.SessionStatusActive {
		return NewInvalidStateError("negotiation is not active")
	}

	sess.Status = models.SessionStatusFailed
	sess.Outcome = models.OutcomeCancelled
	sess.Append(models.RoleSystem, "cancelled by the customer")
	ok, err := s.Sessions.UpdateGuarded(sess)
	if err != nil {
		return fmt.Errorf("failed to cancel session %s: %w", sessionID, err)
	}
	if !ok {
		return NewInvalidStateError("negotiation is not active")
	}

	if err := s.Messenger.Send(ctx, sess.ProviderIdentity, cancelledText()); err != nil {
		logger.Warn("Cancellation message delivery failed",
			zap.String("sessionId", sess.ID), zap.Error(err))
	}
	if err := s.Notifier.NotifyProvider(ctx, sess.ProviderID, models.NotificationDealFailed,
		"Negotiation cancelled",
		"The customer cancelled this negotiation.",
		map[string]string{"requestId": sess.RequestID}); err != nil {
		logger.Warn("Cancellation notification failed",
			zap.String("providerId", sess.ProviderID), zap.Error(err))
	}

	s.afterSessionClosed(ctx, sess)
	return nil
}

// CancelRequest cancels a whole request and everything still negotiating
// under it. Valid from any non-terminal status.
func (s *DefaultNegotiationService) CancelRequest(ctx context.Context, customerID, requestID string) error {
	logger := utils.GetLogger()

	req, err := s.Requests.GetByID(requestID)
	if err != nil {
		return fmt.Errorf("failed to load request %s: %w", requestID, err)
	}
	if req == nil {
		return NewNotFoundError("service request not found")
	}
	if req.CustomerID != customerID {
		return NewUnauthorizedError("request belongs to another customer")
	}

	ok, err := s.Requests.UpdateStatus(req.ID,
		[]string{models.RequestStatusPending, models.RequestStatusNegotiating, models.RequestStatusOffersReady},
		models.RequestStatusCancelled)
	if err != nil {
		return fmt.Errorf("failed to cancel request %s: %w", req.ID, err)
	}
	if !ok {
		return NewInvalidStateError(fmt.Sprintf("cannot cancel a %s request", req.Status))
	}

	sessions, err := s.Sessions.GetByRequest(req.ID)
	if err != nil {
		logger.Error("Failed to list sessions before cancellation",
			zap.String("requestId", req.ID), zap.Error(err))
	}
	active := activeSessions(sessions)
	cancelled, err := s.Sessions.CancelActive(req.ID)
	if err != nil {
		return fmt.Errorf("failed to cancel sessions for request %s: %w", req.ID, err)
	}
	for i := range active {
		sess := &active[i]
		if err := s.Messenger.Send(ctx, sess.ProviderIdentity, cancelledText()); err != nil {
			logger.Warn("Cancellation message delivery failed",
				zap.String("sessionId", sess.ID), zap.Error(err))
		}
		if err := s.Notifier.NotifyProvider(ctx, sess.ProviderID, models.NotificationDealFailed,
			"Request cancelled",
			"The customer cancelled this request.",
			map[string]string{"requestId": req.ID}); err != nil {
			logger.Warn("Cancellation notification failed",
				zap.String("providerId", sess.ProviderID), zap.Error(err))
		}
	}

	logger.Info("Request cancelled",
		zap.String("requestId", req.ID), zap.Int64("sessionsCancelled", cancelled))
	return nil
}

// ListOffers returns the agreed offers of a request, cheapest first, enriched
// with provider name and rating for the customer to compare.
func (s *DefaultNegotiationService) ListOffers(ctx context.Context, customerID, requestID string) ([]models.Offer, error) {
	req, err := s.Requests.GetByID(requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load request %s: %w", requestID, err)
	}
	if req == nil {
		return nil, NewNotFoundError("service request not found")
	}
	if req.CustomerID != customerID {
		return nil, NewUnauthorizedError("request belongs to another customer")
	}

	agreed, err := s.Sessions.GetAgreedByRequest(req.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list agreed sessions for request %s: %w", req.ID, err)
	}

	offers := make([]models.Offer, 0, len(agreed))
	for i := range agreed {
		sess := &agreed[i]
		if sess.CurrentOffer == nil {
			continue
		}
		offer := models.Offer{
			SessionID:   sess.ID,
			ProviderID:  sess.ProviderID,
			AgreedPrice: *sess.CurrentOffer,
			AgreedAt:    sess.UpdatedAt,
		}
		if p, err := s.Providers.GetByIDWithProjection(sess.ProviderID, bson.M{"profile": 1}); err == nil && p != nil {
			offer.ProviderName = p.Profile.Name
			offer.Rating = p.Profile.Rating
		}
		offers = append(offers, offer)
	}
	return offers, nil
}

// GetStatus returns the request with a summary of each negotiation under it.
func (s *DefaultNegotiationService) GetStatus(ctx context.Context, customerID, requestID string) (*RequestStatus, error) {
	req, err := s.Requests.GetByID(requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load request %s: %w", requestID, err)
	}
	if req == nil {
		return nil, NewNotFoundError("service request not found")
	}
	if req.CustomerID != customerID {
		return nil, NewUnauthorizedError("request belongs to another customer")
	}

	sessions, err := s.Sessions.GetByRequest(req.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions for request %s: %w", req.ID, err)
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for i := range sessions {
		sess := &sessions[i]
		summaries = append(summaries, SessionSummary{
			SessionID:    sess.ID,
			ProviderID:   sess.ProviderID,
			Status:       sess.Status,
			Outcome:      sess.Outcome,
			CurrentOffer: sess.CurrentOffer,
			CounterOffer: sess.CounterOffer,
			MessageCount: sess.MessageCount,
			ExpiresAt:    sess.ExpiresAt,
		})
	}

	status := &RequestStatus{Request: req, Sessions: summaries}
	if req.Status == models.RequestStatusAccepted {
		if b, err := s.Bookings.GetByRequest(req.ID); err == nil && b != nil {
			status.Booking = b
		}
	}
	return status, nil
}

// activeSessions filters a request's sessions down to the active ones.
func activeSessions(sessions []models.NegotiationSession) []models.NegotiationSession {
	var out []models.NegotiationSession
	for _, sess := range sessions {
		if sess.Status == models.SessionStatusActive {
			out = append(out, sess)
		}
	}
	return out
}
