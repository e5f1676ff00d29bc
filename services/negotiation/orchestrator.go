package negotiation

import (
	"context"
	"fmt"
	"math"
	"time"

	"molbhav/config"
	"molbhav/models"
	"molbhav/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateRequest persists a new service request in PENDING. Input shape is
// validated at the handler; this only stamps identity and lifecycle fields.
func (s *DefaultNegotiationService) CreateRequest(ctx context.Context, req *models.ServiceRequest) (*models.ServiceRequest, error) {
	now := time.Now()
	req.ID = uuid.New().String()
	req.Status = models.RequestStatusPending
	req.SelectedSessionID = ""
	req.ProvidersContacted = 0
	req.OffersReceived = 0
	req.CreatedAt = now
	req.UpdatedAt = now

	if err := s.Requests.Create(req); err != nil {
		return nil, fmt.Errorf("failed to create service request: %w", err)
	}
	utils.GetLogger().Info("Service request created",
		zap.String("requestId", req.ID),
		zap.String("customerId", req.CustomerID),
		zap.Float64("budget", req.CustomerBudget),
	)
	return req, nil
}

// StartNegotiation checks the caller may negotiate this request and enqueues
// the fan-out. The HTTP caller never waits on provider messaging. Calling it
// again while negotiating is allowed and collapses into the queued run.
func (s *DefaultNegotiationService) StartNegotiation(ctx context.Context, customerID, requestID string) error {
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
	if req.Status != models.RequestStatusPending && req.Status != models.RequestStatusNegotiating {
		return NewInvalidStateError(fmt.Sprintf("cannot start negotiation from status %s", req.Status))
	}

	if err := s.Dispatcher.EnqueueFanout(req.ID); err != nil {
		return fmt.Errorf("failed to enqueue fan-out for request %s: %w", req.ID, err)
	}
	return nil
}

// HandleFanout opens one negotiation session per reachable matched provider,
// capped at the fan-out limit, nearest first. One provider failing never
// aborts the rest. Safe to run again: existing active sessions are skipped.
func (s *DefaultNegotiationService) HandleFanout(ctx context.Context, requestID string) error {
	logger := utils.GetLogger()

	req, err := s.Requests.GetByID(requestID)
	if err != nil {
		return fmt.Errorf("failed to load request %s: %w", requestID, err)
	}
	if req == nil {
		return NewNotFoundError("service request not found")
	}
	switch req.Status {
	case models.RequestStatusPending:
		ok, err := s.Requests.UpdateStatus(req.ID, []string{models.RequestStatusPending}, models.RequestStatusNegotiating)
		if err != nil {
			return fmt.Errorf("failed to move request %s to NEGOTIATING: %w", req.ID, err)
		}
		if !ok {
			logger.Info("Fan-out skipped, request status changed underneath",
				zap.String("requestId", req.ID))
			return nil
		}
	case models.RequestStatusNegotiating:
		// re-kick, fall through to the idempotent session scan
	default:
		logger.Info("Fan-out skipped, request no longer negotiable",
			zap.String("requestId", req.ID), zap.String("status", req.Status))
		return nil
	}

	result, err := s.Matcher.MatchProviders(req)
	if err != nil {
		return fmt.Errorf("provider matching failed for request %s: %w", req.ID, err)
	}

	limit := config.AppConfig.NegotiationMaxProviders
	if limit <= 0 {
		limit = 10
	}
	candidates := result.Reachable
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	now := time.Now()
	opened := 0
	for _, p := range candidates {
		exists, err := s.Sessions.HasActive(req.ID, p.MessagingIdentity)
		if err != nil {
			logger.Error("Active-session check failed, skipping provider",
				zap.String("requestId", req.ID), zap.String("providerId", p.ID), zap.Error(err))
			continue
		}
		if exists {
			continue
		}

		sess := buildSession(req, p, now)
		if err := s.Sessions.Create(sess); err != nil {
			logger.Error("Failed to create session, skipping provider",
				zap.String("requestId", req.ID), zap.String("providerId", p.ID), zap.Error(err))
			continue
		}

		inquiry := initialInquiry(req, sess)
		if err := s.Messenger.Send(ctx, sess.ProviderIdentity, inquiry); err != nil {
			logger.Warn("Initial inquiry delivery failed, closing session",
				zap.String("sessionId", sess.ID),
				zap.String("identity", sess.ProviderIdentity),
				zap.Error(err))
			sess.Status = models.SessionStatusFailed
			sess.Outcome = models.OutcomeNoDeal
			sess.Append(models.RoleSystem, "initial inquiry could not be delivered")
			if ok, err := s.Sessions.UpdateGuarded(sess); err != nil || !ok {
				logger.Error("Failed to close undeliverable session",
					zap.String("sessionId", sess.ID), zap.Error(err))
			}
			continue
		}

		sess.Append(models.RoleAgent, inquiry)
		if ok, err := s.Sessions.UpdateGuarded(sess); err != nil || !ok {
			logger.Error("Failed to record initial inquiry",
				zap.String("sessionId", sess.ID), zap.Error(err))
		}
		opened++
	}

	for _, p := range result.Unreachable {
		err := s.Notifier.NotifyProvider(ctx, p.ID, models.NotificationInvitation,
			"New job near you",
			fmt.Sprintf("A customer nearby needs %q with a budget of ₹%s. Link a chat account to negotiate automatically.",
				req.Description, formatPrice(req.CustomerBudget)),
			map[string]string{"requestId": req.ID})
		if err != nil {
			logger.Warn("Provider invitation failed",
				zap.String("providerId", p.ID), zap.Error(err))
		}
	}

	counts, err := s.Sessions.CountsByRequest(req.ID)
	if err != nil {
		return fmt.Errorf("failed to count sessions for request %s: %w", req.ID, err)
	}
	if err := s.Requests.SetCounters(req.ID, counts.Contacted, counts.Agreed); err != nil {
		logger.Error("Failed to store request counters",
			zap.String("requestId", req.ID), zap.Error(err))
	}

	if counts.Contacted == 0 {
		if _, err := s.Requests.UpdateStatus(req.ID, []string{models.RequestStatusNegotiating}, models.RequestStatusExpired); err != nil {
			return fmt.Errorf("failed to expire unmatched request %s: %w", req.ID, err)
		}
		if err := s.Notifier.NotifyUser(ctx, req.CustomerID, models.NotificationNoOffers,
			"No providers found",
			"We could not find any providers for your request right now. Try widening the categories or adjusting the budget.",
			map[string]string{"requestId": req.ID}); err != nil {
			logger.Warn("No-providers notification failed",
				zap.String("requestId", req.ID), zap.Error(err))
		}
		logger.Info("Fan-out found no one to contact", zap.String("requestId", req.ID))
		return nil
	}

	if err := s.Dispatcher.ScheduleFinalize(req.ID, now.Add(config.NegotiationWindow())); err != nil {
		return fmt.Errorf("failed to schedule finalize for request %s: %w", req.ID, err)
	}
	if counts.Active == 0 {
		// every send failed; settle now instead of waiting out the window
		if err := s.Dispatcher.EnqueueFinalizeCheck(req.ID); err != nil {
			logger.Error("Failed to enqueue finalize check",
				zap.String("requestId", req.ID), zap.Error(err))
		}
	}

	logger.Info("Fan-out complete",
		zap.String("requestId", req.ID),
		zap.Int("opened", opened),
		zap.Int("contacted", counts.Contacted),
		zap.Int("unreachable", len(result.Unreachable)),
	)
	return nil
}

func buildSession(req *models.ServiceRequest, p models.Provider, now time.Time) *models.NegotiationSession {
	fraction := config.AppConfig.NegotiationAcceptFraction
	if fraction <= 0 || fraction >= 1 {
		fraction = 0.70
	}
	return &models.NegotiationSession{
		ID:               uuid.New().String(),
		RequestID:        req.ID,
		ProviderID:       p.ID,
		ProviderIdentity: p.MessagingIdentity,
		MaxPrice:         req.CustomerBudget,
		MinAcceptable:    math.Round(req.CustomerBudget * fraction),
		Status:           models.SessionStatusActive,
		ExpiresAt:        now.Add(config.NegotiationWindow()),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
