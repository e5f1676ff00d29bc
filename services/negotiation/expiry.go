package negotiation

import (
	"context"
	"fmt"
	"time"

	"molbhav/models"
	"molbhav/utils"

	"go.uber.org/zap"
)

// FinalizeRequest settles a request once its negotiations are done. It runs
// at the deadline (deadline=true force-expires whatever is still active) and
// again whenever a session finishes early. Scheduling is at-least-once, so
// every step here tolerates re-runs: expiry only touches active sessions,
// counters only go up, and the terminal status flip happens exactly once.
func (s *DefaultNegotiationService) FinalizeRequest(ctx context.Context, requestID string, deadline bool) error {
	logger := utils.GetLogger()

	req, err := s.Requests.GetByID(requestID)
	if err != nil {
		return fmt.Errorf("failed to load request %s: %w", requestID, err)
	}
	if req == nil {
		logger.Error("Finalize fired for a missing request", zap.String("requestId", requestID))
		return nil
	}
	switch req.Status {
	case models.RequestStatusAccepted, models.RequestStatusCancelled, models.RequestStatusPending:
		return nil
	}

	expired, err := s.Sessions.ExpireActive(req.ID, time.Now(), deadline)
	if err != nil {
		return fmt.Errorf("failed to expire sessions for request %s: %w", req.ID, err)
	}
	if expired > 0 {
		logger.Info("Expired overdue sessions",
			zap.String("requestId", req.ID), zap.Int64("expired", expired))
	}

	counts, err := s.Sessions.CountsByRequest(req.ID)
	if err != nil {
		return fmt.Errorf("failed to count sessions for request %s: %w", req.ID, err)
	}
	if err := s.Requests.SetCounters(req.ID, counts.Contacted, counts.Agreed); err != nil {
		logger.Error("Failed to store request counters",
			zap.String("requestId", req.ID), zap.Error(err))
	}

	if counts.Active > 0 {
		return nil
	}

	if counts.Agreed > 0 {
		moved, err := s.Requests.UpdateStatus(req.ID, []string{models.RequestStatusNegotiating}, models.RequestStatusOffersReady)
		if err != nil {
			return fmt.Errorf("failed to move request %s to OFFERS_READY: %w", req.ID, err)
		}
		if moved {
			if err := s.Notifier.NotifyUser(ctx, req.CustomerID, models.NotificationOffersReady,
				"Offers ready!",
				fmt.Sprintf("Negotiations have finished: %d provider(s) agreed within your budget. Pick the one you like.", counts.Agreed),
				map[string]string{"requestId": req.ID}); err != nil {
				logger.Warn("Offers-ready notification failed",
					zap.String("requestId", req.ID), zap.Error(err))
			}
			logger.Info("Request has offers ready",
				zap.String("requestId", req.ID), zap.Int("offers", counts.Agreed))
		}
		return nil
	}

	moved, err := s.Requests.UpdateStatus(req.ID, []string{models.RequestStatusNegotiating}, models.RequestStatusExpired)
	if err != nil {
		return fmt.Errorf("failed to expire request %s: %w", req.ID, err)
	}
	if moved {
		if err := s.Notifier.NotifyUser(ctx, req.CustomerID, models.NotificationNoOffers,
			"No offers received",
			"No provider agreed within your budget this time. Try again with an adjusted budget or broader categories.",
			map[string]string{"requestId": req.ID}); err != nil {
			logger.Warn("No-offers notification failed",
				zap.String("requestId", req.ID), zap.Error(err))
		}
		logger.Info("Request expired with no offers", zap.String("requestId", req.ID))
	}
	return nil
}
