package negotiation

import (
	"context"
	"time"

	bookingRepo "molbhav/database/repository/booking"
	negotiationRepo "molbhav/database/repository/negotiation"
	providerRepo "molbhav/database/repository/provider"
	requestRepo "molbhav/database/repository/request"
	"molbhav/models"
	ai "molbhav/services/intelligence"
	"molbhav/services/matching"
	"molbhav/services/messaging"
	"molbhav/services/notification"
	"molbhav/services/tasks"
)

// NegotiationService drives the whole request lifecycle: fan-out to matched
// providers, per-provider price conversations, expiry, and offer selection.
type NegotiationService interface {
	// CreateRequest persists a new service request in PENDING.
	CreateRequest(ctx context.Context, req *models.ServiceRequest) (*models.ServiceRequest, error)
	// StartNegotiation validates ownership and kicks off the background
	// fan-out. Returns before any provider is contacted.
	StartNegotiation(ctx context.Context, customerID, requestID string) error
	// HandleFanout is the background fan-out body: match, open sessions, send
	// initial inquiries, schedule the deadline sweep. Idempotent per request.
	HandleFanout(ctx context.Context, requestID string) error
	// HandleProviderMessage processes one inbound free-text provider message
	// and returns the reply to deliver back over the same channel.
	HandleProviderMessage(ctx context.Context, identity, text string) (string, error)
	// HandleProviderAction processes a discrete accept/reject/counter signal
	// (button callback) and returns the reply text.
	HandleProviderAction(ctx context.Context, identity, action string) (string, error)
	// FinalizeRequest settles a request: expires overdue sessions, recounts,
	// and moves the request to OFFERS_READY or EXPIRED once nothing is active.
	// Deadline runs force-expire every remaining active session. Idempotent.
	FinalizeRequest(ctx context.Context, requestID string, deadline bool) error
	// GetStatus returns the request with per-session summaries.
	GetStatus(ctx context.Context, customerID, requestID string) (*RequestStatus, error)
	// ListOffers returns the agreed offers, cheapest first.
	ListOffers(ctx context.Context, customerID, requestID string) ([]models.Offer, error)
	// SelectOffer claims one agreed session as the winner and books it.
	SelectOffer(ctx context.Context, customerID, requestID, sessionID string) (*models.Booking, error)
	// CancelNegotiation ends one active session as failed/cancelled.
	CancelNegotiation(ctx context.Context, customerID, sessionID string) error
	// CancelRequest cancels a whole request and every active session under it.
	CancelRequest(ctx context.Context, customerID, requestID string) error
}

// DefaultNegotiationService implements NegotiationService.
type DefaultNegotiationService struct {
	Requests   requestRepo.ServiceRequestRepository
	Sessions   negotiationRepo.NegotiationRepository
	Providers  providerRepo.ProviderRepository
	Bookings   bookingRepo.BookingRepository
	Matcher    matching.MatchingService
	Messenger  messaging.Sender
	Notifier   notification.NotificationService
	Dispatcher tasks.Dispatcher
	Rephraser  ai.Rephraser // optional; templates cover its absence
}

// RequestStatus is the customer-facing view of a request and its sessions.
// Booking is present once the request is ACCEPTED.
type RequestStatus struct {
	Request  *models.ServiceRequest `json:"request"`
	Sessions []SessionSummary       `json:"sessions"`
	Booking  *models.Booking        `json:"booking,omitempty"`
}

// SessionSummary strips a session down to what the customer may see. The
// transcript and the provider's messaging identity stay internal.
type SessionSummary struct {
	SessionID    string    `json:"sessionId"`
	ProviderID   string    `json:"providerId"`
	Status       string    `json:"status"`
	Outcome      string    `json:"outcome,omitempty"`
	CurrentOffer *float64  `json:"currentOffer,omitempty"`
	CounterOffer *float64  `json:"counterOffer,omitempty"`
	MessageCount int       `json:"messageCount"`
	ExpiresAt    time.Time `json:"expiresAt"`
}
