package negotiationRepo

import (
	"time"

	"molbhav/models"
)

// SessionCounts is an aggregate snapshot of a request's sessions.
type SessionCounts struct {
	Contacted int // all sessions ever opened
	Agreed    int // completed with outcome agreed
	Active    int // still negotiating
}

// NegotiationRepository defines methods for negotiation session data access.
// Lookups return (nil, nil) when no document matches. Sessions are never
// deleted; terminal sessions are frozen because every mutation goes through
// UpdateGuarded, which only matches active documents.
type NegotiationRepository interface {
	// Create inserts a new negotiation session record.
	Create(s *models.NegotiationSession) error
	// GetByID retrieves a session by its unique ID.
	GetByID(id string) (*models.NegotiationSession, error)
	// GetByRequest retrieves all sessions of a request, oldest first.
	GetByRequest(requestID string) ([]models.NegotiationSession, error)
	// GetAgreedByRequest retrieves a request's agreed sessions, cheapest offer first.
	GetAgreedByRequest(requestID string) ([]models.NegotiationSession, error)
	// FindActiveByIdentity retrieves the active sessions bound to a provider
	// messaging identity, newest first.
	FindActiveByIdentity(identity string) ([]models.NegotiationSession, error)
	// HasActive reports whether the (request, identity) pair already has an
	// active session.
	HasActive(requestID, identity string) (bool, error)
	// UpdateGuarded writes back a session loaded at its current Version. The
	// write matches only an active document at that exact version and bumps
	// the version; false means the caller lost a race (or the session went
	// terminal) and must reload before retrying.
	UpdateGuarded(s *models.NegotiationSession) (bool, error)
	// CountsByRequest recomputes session counts from the stored documents.
	CountsByRequest(requestID string) (SessionCounts, error)
	// ExpireActive force-finishes a request's active sessions as
	// expired/timeout. With force unset only sessions past their ExpiresAt
	// are touched. Returns how many sessions were expired.
	ExpireActive(requestID string, now time.Time, force bool) (int64, error)
	// CancelActive force-finishes a request's active sessions as
	// failed/cancelled. Returns how many sessions were cancelled.
	CancelActive(requestID string) (int64, error)
}
