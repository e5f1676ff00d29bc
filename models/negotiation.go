package models

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// NegotiationSession is one bot-to-provider price conversation. MaxPrice and
// MinAcceptable are fixed at creation; everything else mutates only while the
// session is active, guarded by Version.
type NegotiationSession struct {
	ID                  string                `bson:"id" json:"id"`
	RequestID           string                `bson:"requestId" json:"requestId"`
	ProviderID          string                `bson:"providerId" json:"providerId"`
	ProviderIdentity    string                `bson:"providerIdentity" json:"providerIdentity"` // e.g., "telegram:12345", "whatsapp:+9198..."
	MaxPrice            float64               `bson:"maxPrice" json:"maxPrice"`
	MinAcceptable       float64               `bson:"minAcceptable" json:"minAcceptable"`
	CurrentOffer        *float64              `bson:"currentOffer,omitempty" json:"currentOffer,omitempty"`
	CounterOffer        *float64              `bson:"counterOffer,omitempty" json:"counterOffer,omitempty"`
	Status              string                `bson:"status" json:"status"`
	Outcome             string                `bson:"outcome,omitempty" json:"outcome,omitempty"`
	ConversationHistory []ConversationMessage `bson:"conversationHistory" json:"conversationHistory"`
	MessageCount        int                   `bson:"messageCount" json:"messageCount"`
	Version             int64                 `bson:"version" json:"-"`
	ExpiresAt           time.Time             `bson:"expiresAt" json:"expiresAt"`
	CreatedAt           time.Time             `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time             `bson:"updatedAt" json:"updatedAt"`
}

// ConversationMessage is one entry in a session's append-only transcript.
type ConversationMessage struct {
	ID        string    `bson:"id" json:"id"` // ULID, sortable by emit order
	Role      string    `bson:"role" json:"role"`
	Text      string    `bson:"text" json:"text"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

const (
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
	SessionStatusFailed    = "failed"
	SessionStatusExpired   = "expired"
)

const (
	OutcomeAgreed    = "agreed"
	OutcomeNoDeal    = "no_deal"
	OutcomeTimeout   = "timeout"
	OutcomeCancelled = "cancelled"
)

const (
	RoleSystem        = "system"
	RoleProviderParty = "provider"
	RoleAgent         = "agent"
)

// Agreed reports whether this session ended with a deal inside budget.
func (s *NegotiationSession) Agreed() bool {
	return s.Status == SessionStatusCompleted && s.Outcome == OutcomeAgreed
}

// Append adds one transcript entry and keeps MessageCount in sync. The
// history is append-only; entries are never edited or removed.
func (s *NegotiationSession) Append(role, text string) {
	s.ConversationHistory = append(s.ConversationHistory, ConversationMessage{
		ID:        ulid.Make().String(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
	})
	s.MessageCount = len(s.ConversationHistory)
}

// Offer is the customer-facing view of an agreed session.
type Offer struct {
	SessionID    string    `json:"sessionId"`
	ProviderID   string    `json:"providerId"`
	ProviderName string    `json:"providerName,omitempty"`
	AgreedPrice  float64   `json:"agreedPrice"`
	Rating       float64   `json:"rating,omitempty"`
	AgreedAt     time.Time `json:"agreedAt"`
}
