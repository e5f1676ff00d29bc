package models

import "time"

// ServiceRequest is a customer's ask: what they need, where, and the most
// they are willing to pay. Negotiations hang off it one per provider.
type ServiceRequest struct {
	ID                 string    `bson:"id" json:"id"`
	CustomerID         string    `bson:"customerId" json:"customerId"`
	Description        string    `bson:"description" json:"description"`
	ServiceCategories  []string  `bson:"serviceCategories" json:"serviceCategories"` // e.g., ["plumbing", "pipe repair"]
	LocationGeo        GeoPoint  `bson:"locationGeo" json:"locationGeo"`
	CustomerBudget     float64   `bson:"customerBudget" json:"customerBudget"` // hard ceiling, whole currency units
	PreferredDate      string    `bson:"preferredDate,omitempty" json:"preferredDate,omitempty"`
	Status             string    `bson:"status" json:"status"`
	SelectedSessionID  string    `bson:"selectedSessionId,omitempty" json:"selectedSessionId,omitempty"`
	ProvidersContacted int       `bson:"providersContacted" json:"providersContacted"`
	OffersReceived     int       `bson:"offersReceived" json:"offersReceived"`
	CreatedAt          time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time `bson:"updatedAt" json:"updatedAt"`
}

const (
	RequestStatusPending     = "PENDING"
	RequestStatusNegotiating = "NEGOTIATING"
	RequestStatusOffersReady = "OFFERS_READY"
	RequestStatusAccepted    = "ACCEPTED"
	RequestStatusExpired     = "EXPIRED"
	RequestStatusCancelled   = "CANCELLED"
)

// RequestStatusTerminal reports whether no further transitions are allowed.
func RequestStatusTerminal(status string) bool {
	switch status {
	case RequestStatusAccepted, RequestStatusExpired, RequestStatusCancelled:
		return true
	}
	return false
}
