package models

import "time"

type Notification struct {
	ID        string            `bson:"id" json:"id"`
	UserID    string            `bson:"userId" json:"userId"`
	Target    string            `bson:"target" json:"target"` // "user" or "provider"
	Type      string            `bson:"type" json:"type"`
	Title     string            `bson:"title" json:"title"`
	Message   string            `bson:"message" json:"message"`
	Data      map[string]string `bson:"data,omitempty" json:"data,omitempty"`
	Read      bool              `bson:"read" json:"read"`
	CreatedAt time.Time         `bson:"createdAt" json:"createdAt"`
}

const (
	TargetUser     = "user"
	TargetProvider = "provider"
)

const (
	NotificationOffersReady    = "offers_ready"
	NotificationNoOffers       = "no_offers"
	NotificationNewOffer       = "new_offer"
	NotificationDealAgreed     = "deal_agreed"
	NotificationDealFailed     = "deal_failed"
	NotificationBookingCreated = "booking_created"
	NotificationNotSelected    = "not_selected"
	NotificationInvitation     = "invitation"
)
