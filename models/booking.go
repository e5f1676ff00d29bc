package models

import "time"

// Booking is the record created when a customer selects an agreed offer.
type Booking struct {
	ID          string    `bson:"id" json:"id"`
	RequestID   string    `bson:"requestId" json:"requestId"`
	SessionID   string    `bson:"sessionId" json:"sessionId"`
	CustomerID  string    `bson:"customerId" json:"customerId"`
	ProviderID  string    `bson:"providerId" json:"providerId"`
	Description string    `bson:"description" json:"description"`
	AgreedPrice float64   `bson:"agreedPrice" json:"agreedPrice"`
	Status      string    `bson:"status" json:"status"` // e.g., "confirmed"
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

const BookingStatusConfirmed = "confirmed"
