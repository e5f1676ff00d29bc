package models

import "time"

// GeoPoint represents a GeoJSON Point.
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`               // Always "Point"
	Coordinates []float64 `bson:"coordinates" json:"coordinates"` // [longitude, latitude]
}

type ProviderProfile struct {
	Name            string   `bson:"name" json:"name"`
	PhoneNumber     string   `bson:"phoneNumber" json:"phoneNumber,omitempty"`
	Status          string   `bson:"status" json:"status"` // "active" or "inactive"
	Verified        bool     `bson:"verified" json:"verified"`
	ProfileComplete bool     `bson:"profileComplete" json:"profileComplete"`
	Rating          float64  `bson:"rating" json:"rating,omitempty"`
	LocationGeo     GeoPoint `bson:"locationGeo" json:"locationGeo"`
}

type Provider struct {
	ID                string          `bson:"id" json:"id"`
	Profile           ProviderProfile `bson:"profile" json:"profile"`
	Services          []string        `bson:"services" json:"services"` // advertised service names, matched against request categories
	MessagingIdentity string          `bson:"messagingIdentity,omitempty" json:"messagingIdentity,omitempty"`
	PreferredLanguage string          `bson:"preferredLanguage,omitempty" json:"preferredLanguage,omitempty"`
	FCMToken          string          `bson:"fcmToken,omitempty" json:"-"`
	CompletedJobs     int             `bson:"completedJobs" json:"completedJobs,omitempty"`
	Devices           []Device        `bson:"devices,omitempty" json:"devices,omitempty"`
	CreatedAt         time.Time       `bson:"createdAt" json:"createdAt,omitzero"`
	UpdatedAt         time.Time       `bson:"updatedAt" json:"updatedAt,omitzero"`
}

const (
	ProviderStatusActive   = "active"
	ProviderStatusInactive = "inactive"
)

// Reachable reports whether the provider can be negotiated with over chat.
func (p *Provider) Reachable() bool {
	return p.MessagingIdentity != ""
}
