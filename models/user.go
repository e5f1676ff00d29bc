package models

import "time"

// User is a customer account. Registration and profile management live in a
// separate service; this backend only reads users for auth and notification.
type User struct {
	ID                string    `bson:"id" json:"id"`
	Name              string    `bson:"name" json:"name"`
	Email             string    `bson:"email" json:"email,omitempty"`
	PhoneNumber       string    `bson:"phoneNumber" json:"phoneNumber,omitempty"`
	PreferredLanguage string    `bson:"preferredLanguage,omitempty" json:"preferredLanguage,omitempty"`
	FCMToken          string    `bson:"fcmToken,omitempty" json:"-"`
	TokenHash         string    `bson:"tokenHash" json:"-"`
	Devices           []Device  `bson:"devices,omitempty" json:"devices,omitempty"`
	CreatedAt         time.Time `bson:"createdAt" json:"createdAt,omitzero"`
	UpdatedAt         time.Time `bson:"updatedAt" json:"updatedAt,omitzero"`
}
