package userRepo

import (
	"molbhav/models"

	"go.mongodb.org/mongo-driver/bson"
)

// UserRepository defines methods for user data access. User accounts are
// written by the external identity service; this side only reads token hashes
// and device tokens. Lookups return (nil, nil) when no document matches.
type UserRepository interface {
	// GetByIDWithProjection retrieves a user by its unique ID with a projection.
	GetByIDWithProjection(id string, projection bson.M) (*models.User, error)
}
