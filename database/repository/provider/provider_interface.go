package providerRepo

import (
	"molbhav/models"

	"go.mongodb.org/mongo-driver/bson"
)

// ProviderSearchCriteria defines criteria for a geo provider search.
type ProviderSearchCriteria struct {
	LocationGeo   models.GeoPoint
	MaxDistanceKm float64
	Limit         int64 // 0 means no limit
}

// ProviderRepository defines methods for provider data access. Provider
// records are written by the external directory service; this side only reads.
// Lookups return (nil, nil) when no document matches.
type ProviderRepository interface {
	// GetByIDWithProjection retrieves a provider by its unique ID with a projection.
	GetByIDWithProjection(id string, projection bson.M) (*models.Provider, error)
	// SearchNearby returns eligible providers around a point, nearest first.
	// Eligible means active, verified, with a complete profile.
	SearchNearby(criteria ProviderSearchCriteria) ([]models.Provider, error)
}
