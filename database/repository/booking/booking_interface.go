package bookingRepo

import (
	"molbhav/models"
)

// BookingRepository defines methods for booking data access.
// Lookups return (nil, nil) when no document matches.
type BookingRepository interface {
	// Create inserts a new booking record.
	Create(booking *models.Booking) error
	// GetByRequest retrieves the booking created for a service request.
	GetByRequest(requestID string) (*models.Booking, error)
}
