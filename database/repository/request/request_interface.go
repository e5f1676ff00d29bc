package requestRepo

import (
	"molbhav/models"
)

// ServiceRequestRepository defines methods for service request data access.
// Lookups return (nil, nil) when no document matches.
type ServiceRequestRepository interface {
	// Create inserts a new service request record.
	Create(req *models.ServiceRequest) error
	// GetByID retrieves a service request by its unique ID.
	GetByID(id string) (*models.ServiceRequest, error)
	// UpdateStatus moves a request from one of the allowed statuses to the
	// target status. Returns false when the request was not in an allowed
	// status (or does not exist); transitions never run backwards.
	UpdateStatus(id string, allowedFrom []string, to string) (bool, error)
	// SetCounters raises the cached contacted/offers counters. Values only
	// ever go up; stale recomputations lose silently.
	SetCounters(id string, providersContacted, offersReceived int) error
	// SetSelected claims the request for one winning session: sets
	// SelectedSessionID and status ACCEPTED in a single conditional update.
	// Returns false when another selection already won or the request is not
	// in a selectable status.
	SetSelected(id, sessionID string) (bool, error)
}
