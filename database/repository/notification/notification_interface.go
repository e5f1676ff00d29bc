package notificationRepo

import (
	"molbhav/models"
)

// NotificationRepository defines methods for in-app notification data access.
type NotificationRepository interface {
	// Create inserts a new notification record.
	Create(n *models.Notification) error
	// GetByUser retrieves a user's notifications, newest first.
	GetByUser(userID string, limit int64) ([]models.Notification, error)
	// MarkRead flags a notification as read. Returns false when the
	// notification does not exist or belongs to someone else.
	MarkRead(id, userID string) (bool, error)
}
