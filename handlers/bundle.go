package handlers

import (
	userRepoPkg "molbhav/database/repository/user"
)

// HandlerBundle groups all endpoint handlers plus what route registration
// needs to build middleware.
type HandlerBundle struct {
	UserRepo userRepoPkg.UserRepository

	Negotiation  *NegotiationHandler
	Notification *NotificationHandler
	Webhook      *WebhookHandler
}
