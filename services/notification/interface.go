package notification

import (
	"context"
	"fmt"
	"time"

	notificationRepo "molbhav/database/repository/notification"
	providerRepo "molbhav/database/repository/provider"
	userRepo "molbhav/database/repository/user"
	"molbhav/models"
	"molbhav/utils"

	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// NotificationService persists in-app notifications and mirrors them as FCM
// pushes. Push delivery is best effort: a failed or impossible push is logged
// and swallowed so negotiation flow never stalls on the notification sink.
type NotificationService interface {
	NotifyUser(ctx context.Context, userID, ntype, title, message string, data map[string]string) error
	NotifyProvider(ctx context.Context, providerID, ntype, title, message string, data map[string]string) error
	ListForUser(userID string, limit int64) ([]models.Notification, error)
	MarkRead(id, userID string) (bool, error)
}

// DefaultNotificationService is the production implementation.
type DefaultNotificationService struct {
	Users         userRepo.UserRepository
	Providers     providerRepo.ProviderRepository
	Notifications notificationRepo.NotificationRepository
}

func NewDefaultNotificationService(
	users userRepo.UserRepository,
	providers providerRepo.ProviderRepository,
	notifications notificationRepo.NotificationRepository,
) (*DefaultNotificationService, error) {
	if users == nil || providers == nil || notifications == nil {
		return nil, fmt.Errorf("notification service initialization error: nil repository")
	}
	return &DefaultNotificationService{
		Users:         users,
		Providers:     providers,
		Notifications: notifications,
	}, nil
}

func (s *DefaultNotificationService) NotifyUser(
	ctx context.Context,
	userID, ntype, title, message string,
	data map[string]string,
) error {
	if err := s.record(userID, models.TargetUser, ntype, title, message, data); err != nil {
		return err
	}

	u, err := s.Users.GetByIDWithProjection(userID, bson.M{"fcmToken": 1})
	if err != nil || u == nil {
		utils.GetLogger().Warn("push skipped, user lookup failed",
			zap.String("userId", userID), zap.Error(err))
		return nil
	}
	s.push(ctx, u.FCMToken, title, message, withRole(data, models.TargetUser), false)
	return nil
}

func (s *DefaultNotificationService) NotifyProvider(
	ctx context.Context,
	providerID, ntype, title, message string,
	data map[string]string,
) error {
	if err := s.record(providerID, models.TargetProvider, ntype, title, message, data); err != nil {
		return err
	}

	p, err := s.Providers.GetByIDWithProjection(providerID, bson.M{"fcmToken": 1})
	if err != nil || p == nil {
		utils.GetLogger().Warn("push skipped, provider lookup failed",
			zap.String("providerId", providerID), zap.Error(err))
		return nil
	}
	s.push(ctx, p.FCMToken, title, message, withRole(data, models.TargetProvider), true)
	return nil
}

func (s *DefaultNotificationService) ListForUser(userID string, limit int64) ([]models.Notification, error) {
	return s.Notifications.GetByUser(userID, limit)
}

func (s *DefaultNotificationService) MarkRead(id, userID string) (bool, error) {
	return s.Notifications.MarkRead(id, userID)
}

// record stores the durable in-app notification.
func (s *DefaultNotificationService) record(userID, target, ntype, title, message string, data map[string]string) error {
	n := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Target:    target,
		Type:      ntype,
		Title:     title,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Notifications.Create(n); err != nil {
		return fmt.Errorf("failed to record notification for %s: %w", userID, err)
	}
	return nil
}

// push sends the FCM mirror of an in-app notification. Providers get
// high-priority delivery so offers reach them while negotiations are live.
func (s *DefaultNotificationService) push(ctx context.Context, token, title, body string, data map[string]string, highPriority bool) {
	logger := utils.GetLogger()
	if utils.FCMClient == nil || token == "" {
		logger.Debug("push skipped, no client or token")
		return
	}

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}
	if highPriority {
		msg.Android = &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority",
				Sound:     "default",
			},
		}
		msg.APNS = &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		}
	}

	if _, err := utils.FCMClient.Send(ctx, msg); err != nil {
		logger.Warn("push send failed", zap.Error(err))
	}
}

func withRole(data map[string]string, role string) map[string]string {
	if data == nil {
		data = map[string]string{}
	}
	if _, ok := data["role"]; !ok {
		data["role"] = role
	}
	return data
}
