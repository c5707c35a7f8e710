package services

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/chachabrian/rideon-backend/internal/models"
	"github.com/chachabrian/rideon-backend/pkg/logger"
	"google.golang.org/api/option"
	"gorm.io/gorm"
)

// InitFirebase returns a messaging client, or nil when no service account is configured
func InitFirebase(ctx context.Context, serviceAccountPath string) (*messaging.Client, error) {
	if serviceAccountPath == "" {
		return nil, nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(serviceAccountPath))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}
	return client, nil
}

// MessageSender is the part of the FCM client used here
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// PushNotifier sends events with a title to the user's registered device
type PushNotifier struct {
	sender MessageSender
	db     *gorm.DB
	log    *logger.Logger
}

func NewPushNotifier(sender MessageSender, db *gorm.DB, log *logger.Logger) *PushNotifier {
	return &PushNotifier{sender: sender, db: db, log: log}
}

func (p *PushNotifier) NotifyUser(ctx context.Context, userID uint, event Event) {
	if p.sender == nil || event.Title == "" {
		return
	}

	var user models.User
	if err := p.db.WithContext(ctx).Select("id", "fcm_token").First(&user, userID).Error; err != nil {
		p.log.Warn("Push skipped, user lookup failed", logger.Uint("user_id", userID), logger.Err(err))
		return
	}
	if user.FCMToken == nil || *user.FCMToken == "" {
		return
	}

	data := map[string]string{"type": event.Type}
	for k, v := range event.Data {
		data[k] = fmt.Sprint(v)
	}

	_, err := p.sender.Send(ctx, &messaging.Message{
		Token: *user.FCMToken,
		Notification: &messaging.Notification{
			Title: event.Title,
			Body:  event.Body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID:    "rideon_rides",
				Sound:        "default",
				DefaultSound: true,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	})
	if err == nil {
		return
	}

	if messaging.IsUnregistered(err) {
		p.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("fcm_token", nil)
		p.log.Info("Removed unregistered FCM token", logger.Uint("user_id", userID))
		return
	}
	p.log.Warn("Push notification failed", logger.Uint("user_id", userID), logger.Err(err))
}
