package services

import (
	"context"
	"log"

	"firebase.google.com/go/messaging"

	"github.com/ituby/GenieAI-sub000/internal/repositories"
)

// fcmSender is the one messaging.Client method the service uses.
type fcmSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// NotificationService delivers push notifications to every registered device
// of a user. Delivery is best effort: failures are logged and never bubble up
// into the business flow that triggered the push.
type NotificationService struct {
	Client     fcmSender
	DeviceRepo *repositories.DeviceTokenRepository
}

func NewNotificationService(client *messaging.Client, deviceRepo *repositories.DeviceTokenRepository) *NotificationService {
	s := &NotificationService{DeviceRepo: deviceRepo}
	if client != nil {
		s.Client = client
	}
	return s
}

func (s *NotificationService) SendToUser(ctx context.Context, userID int, title, body, link string) {
	if s == nil || s.Client == nil {
		return
	}
	tokens, err := s.DeviceRepo.ListByUser(ctx, userID)
	if err != nil {
		log.Printf("push: load device tokens for user %d: %v", userID, err)
		return
	}

	for _, t := range tokens {
		message := &messaging.Message{
			Token: t.Token,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Data: map[string]string{
				"link": link,
			},
			Android: &messaging.AndroidConfig{
				Priority: "high",
			},
			APNS: &messaging.APNSConfig{
				Headers: map[string]string{
					"apns-priority": "10",
				},
				Payload: &messaging.APNSPayload{
					Aps: &messaging.Aps{
						Alert: &messaging.ApsAlert{
							Title: title,
							Body:  body,
						},
						Sound: "default",
					},
				},
			},
		}

		if _, err := s.Client.Send(ctx, message); err != nil {
			log.Printf("push: send to user %d: %v", userID, err)
			// Stale tokens accumulate; drop tokens FCM rejects outright.
			if messaging.IsRegistrationTokenNotRegistered(err) {
				if delErr := s.DeviceRepo.Delete(ctx, t.Token); delErr != nil {
					log.Printf("push: drop stale token: %v", delErr)
				}
			}
		}
	}
}

func (s *NotificationService) RegisterDevice(ctx context.Context, userID int, token, platform string) error {
	return s.DeviceRepo.Save(ctx, userID, token, platform)
}

func (s *NotificationService) UnregisterDevice(ctx context.Context, token string) error {
	return s.DeviceRepo.Delete(ctx, token)
}
