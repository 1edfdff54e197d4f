package notify

import (
	"context"
	"fmt"
	"strconv"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	"google.golang.org/api/option"
)

// Push sends notifications through Firebase Cloud Messaging.
type Push struct {
	client *messaging.Client
}

// NewPush initialises the Firebase app from a service-account file.
func NewPush(ctx context.Context, credentialsFile string) (*Push, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase messaging: %w", err)
	}
	return &Push{client: client}, nil
}

func (p *Push) Name() string { return "fcm" }

func (p *Push) Deliver(ctx context.Context, to Recipient, e Event) error {
	if to.DeviceToken == "" {
		return ErrSkipped
	}
	msg := &messaging.Message{
		Token: to.DeviceToken,
		Notification: &messaging.Notification{
			Title: e.Title,
			Body:  e.Message,
		},
		Data: map[string]string{
			"type":       e.Type,
			"booking_id": strconv.FormatInt(e.BookingID, 10),
			"status":     e.Status,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": "10"},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}
	_, err := p.client.Send(ctx, msg)
	return err
}
