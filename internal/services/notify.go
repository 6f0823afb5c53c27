package services

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/certificate"
	"github.com/sideshow/apns2/payload"
)

// Notifier delivers APNs push notifications to offline chat
// participants. It satisfies ChatPusher.
type Notifier struct {
	client *apns2.Client
	topic  string
}

// NewNotifier creates a notifier from a p12 certificate file
func NewNotifier(certPath, certPassword, topic string, production bool) (*Notifier, error) {
	cert, err := certificate.FromP12File(certPath, certPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs certificate: %w", err)
	}

	client := apns2.NewClient(cert)
	if production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &Notifier{client: client, topic: topic}, nil
}

// PushChatMessage sends a chat-message notification to a device.
// Best-effort: failures are logged and never propagate.
func (n *Notifier) PushChatMessage(deviceToken, sender, preview string) {
	if len(preview) > 120 {
		preview = preview[:117] + "..."
	}

	notification := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       n.topic,
		Payload: payload.NewPayload().
			AlertTitle(sender).
			AlertBody(preview).
			Sound("default"),
	}

	res, err := n.client.Push(notification)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to push chat notification")
		return
	}
	if !res.Sent() {
		log.Warn().Int("status", res.StatusCode).Str("reason", res.Reason).Msg("Chat notification rejected")
	}
}
