package domain

import "time"

// Webhook represents a participant's subscription to an event notification.
type Webhook struct {
	WebhookID     string
	ParticipantID string
	Event         string
	URL           string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
