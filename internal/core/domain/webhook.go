package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names an outbound notification kind delivered to merchant
// webhook endpoints.
type EventType string

const (
	EventPaymentSucceeded EventType = "payment.succeeded"
	EventPaymentFailed    EventType = "payment.failed"
	EventPaymentCancelled EventType = "payment.cancelled"
	EventPaymentRefunded  EventType = "payment.refunded"

	// EventWildcard subscribes a config to every event type.
	EventWildcard EventType = "*"
)

// WebhookConfig is a merchant's registered delivery target.
type WebhookConfig struct {
	ID         uuid.UUID // webhook config id (UUID)
	MerchantID uuid.UUID
	TargetURL  string
	EventTypes []string
	Secret     string
	IsActive   bool
}

// Subscribes reports whether this config should receive the given event.
func (w *WebhookConfig) Subscribes(event EventType) bool {
	if !w.IsActive {
		return false
	}
	for _, et := range w.EventTypes {
		if et == string(EventWildcard) || et == string(event) {
			return true
		}
	}
	return false
}

// WebhookDeliveryStatus represents the delivery state of one attempt record.
type WebhookDeliveryStatus string

const (
	WebhookDeliveryPending   WebhookDeliveryStatus = "pending"
	WebhookDeliveryDelivered WebhookDeliveryStatus = "delivered"
	WebhookDeliveryFailed    WebhookDeliveryStatus = "failed"
)

// WebhookLog records one delivery attempt sequence for audit.
type WebhookLog struct {
	ID              uuid.UUID
	WebhookConfigID uuid.UUID
	PaymentID       uuid.UUID
	EventType       EventType
	Payload         []byte // serialized JSON envelope
	Status          WebhookDeliveryStatus
	HTTPStatus      *int
	ResponseSnippet *string // trimmed to 500 chars
	AttemptCount    int
	CreatedAt       time.Time
	LastAttemptAt   *time.Time
	DeliveredAt     *time.Time
}

// WebhookPayload is the envelope serialized, signed, and POSTed to merchant
// endpoints (spec §4.H).
type WebhookPayload struct {
	APIVersion string             `json:"api_version"`
	EventType  string             `json:"event_type"`
	CreatedAt  string             `json:"created_at"`
	Data       WebhookPayloadData `json:"data"`
}

// WebhookPayloadData carries the payment fields mirrored to subscribers.
type WebhookPayloadData struct {
	PaymentRef            string  `json:"payment_ref"`
	OrderID               *string `json:"order_id"`
	Channel               string  `json:"channel"`
	Status                string  `json:"status"`
	Amount                float64 `json:"amount"`
	Currency              string  `json:"currency"`
	FeeAmount             float64 `json:"fee_amount"`
	NetAmount             float64 `json:"net_amount"`
	ProviderTransactionID *string `json:"provider_transaction_id"`
	CreatedAt             string  `json:"created_at"`
	CompletedAt           *string `json:"completed_at"`
	FailedAt              *string `json:"failed_at"`
	FailureReason         *string `json:"failure_reason"`
}

// ResponseSnippet trims a raw HTTP response body to the 500-character
// storage limit for WebhookLog.ResponseSnippet.
func ResponseSnippet(body string) string {
	const max = 500
	if len(body) <= max {
		return body
	}
	return body[:max]
}
