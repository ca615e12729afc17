package dto

import "encoding/json"

// PayPalWebhookEvent is the envelope of a PayPal webhook delivery
type PayPalWebhookEvent struct {
	ID           string          `json:"id"`
	EventType    string          `json:"event_type"`
	ResourceType string          `json:"resource_type"`
	Resource     json.RawMessage `json:"resource"`
}

// PayPalWebhookResource holds the resource fields used to find the subscription.
// Subscription events carry the subscription in id, sale events in billing_agreement_id.
type PayPalWebhookResource struct {
	ID                 string `json:"id"`
	BillingAgreementID string `json:"billing_agreement_id"`
}
