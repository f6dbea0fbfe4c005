// Package notification contains the public domain models for the push
// dispatch service.
package notification

import "encoding/json"

// DeliveryStatus is the value written back to the notification record after
// a dispatch attempt. The string values match the record store's enum.
type DeliveryStatus string

const (
	StatusSent          DeliveryStatus = "sent"
	StatusFailedNoToken DeliveryStatus = "failed_no_token"
	StatusFailedFCM     DeliveryStatus = "failed_fcm"
)

// Outcome classifies how a dispatch attempt terminated. NoToken and
// ProviderRejected are expected outcomes, not errors: they are persisted and
// reported back to the trigger as handled.
type Outcome string

const (
	OutcomeSent             Outcome = "sent"
	OutcomeNoToken          Outcome = "no_token"
	OutcomeProviderRejected Outcome = "provider_rejected"
)

// Record is the notification row as carried by the inbound trigger event.
// The service never owns this record; it reads these fields and writes back
// exactly one delivery status.
type Record struct {
	ID                 string          `json:"id"`
	RecipientProfileID string          `json:"recipient_profile_id"`
	Title              string          `json:"title"`
	Body               string          `json:"body"`
	Type               string          `json:"type,omitempty"`
	Payload            json.RawMessage `json:"payload,omitempty"`
}

// Event is the inbound trigger body.
type Event struct {
	Record Record `json:"record"`
}

// Result is the terminal state of one dispatch invocation. ProviderResponse
// carries the push provider's raw JSON body for Sent and ProviderRejected;
// it is nil for NoToken.
type Result struct {
	Outcome          Outcome
	ProviderResponse []byte
}
