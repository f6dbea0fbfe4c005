// Package dispatcher orchestrates one notification delivery: device-token
// lookup, bearer-token mint, provider send, and status write-back, in
// strict sequence with no retries.
package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tinywideclouds/go-push-dispatch-service/pkg/dispatch"
	"github.com/tinywideclouds/go-push-dispatch-service/pkg/notification"
)

var (
	ErrMalformedEvent    = errors.New("malformed event")
	ErrMissingCredential = errors.New("service account credential not configured")
)

const (
	clickAction = "FLUTTER_NOTIFICATION_CLICK"
	defaultType = "general"
)

// ParseEvent decodes the inbound trigger body. A body that is not valid
// JSON or that lacks a recipient identifier is a bug in the caller, so it
// fails hard. A recipient with no registered device, by contrast, is a
// routine Dispatch outcome.
func ParseEvent(body []byte) (*notification.Event, error) {
	var event notification.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	if event.Record.RecipientProfileID == "" {
		return nil, fmt.Errorf("%w: missing recipient_profile_id", ErrMalformedEvent)
	}
	return &event, nil
}

// Dispatcher runs the delivery sequence. Per invocation: exactly one token
// lookup, at most one mint, at most one send, at most one status write.
// Nothing is shared between invocations; concurrent dispatches each mint
// their own bearer token.
type Dispatcher struct {
	tokens  dispatch.TokenStore
	records dispatch.RecordStore
	minter  dispatch.TokenMinter
	sender  dispatch.Sender
	logger  *slog.Logger
}

func New(
	tokens dispatch.TokenStore,
	records dispatch.RecordStore,
	minter dispatch.TokenMinter,
	sender dispatch.Sender,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		tokens:  tokens,
		records: records,
		minter:  minter,
		sender:  sender,
		logger:  logger.With("component", "Dispatcher"),
	}
}

// Dispatch delivers one event to its terminal outcome. An error return
// means the invocation aborted; a Result means the outcome was persisted
// and should be reported to the trigger source as handled.
func (d *Dispatcher) Dispatch(ctx context.Context, event *notification.Event) (*notification.Result, error) {
	record := event.Record
	log := d.logger.With(
		"dispatch_id", uuid.NewString(),
		"record_id", record.ID,
		"recipient_profile_id", record.RecipientProfileID,
	)

	// 1. Resolve the device token.
	deviceToken, found, err := d.tokens.DeviceToken(ctx, record.RecipientProfileID)
	if err != nil {
		return nil, fmt.Errorf("device token lookup: %w", err)
	}
	if !found {
		// Missing registration is normal: record it and stop, no mint, no send.
		if err := d.records.SetDeliveryStatus(ctx, record.ID, notification.StatusFailedNoToken); err != nil {
			return nil, fmt.Errorf("persisting no-token status: %w", err)
		}
		log.Info("No device token registered; dispatch skipped")
		return &notification.Result{Outcome: notification.OutcomeNoToken}, nil
	}

	// 2. Mint a bearer token for this invocation only.
	if d.minter == nil {
		return nil, ErrMissingCredential
	}
	bearerToken, err := d.minter.Mint(ctx)
	if err != nil {
		return nil, fmt.Errorf("minting bearer token: %w", err)
	}

	// 3. Send.
	result, err := d.sender.Send(ctx, bearerToken, dispatch.Message{
		Token: deviceToken,
		Title: record.Title,
		Body:  record.Body,
		Data:  dataPayload(record),
	})
	if err != nil {
		return nil, fmt.Errorf("provider send: %w", err)
	}

	// 4. Persist the outcome. A rejection is handled, not escalated, so
	// the trigger source does not retry.
	if !result.OK() {
		log.Warn("Provider rejected message", "status", result.StatusCode, "body", string(result.Body))
		if err := d.records.SetDeliveryStatus(ctx, record.ID, notification.StatusFailedFCM); err != nil {
			return nil, fmt.Errorf("persisting rejection status: %w", err)
		}
		return &notification.Result{
			Outcome:          notification.OutcomeProviderRejected,
			ProviderResponse: result.Body,
		}, nil
	}

	if err := d.records.SetDeliveryStatus(ctx, record.ID, notification.StatusSent); err != nil {
		return nil, fmt.Errorf("persisting sent status: %w", err)
	}
	log.Info("Notification dispatched")
	return &notification.Result{
		Outcome:          notification.OutcomeSent,
		ProviderResponse: result.Body,
	}, nil
}

// dataPayload builds the message data block: a click-action marker for the
// client app, the notification type tag, and the event payload re-serialized
// as a string.
func dataPayload(record notification.Record) map[string]string {
	notificationType := record.Type
	if notificationType == "" {
		notificationType = defaultType
	}

	payload := "{}"
	if len(record.Payload) > 0 {
		payload = string(record.Payload)
	}

	return map[string]string{
		"click_action": clickAction,
		"type":         notificationType,
		"payload":      payload,
	}
}
