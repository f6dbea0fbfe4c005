// Package fcm sends single-device messages through the FCM HTTP v1 API.
package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/tinywideclouds/go-push-dispatch-service/pkg/dispatch"
)

// Endpoint is the FCM HTTP v1 base URL.
const Endpoint = "https://fcm.googleapis.com/v1"

// Sender posts to the per-project messages:send endpoint, authorized with a
// freshly minted bearer token. The provider's response body is returned
// verbatim in both the accepted and rejected cases so the caller can relay
// it to the trigger source.
type Sender struct {
	projectID string
	endpoint  string
	client    *http.Client
	logger    *slog.Logger
}

func NewSender(projectID string, client *http.Client, logger *slog.Logger) *Sender {
	if client == nil {
		client = http.DefaultClient
	}
	return &Sender{
		projectID: projectID,
		endpoint:  Endpoint,
		client:    client,
		logger:    logger.With("component", "FCMSender"),
	}
}

type sendRequest struct {
	Message message `json:"message"`
}

type message struct {
	Token        string            `json:"token"`
	Notification notificationBody  `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type notificationBody struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// SendURL returns the per-project send endpoint.
func (s *Sender) SendURL() string {
	return fmt.Sprintf("%s/projects/%s/messages:send", s.endpoint, s.projectID)
}

// Send delivers one message. An error means the request could not be built
// or the provider could not be reached; a non-2xx provider status comes
// back in the SendResult for the caller to classify.
func (s *Sender) Send(ctx context.Context, bearerToken string, msg dispatch.Message) (*dispatch.SendResult, error) {
	payload, err := json.Marshal(sendRequest{
		Message: message{
			Token: msg.Token,
			Notification: notificationBody{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data: msg.Data,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding fcm message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.SendURL(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building fcm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearerToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fcm transport failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading fcm response: %w", err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		s.logger.Warn("FCM rejected message", "status", resp.StatusCode, "body", string(body))
	}

	return &dispatch.SendResult{StatusCode: resp.StatusCode, Body: body}, nil
}
