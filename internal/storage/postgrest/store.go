// Package postgrest implements the token and record store contracts against
// a PostgREST-style REST API, authenticated with a service-role key.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tinywideclouds/go-push-dispatch-service/pkg/notification"
)

// ErrUnavailable wraps every failure to reach or read the store, so callers
// can treat transport and HTTP-level problems uniformly.
var ErrUnavailable = errors.New("record store unavailable")

// Store talks to two tables: fcm_tokens (read-only device-token lookup,
// one row per profile) and notifications (delivery_status write-back).
type Store struct {
	baseURL    string
	serviceKey string
	client     *http.Client
	logger     *slog.Logger
}

func NewStore(baseURL, serviceKey string, client *http.Client, logger *slog.Logger) *Store {
	if client == nil {
		client = http.DefaultClient
	}
	return &Store{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		client:     client,
		logger:     logger.With("component", "PostgrestStore"),
	}
}

// DeviceToken fetches the registered token for a profile. Zero rows is a
// routine outcome reported via found=false.
func (s *Store) DeviceToken(ctx context.Context, profileID string) (string, bool, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/fcm_tokens?select=token&profile_id=eq.%s&limit=1",
		s.baseURL, url.QueryEscape(profileID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		s.logger.Error("Token lookup returned non-OK status", "status", resp.StatusCode, "body", string(body))
		return "", false, fmt.Errorf("%w: token lookup status %d", ErrUnavailable, resp.StatusCode)
	}

	var rows []struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return "", false, fmt.Errorf("%w: decoding token rows: %w", ErrUnavailable, err)
	}

	if len(rows) == 0 || rows[0].Token == "" {
		return "", false, nil
	}
	return rows[0].Token, true, nil
}

// SetDeliveryStatus patches the delivery_status column of one notification
// row.
func (s *Store) SetDeliveryStatus(ctx context.Context, recordID string, status notification.DeliveryStatus) error {
	endpoint := fmt.Sprintf("%s/rest/v1/notifications?id=eq.%s", s.baseURL, url.QueryEscape(recordID))

	payload, err := json.Marshal(map[string]notification.DeliveryStatus{"delivery_status": status})
	if err != nil {
		return fmt.Errorf("%w: encoding status: %w", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	s.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		s.logger.Error("Status write returned non-success", "status", resp.StatusCode, "record_id", recordID)
		return fmt.Errorf("%w: status write returned %d", ErrUnavailable, resp.StatusCode)
	}

	return nil
}

func (s *Store) authorize(req *http.Request) {
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
}
