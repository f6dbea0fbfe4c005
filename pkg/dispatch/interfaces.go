// Package dispatch defines the contracts between the dispatch orchestration
// and its collaborators: the device-token store, the record store, the
// token minter, and the push provider.
package dispatch

import (
	"context"
	"net/http"

	"github.com/tinywideclouds/go-push-dispatch-service/pkg/notification"
)

// TokenStore looks up the push-provider device token registered for a
// recipient profile.
type TokenStore interface {
	// DeviceToken returns the registered token for the profile, if any.
	// A missing registration is reported via found=false, not an error.
	DeviceToken(ctx context.Context, profileID string) (token string, found bool, err error)
}

// RecordStore writes the terminal delivery status back to the notification
// record owned by the external store.
type RecordStore interface {
	SetDeliveryStatus(ctx context.Context, recordID string, status notification.DeliveryStatus) error
}

// TokenMinter produces a short-lived bearer token accepted by the push
// provider's send API. Tokens are minted fresh per invocation and never
// cached or shared.
type TokenMinter interface {
	Mint(ctx context.Context) (string, error)
}

// Message is the single-device push request handed to a Sender.
type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// SendResult carries the provider's verbatim response. A non-2xx status is
// a rejected send, not a transport error; the Dispatcher persists and
// reports it rather than crashing the invocation.
type SendResult struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the provider accepted the message.
func (r *SendResult) OK() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

// Sender delivers one message to the push provider. An error means the
// provider could not be reached or the request could not be built; a
// rejection surfaces in the SendResult.
type Sender interface {
	Send(ctx context.Context, bearerToken string, msg Message) (*SendResult, error)
}
