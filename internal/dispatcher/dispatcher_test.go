package dispatcher_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/go-push-dispatch-service/internal/dispatcher"
	"github.com/tinywideclouds/go-push-dispatch-service/pkg/dispatch"
	"github.com/tinywideclouds/go-push-dispatch-service/pkg/notification"
)

// --- Mocks ---

type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) DeviceToken(ctx context.Context, profileID string) (string, bool, error) {
	args := m.Called(ctx, profileID)
	return args.String(0), args.Bool(1), args.Error(2)
}

type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) SetDeliveryStatus(ctx context.Context, recordID string, status notification.DeliveryStatus) error {
	return m.Called(ctx, recordID, status).Error(0)
}

type MockMinter struct {
	mock.Mock
}

func (m *MockMinter) Mint(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, bearerToken string, msg dispatch.Message) (*dispatch.SendResult, error) {
	args := m.Called(ctx, bearerToken, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dispatch.SendResult), args.Error(1)
}

// --- Setup ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	tokens  *MockTokenStore
	records *MockRecordStore
	minter  *MockMinter
	sender  *MockSender
	d       *dispatcher.Dispatcher
}

func newFixture() *fixture {
	f := &fixture{
		tokens:  new(MockTokenStore),
		records: new(MockRecordStore),
		minter:  new(MockMinter),
		sender:  new(MockSender),
	}
	f.d = dispatcher.New(f.tokens, f.records, f.minter, f.sender, newTestLogger())
	return f
}

func testEvent() *notification.Event {
	return &notification.Event{Record: notification.Record{
		ID:                 "n1",
		RecipientProfileID: "p1",
		Title:              "Hi",
		Body:               "there",
	}}
}

// --- ParseEvent ---

func TestParseEvent(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		event, err := dispatcher.ParseEvent([]byte(`{"record":{"id":"n1","recipient_profile_id":"p1","title":"Hi","body":"there"}}`))
		require.NoError(t, err)
		assert.Equal(t, "n1", event.Record.ID)
		assert.Equal(t, "p1", event.Record.RecipientProfileID)
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		_, err := dispatcher.ParseEvent([]byte(`{not json`))
		require.ErrorIs(t, err, dispatcher.ErrMalformedEvent)
	})

	t.Run("Missing recipient", func(t *testing.T) {
		_, err := dispatcher.ParseEvent([]byte(`{"record":{"id":"n1","title":"Hi"}}`))
		require.ErrorIs(t, err, dispatcher.ErrMalformedEvent)
	})
}

// --- Dispatch ---

func TestDispatch_NoToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.tokens.On("DeviceToken", ctx, "p1").Return("", false, nil)
	f.records.On("SetDeliveryStatus", ctx, "n1", notification.StatusFailedNoToken).Return(nil)

	result, err := f.d.Dispatch(ctx, testEvent())

	require.NoError(t, err)
	assert.Equal(t, notification.OutcomeNoToken, result.Outcome)
	assert.Nil(t, result.ProviderResponse)

	// Exactly one status write, zero mint and send calls.
	f.records.AssertNumberOfCalls(t, "SetDeliveryStatus", 1)
	f.minter.AssertNotCalled(t, "Mint", mock.Anything)
	f.sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatch_Sent(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	providerBody := []byte(`{"name":"projects/p/messages/0:1"}`)

	f.tokens.On("DeviceToken", ctx, "p1").Return("device-token-1", true, nil)
	f.minter.On("Mint", ctx).Return("bearer-abc", nil)
	f.sender.On("Send", ctx, "bearer-abc", mock.Anything).
		Return(&dispatch.SendResult{StatusCode: http.StatusOK, Body: providerBody}, nil)
	f.records.On("SetDeliveryStatus", ctx, "n1", notification.StatusSent).Return(nil)

	result, err := f.d.Dispatch(ctx, testEvent())

	require.NoError(t, err)
	assert.Equal(t, notification.OutcomeSent, result.Outcome)
	assert.Equal(t, providerBody, result.ProviderResponse)
	f.records.AssertNumberOfCalls(t, "SetDeliveryStatus", 1)
	f.minter.AssertNumberOfCalls(t, "Mint", 1)
	f.sender.AssertNumberOfCalls(t, "Send", 1)
}

func TestDispatch_ProviderRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	rejection := []byte(`{"error":{"status":"NOT_FOUND"}}`)

	f.tokens.On("DeviceToken", ctx, "p1").Return("device-token-1", true, nil)
	f.minter.On("Mint", ctx).Return("bearer-abc", nil)
	f.sender.On("Send", ctx, "bearer-abc", mock.Anything).
		Return(&dispatch.SendResult{StatusCode: http.StatusNotFound, Body: rejection}, nil)
	f.records.On("SetDeliveryStatus", ctx, "n1", notification.StatusFailedFCM).Return(nil)

	result, err := f.d.Dispatch(ctx, testEvent())

	// Rejection is a handled outcome, not an error.
	require.NoError(t, err)
	assert.Equal(t, notification.OutcomeProviderRejected, result.Outcome)
	assert.Equal(t, rejection, result.ProviderResponse)
	f.records.AssertExpectations(t)
}

func TestDispatch_DataPayload(t *testing.T) {
	ctx := context.Background()

	t.Run("Defaults applied", func(t *testing.T) {
		f := newFixture()
		f.tokens.On("DeviceToken", ctx, "p1").Return("device-token-1", true, nil)
		f.minter.On("Mint", ctx).Return("bearer-abc", nil)

		var sentMsg dispatch.Message
		f.sender.On("Send", ctx, "bearer-abc", mock.Anything).
			Run(func(args mock.Arguments) { sentMsg = args.Get(2).(dispatch.Message) }).
			Return(&dispatch.SendResult{StatusCode: http.StatusOK, Body: []byte(`{}`)}, nil)
		f.records.On("SetDeliveryStatus", ctx, "n1", notification.StatusSent).Return(nil)

		_, err := f.d.Dispatch(ctx, testEvent())

		require.NoError(t, err)
		assert.Equal(t, "device-token-1", sentMsg.Token)
		assert.Equal(t, "Hi", sentMsg.Title)
		assert.Equal(t, "there", sentMsg.Body)
		assert.Equal(t, map[string]string{
			"click_action": "FLUTTER_NOTIFICATION_CLICK",
			"type":         "general",
			"payload":      "{}",
		}, sentMsg.Data)
	})

	t.Run("Type and payload carried through", func(t *testing.T) {
		f := newFixture()
		event := testEvent()
		event.Record.Type = "friend_request"
		event.Record.Payload = []byte(`{"from":"p2"}`)

		f.tokens.On("DeviceToken", ctx, "p1").Return("device-token-1", true, nil)
		f.minter.On("Mint", ctx).Return("bearer-abc", nil)

		var sentMsg dispatch.Message
		f.sender.On("Send", ctx, "bearer-abc", mock.Anything).
			Run(func(args mock.Arguments) { sentMsg = args.Get(2).(dispatch.Message) }).
			Return(&dispatch.SendResult{StatusCode: http.StatusOK, Body: []byte(`{}`)}, nil)
		f.records.On("SetDeliveryStatus", ctx, "n1", notification.StatusSent).Return(nil)

		_, err := f.d.Dispatch(ctx, event)

		require.NoError(t, err)
		assert.Equal(t, "friend_request", sentMsg.Data["type"])
		assert.JSONEq(t, `{"from":"p2"}`, sentMsg.Data["payload"])
	})
}

func TestDispatch_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("Lookup failure aborts before any write", func(t *testing.T) {
		f := newFixture()
		f.tokens.On("DeviceToken", ctx, "p1").Return("", false, errors.New("store down"))

		_, err := f.d.Dispatch(ctx, testEvent())

		require.Error(t, err)
		f.records.AssertNotCalled(t, "SetDeliveryStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Mint failure aborts without send or write", func(t *testing.T) {
		f := newFixture()
		f.tokens.On("DeviceToken", ctx, "p1").Return("device-token-1", true, nil)
		f.minter.On("Mint", ctx).Return("", errors.New("exchange rejected"))

		_, err := f.d.Dispatch(ctx, testEvent())

		require.Error(t, err)
		f.sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
		f.records.AssertNotCalled(t, "SetDeliveryStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Transport failure aborts without write", func(t *testing.T) {
		f := newFixture()
		f.tokens.On("DeviceToken", ctx, "p1").Return("device-token-1", true, nil)
		f.minter.On("Mint", ctx).Return("bearer-abc", nil)
		f.sender.On("Send", ctx, "bearer-abc", mock.Anything).Return(nil, errors.New("fcm unreachable"))

		_, err := f.d.Dispatch(ctx, testEvent())

		require.Error(t, err)
		f.records.AssertNotCalled(t, "SetDeliveryStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Missing credential", func(t *testing.T) {
		f := newFixture()
		f.tokens.On("DeviceToken", ctx, "p1").Return("device-token-1", true, nil)
		d := dispatcher.New(f.tokens, f.records, nil, f.sender, newTestLogger())

		_, err := d.Dispatch(ctx, testEvent())

		require.ErrorIs(t, err, dispatcher.ErrMissingCredential)
	})
}
