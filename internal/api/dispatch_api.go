package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/tinywideclouds/go-microservice-base/pkg/response"

	"github.com/tinywideclouds/go-push-dispatch-service/internal/dispatcher"
	"github.com/tinywideclouds/go-push-dispatch-service/pkg/notification"
)

// EventDispatcher is the orchestration contract the API depends on.
// Satisfied by *dispatcher.Dispatcher; mocked in tests.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event *notification.Event) (*notification.Result, error)
}

type DispatchAPI struct {
	Dispatcher EventDispatcher
	Logger     *slog.Logger
}

func NewDispatchAPI(d EventDispatcher, logger *slog.Logger) *DispatchAPI {
	return &DispatchAPI{
		Dispatcher: d,
		Logger:     logger.With("component", "DispatchAPI"),
	}
}

// HandleDispatch is the webhook trigger. Completed dispatches — including
// provider rejections and missing registrations — answer 200 so the event
// source does not redeliver; everything else is a 500 with the error
// message in the body.
func (api *DispatchAPI) HandleDispatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		api.Logger.Error("Failed to read request body", "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "failed to read request body")
		return
	}

	event, err := dispatcher.ParseEvent(body)
	if err != nil {
		// A malformed event is a caller bug, surfaced loudly rather than
		// acknowledged.
		api.Logger.Error("Malformed trigger event", "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := api.Dispatcher.Dispatch(ctx, event)
	if err != nil {
		api.Logger.Error("Dispatch aborted", "record_id", event.Record.ID, "err", err)
		if errors.Is(err, dispatcher.ErrMissingCredential) {
			response.WriteJSONError(w, http.StatusInternalServerError, "service account credential not configured")
			return
		}
		response.WriteJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if result.Outcome == notification.OutcomeNoToken {
		_, _ = w.Write([]byte(`{"outcome":"no_token"}`))
		return
	}
	// Relay the provider's response verbatim for both accepted and
	// rejected sends.
	_, _ = w.Write(result.ProviderResponse)
}
