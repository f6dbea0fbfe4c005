// Package dispatchservice assembles the push dispatch webhook service.
package dispatchservice

import (
	"log/slog"
	"net/http"

	"github.com/tinywideclouds/go-microservice-base/pkg/microservice"

	"github.com/tinywideclouds/go-push-dispatch-service/dispatchservice/config"
	"github.com/tinywideclouds/go-push-dispatch-service/internal/api"
)

type Wrapper struct {
	*microservice.BaseServer
	logger *slog.Logger
}

// New assembles the service: the trigger route, guarded by the shared-secret
// middleware, on top of the base server's health endpoints.
func New(
	cfg *config.Config,
	eventDispatcher api.EventDispatcher,
	authMiddleware func(http.Handler) http.Handler,
	logger *slog.Logger,
) (*Wrapper, error) {

	baseServer := microservice.NewBaseServer(logger, cfg.ListenAddr)

	dispatchAPI := api.NewDispatchAPI(eventDispatcher, logger)

	mux := baseServer.Mux()
	mux.Handle("POST /api/v1/dispatch", authMiddleware(http.HandlerFunc(dispatchAPI.HandleDispatch)))

	return &Wrapper{
		BaseServer: baseServer,
		logger:     logger,
	}, nil
}

// Start marks the service ready and blocks serving HTTP. Shutdown is
// inherited from the base server.
func (w *Wrapper) Start() error {
	w.SetReady(true)
	w.logger.Info("Service is now ready.")
	return w.BaseServer.Start()
}
