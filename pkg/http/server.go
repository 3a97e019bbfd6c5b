package http

import (
	"context"

	http_router "github.com/lintang-b-s/fleetmap/pkg/http/router"
	"github.com/lintang-b-s/fleetmap/pkg/http/router/controllers"
	http_server "github.com/lintang-b-s/fleetmap/pkg/http/server"
	"github.com/lintang-b-s/fleetmap/pkg/http/usecases"
	"github.com/lintang-b-s/fleetmap/pkg/util"
	"go.uber.org/zap"
)

// EventSource delivers marker events to be fanned out to websocket viewers.
type EventSource interface {
	OnEvent(fn func(usecases.Event))
}

type Server struct {
	Log *zap.Logger
}

func NewServer(log *zap.Logger) *Server {
	return &Server{Log: log}
}

// Use serves the API and the websocket feed until ctx is done.
func (s *Server) Use(
	ctx context.Context,
	config util.Config,

	useRateLimit bool,
	trackerService controllers.TrackerService,
	feed controllers.SceneFeed,
	events EventSource,
) error {
	serverConfig := http_server.Config{
		Port:           config.APIPort,
		WebsocketPort:  config.WebsocketPort,
		Timeout:        config.APITimeout,
		RateLimit:      config.RateLimit,
		RateLimitBurst: config.RateLimitBurst,
	}

	api := http_router.NewAPI(s.Log, trackerService, feed)
	if events != nil {
		events.OnEvent(api.Hub().Notify)
	}

	return api.Run(ctx, serverConfig, useRateLimit)
}
