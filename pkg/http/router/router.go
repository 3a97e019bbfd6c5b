package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/lintang-b-s/fleetmap/pkg/concurrent"
	"github.com/lintang-b-s/fleetmap/pkg/http/router/controllers"
	router_helper "github.com/lintang-b-s/fleetmap/pkg/http/router/routerhelper"
	http_server "github.com/lintang-b-s/fleetmap/pkg/http/server"
	"github.com/mailru/easygo/netpoll"
	"golang.org/x/time/rate"

	"github.com/julienschmidt/httprouter"
	"github.com/justinas/alice"
	"github.com/rs/cors"
	"go.uber.org/zap"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "net/http/pprof"
)

type API struct {
	log     *zap.Logger
	service controllers.TrackerService
	feed    controllers.SceneFeed

	hub    *controllers.Hub
	poller netpoll.Poller
	pool   *concurrent.Pool
}

func NewAPI(log *zap.Logger, service controllers.TrackerService, feed controllers.SceneFeed) *API {
	return &API{
		log:     log,
		service: service,
		feed:    feed,
		hub:     controllers.NewHub(service, log),
	}
}

// Hub is the websocket viewer hub; marker events reach viewers through Hub().Notify.
func (api *API) Hub() *controllers.Hub {
	return api.hub
}

//	@title			fleetmap API
//	@version		1.0
//	@description	Live agent and customer tracking with route rendering.

//	@license.name	BSD License
//	@license.url	https://opensource.org/license/bsd-2-clause

// @host		localhost
// @BasePath	/api
func (api *API) Handler(config http_server.Config, useRateLimit bool) http.Handler {
	router := httprouter.New()

	corsHandler := cors.New(cors.Options{ //nolint:gocritic // ignore
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, //nolint:mnd // ignore

	})

	router.GET("/doc/*any", swaggerHandler)

	router.Handler(http.MethodGet, "/debug/pprof/*item", http.DefaultServeMux)

	group := router_helper.NewRouteGroup(router, "/api")

	trackerRoutes := controllers.New(api.service, api.log)

	trackerRoutes.Routes(group)

	var mwChain []alice.Constructor
	mwChain = append(mwChain, corsHandler.Handler, EnforceJSONHandler, api.recoverPanic,
		RealIP, Heartbeat("healthz"), Logger(api.log), Labels)
	if useRateLimit {
		mwChain = append(mwChain, Limit(rate.NewLimiter(rate.Limit(config.RateLimit), config.RateLimitBurst)))
	}
	mainMwChain := alice.New(mwChain...).Then(router)

	// the websocket upgrade bypasses the middleware chain: it needs the raw hijackable connection.
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", api.upstream("scene feed", "tcp", "localhost:"+strconv.Itoa(config.WebsocketPort)))
	mux.Handle("/", mainMwChain)
	return mux
}

func (api *API) Run(
	ctx context.Context,
	config http_server.Config,
	useRateLimit bool,
) error {
	api.log.Info("Run httprouter API")

	errChan := make(chan error, 1)

	go api.hub.Run(ctx, api.feed)

	go func() {
		errChan <- api.handleWebsocket(ctx, config)
	}()

	srv := http_server.New(ctx, api.Handler(config, useRateLimit), config, false)
	api.log.Info(fmt.Sprintf("API run on port %d", config.Port))

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		_ = srv.Shutdown(context.Background())
		if err == nil {
			return ctx.Err()
		}
		api.log.Error("Websocket error, shutting down server", zap.Error(err))
		return err
	case err := <-serverErr:
		api.log.Info("HTTP server stopped", zap.Error(err))
		return err
	case <-ctx.Done():
		api.log.Info("Context canceled, shutting down server")
		_ = srv.Shutdown(context.Background())
		if err := <-errChan; err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return ctx.Err()
	}
}

func swaggerHandler(res http.ResponseWriter, req *http.Request, p httprouter.Params) {
	httpSwagger.WrapHandler(res, req)
}
