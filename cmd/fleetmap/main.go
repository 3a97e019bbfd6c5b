package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/lintang-b-s/fleetmap/pkg/geo"
	"github.com/lintang-b-s/fleetmap/pkg/host"
	fleethttp "github.com/lintang-b-s/fleetmap/pkg/http"
	"github.com/lintang-b-s/fleetmap/pkg/http/usecases"
	"github.com/lintang-b-s/fleetmap/pkg/logger"
	"github.com/lintang-b-s/fleetmap/pkg/render"
	"github.com/lintang-b-s/fleetmap/pkg/routing"
	"github.com/lintang-b-s/fleetmap/pkg/source"
	"github.com/lintang-b-s/fleetmap/pkg/tracker"
	"github.com/lintang-b-s/fleetmap/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var cli struct {
	ConfigDir   string  `help:"Directory holding config.yaml." default:"./data/"`
	RateLimit   bool    `help:"Rate limit the HTTP API." default:"true" negatable:""`
	Simulate    bool    `help:"Feed the tracker from the built-in random-walk simulator."`
	SimRadiusKm float64 `help:"Simulator radius around the map centre in km." default:"5"`
	ViewWidth   int     `help:"Viewer width in pixels used to fit bounds." default:"1024"`
	ViewHeight  int     `help:"Viewer height in pixels used to fit bounds." default:"600"`
}

var defaultCenter = geo.NewCoordinate(-6.2, 106.8)

func main() {
	kong.Parse(&cli,
		kong.Name("fleetmap"),
		kong.Description("Live agent and customer tracking server."),
	)

	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := util.ReadConfig(cli.ConfigDir); err != nil {
		log.Fatal("read config", zap.Error(err))
	}
	config := util.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, config); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("fleetmap stopped", zap.Error(err))
		return
	}
	log.Info("fleetmap stopped")
}

func run(ctx context.Context, log *zap.Logger, config util.Config) error {
	loop := host.NewLoop(log, config.FrameRate)

	scene := render.NewScene(config.DefaultZoom)
	scene.SetViewportSize(cli.ViewWidth, cli.ViewHeight)

	var center *geo.Coordinate
	if config.HasCenter {
		c := geo.NewCoordinate(config.CenterLat, config.CenterLon)
		center = &c
	}

	var routingService routing.Service = routing.Unavailable{}
	if config.RoutingURL != "" {
		client, err := routing.NewClient(log, routing.ClientConfig{
			BaseURL:   config.RoutingURL,
			Timeout:   config.RoutingTimeout,
			Rate:      config.RoutingRate,
			Burst:     config.RoutingBurst,
			CacheSize: config.RoutingCacheSize,
		}, http.DefaultClient)
		if err != nil {
			return err
		}
		routingService = client
	} else {
		log.Info("no routing service configured, routes are drawn as straight lines")
	}

	store := source.NewMemory()
	var src tracker.Source = store
	if cli.Simulate || config.SimulatorEnabled {
		simCenter := defaultCenter
		if center != nil {
			simCenter = *center
		}
		src = source.NewSimulator(source.SimulatorConfig{
			Center:    simCenter,
			RadiusKm:  cli.SimRadiusKm,
			Agents:    config.SimulatorAgents,
			Customers: config.SimulatorCustomers,
			StepKm:    config.SimulatorStepKm,
		})
		log.Sugar().Infof("feeding tracker from simulator: %d agents, %d customers",
			config.SimulatorAgents, config.SimulatorCustomers)
	}

	service := usecases.NewTrackerService(log, nil, scene, store)
	engine, err := tracker.NewEngine(tracker.Config{
		Scheduler:       loop,
		Renderer:        scene,
		Routing:         routingService,
		Source:          src,
		Events:          service,
		Log:             log,
		RefreshInterval: config.RefreshInterval,
		DefaultZoom:     config.DefaultZoom,
		Center:          center,
		RoutingWorkers:  config.RoutingWorkers,
	})
	if err != nil {
		return err
	}
	defer engine.Dispose()
	service.SetEngine(engine)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx)
	})
	g.Go(func() error {
		api := fleethttp.NewServer(log)
		return api.Use(gctx, config, cli.RateLimit, service, scene, service)
	})

	return g.Wait()
}
