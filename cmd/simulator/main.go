package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lintang-b-s/fleetmap/pkg/entity"
	"github.com/lintang-b-s/fleetmap/pkg/geo"
	"github.com/lintang-b-s/fleetmap/pkg/logger"
	"github.com/lintang-b-s/fleetmap/pkg/source"
	"go.uber.org/zap"
)

// simulator pushes random-walk agents and fixed customers to a running fleetmap server.
var cli struct {
	API       string        `help:"fleetmap API base URL." default:"http://localhost:6060"`
	Interval  time.Duration `help:"Time between pushes." default:"2s"`
	Agents    int           `help:"Number of agents." default:"5"`
	Customers int           `help:"Number of customers." default:"12"`
	CenterLat float64       `help:"Centre latitude." default:"-6.2"`
	CenterLon float64       `help:"Centre longitude." default:"106.8"`
	RadiusKm  float64       `help:"Radius around the centre in km." default:"5"`
	StepKm    float64       `help:"Largest agent move per push in km." default:"0.15"`
	Seed      uint64        `help:"Random seed, 0 picks one from the clock."`
}

type entitiesRequest struct {
	Agents    []entity.Entity `json:"agents"`
	Customers []entity.Entity `json:"customers"`
}

func main() {
	kong.Parse(&cli,
		kong.Name("simulator"),
		kong.Description("Random-walk data generator for the fleetmap API."),
	)

	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	sim := source.NewSimulator(source.SimulatorConfig{
		Center:    geo.NewCoordinate(cli.CenterLat, cli.CenterLon),
		RadiusKm:  cli.RadiusKm,
		Agents:    cli.Agents,
		Customers: cli.Customers,
		StepKm:    cli.StepKm,
		Seed:      cli.Seed,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := &http.Client{Timeout: 10 * time.Second}
	ticker := time.NewTicker(cli.Interval)
	defer ticker.Stop()

	for {
		agents, customers, err := sim.Fetch(ctx)
		if err != nil {
			log.Info("simulator stopped", zap.Error(err))
			return
		}
		if err := push(ctx, client, agents, customers); err != nil {
			log.Warn("push entities", zap.Error(err))
		} else {
			log.Debug("pushed entities", zap.Int("agents", len(agents)), zap.Int("customers", len(customers)))
		}

		select {
		case <-ctx.Done():
			log.Info("simulator stopped")
			return
		case <-ticker.C:
		}
	}
}

func push(ctx context.Context, client *http.Client, agents, customers []entity.Entity) error {
	body, err := json.Marshal(entitiesRequest{Agents: agents, Customers: customers})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, cli.API+"/api/entities", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}
