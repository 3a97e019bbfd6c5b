package source

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lintang-b-s/fleetmap/pkg/entity"
	"github.com/lintang-b-s/fleetmap/pkg/geo"
	"golang.org/x/exp/rand"
)

var routeColors = []string{"#3388ff", "#ff8800", "#33cc33", "#aa44ff", "#ff3377", "#00bcd4"}

var statuses = []entity.Status{entity.StatusActive, entity.StatusActive, entity.StatusActive, entity.StatusIdle, entity.StatusOffline}

type SimulatorConfig struct {
	Center    geo.Coordinate
	RadiusKm  float64
	Agents    int
	Customers int
	// StepKm is the largest distance an agent moves per Fetch.
	StepKm float64
	Seed   uint64
}

/*
Simulator is a Source of sample data: customers are scattered once around Center, agents
random-walk by up to StepKm on every Fetch and now and then change status.
*/
type Simulator struct {
	mu        sync.Mutex
	cfg       SimulatorConfig
	rd        *rand.Rand
	agents    []entity.Entity
	customers []entity.Entity
	now       func() time.Time
}

func NewSimulator(cfg SimulatorConfig) *Simulator {
	if cfg.RadiusKm <= 0 {
		cfg.RadiusKm = 5
	}
	if cfg.StepKm <= 0 {
		cfg.StepKm = 0.15
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	s := &Simulator{
		cfg: cfg,
		rd:  rand.New(rand.NewSource(seed)),
		now: time.Now,
	}

	for i := 0; i < cfg.Agents; i++ {
		id := fmt.Sprintf("agent-%d", i+1)
		a := entity.NewAgent(id, fmt.Sprintf("Agent %d", i+1), s.randomCoordinate(),
			statuses[s.rd.Intn(len(statuses))], routeColors[i%len(routeColors)])
		s.agents = append(s.agents, a)
	}
	for i := 0; i < cfg.Customers; i++ {
		id := fmt.Sprintf("customer-%d", i+1)
		c := entity.NewCustomer(id, fmt.Sprintf("Customer %d", i+1), s.randomCoordinate(),
			fmt.Sprintf("Jl. Contoh No. %d", i+1))
		c.Priority = []string{"low", "normal", "high"}[s.rd.Intn(3)]
		s.customers = append(s.customers, c)
	}
	return s
}

func (s *Simulator) randomCoordinate() geo.Coordinate {
	bearing := s.rd.Float64() * 360
	dist := s.rd.Float64() * s.cfg.RadiusKm
	lat, lon := geo.GetDestinationPoint(s.cfg.Center.Lat, s.cfg.Center.Lon, bearing, dist)
	return geo.NewCoordinate(lat, lon)
}

// Step advances every agent once.
func (s *Simulator) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for i := range s.agents {
		a := &s.agents[i]
		if s.rd.Float64() < 0.05 {
			a.Status = statuses[s.rd.Intn(len(statuses))]
		}
		if a.Status == entity.StatusOffline {
			continue
		}

		bearing := s.rd.Float64() * 360
		dist := s.rd.Float64() * s.cfg.StepKm
		lat, lon := geo.GetDestinationPoint(a.Location.Lat, a.Location.Lon, bearing, dist)
		next := geo.NewCoordinate(lat, lon)
		// keep agents inside the service area
		if geo.DistanceKm(s.cfg.Center, next) > s.cfg.RadiusKm {
			lat, lon = geo.GetDestinationPoint(a.Location.Lat, a.Location.Lon,
				geo.Bearing(a.Location, s.cfg.Center), dist)
			next = geo.NewCoordinate(lat, lon)
		}
		a.Location = next
		t := now
		a.LastUpdate = &t
	}
}

func (s *Simulator) Snapshot() ([]entity.Entity, []entity.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.Entity(nil), s.agents...), append([]entity.Entity(nil), s.customers...)
}

// Fetch steps the simulation and returns the new state.
func (s *Simulator) Fetch(ctx context.Context) ([]entity.Entity, []entity.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	s.Step()
	agents, customers := s.Snapshot()
	return agents, customers, nil
}
