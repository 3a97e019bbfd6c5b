package routing

import (
	"context"
	"errors"

	"github.com/lintang-b-s/fleetmap/pkg/geo"
)

var (
	ErrNoPath      = errors.New("no road path between the given points")
	ErrUnavailable = errors.New("routing backend unavailable")
)

// Path is a road path as returned by a routing backend. ETA is in minutes.
type Path struct {
	Coordinates []geo.Coordinate
	DistanceKm  float64
	ETA         float64
}

// Service computes road paths. Implementations must honour ctx cancellation.
type Service interface {
	ComputeRoute(ctx context.Context, from, to geo.Coordinate) (Path, error)
}

// Unavailable is a Service that never finds a path; routes are always drawn as straight lines.
type Unavailable struct{}

func (Unavailable) ComputeRoute(ctx context.Context, from, to geo.Coordinate) (Path, error) {
	return Path{}, ErrUnavailable
}
