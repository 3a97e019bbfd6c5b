package tracker

import (
	"github.com/lintang-b-s/fleetmap/pkg/entity"
	"github.com/lintang-b-s/fleetmap/pkg/geo"
	"github.com/lintang-b-s/fleetmap/pkg/render"
	"github.com/lintang-b-s/fleetmap/pkg/spatialindex"
)

const nearestSelectedCount = 2

// RoutePair is an agent-customer association chosen for route display.
type RoutePair struct {
	AgentID    string
	CustomerID string
	Agent      geo.Coordinate
	Customer   geo.Coordinate
	Color      string
	DistanceKm float64
	TravelTime string
}

func newRoutePair(agent, customer entity.Entity) RoutePair {
	color := agent.RouteColor
	if color == "" {
		color = render.DefaultRouteColor
	}
	dist := geo.DistanceKm(agent.Location, customer.Location)
	return RoutePair{
		AgentID:    agent.ID,
		CustomerID: customer.ID,
		Agent:      agent.Location,
		Customer:   customer.Location,
		Color:      color,
		DistanceKm: dist,
		TravelTime: geo.EstimateTravelTime(dist),
	}
}

// Label is the text drawn at the pair's midpoint.
func (p RoutePair) Label() string {
	return formatRouteLabel(p.TravelTime, p.DistanceKm)
}

func find(list []entity.Entity, id string) (entity.Entity, bool) {
	if id == "" {
		return entity.Entity{}, false
	}
	for _, e := range list {
		if e.ID == id {
			return e, true
		}
	}
	return entity.Entity{}, false
}

func locations(list []entity.Entity) []geo.Coordinate {
	coords := make([]geo.Coordinate, len(list))
	for i, e := range list {
		coords[i] = e.Location
	}
	return coords
}

func nearest(anchor geo.Coordinate, candidates []entity.Entity, k int) []entity.Entity {
	rt := spatialindex.NewRtree()
	rt.Build(locations(candidates))
	hits := rt.Nearest(anchor, k)
	out := make([]entity.Entity, len(hits))
	for i, h := range hits {
		out[i] = candidates[h.Index]
	}
	return out
}

/*
SelectPairs decides which agent-customer pairs get a route:
  - agent and customer selected: exactly that pair, whatever the distance.
  - only an agent: the agent with its two nearest customers.
  - only a customer: the customer with its two nearest agents.
  - nothing: every agent with its single nearest customer.

Nearest is measured from the anchor entity. Equidistant candidates keep their input order.
A selected id that is not in its list counts as not selected.
*/
func SelectPairs(agents, customers []entity.Entity, sel entity.Selection) []RoutePair {
	agent, hasAgent := find(agents, sel.AgentID)
	customer, hasCustomer := find(customers, sel.CustomerID)

	var pairs []RoutePair
	switch {
	case hasAgent && hasCustomer:
		pairs = append(pairs, newRoutePair(agent, customer))

	case hasAgent:
		for _, c := range nearest(agent.Location, customers, nearestSelectedCount) {
			pairs = append(pairs, newRoutePair(agent, c))
		}

	case hasCustomer:
		for _, a := range nearest(customer.Location, agents, nearestSelectedCount) {
			pairs = append(pairs, newRoutePair(a, customer))
		}

	default:
		if len(customers) == 0 {
			return nil
		}
		rt := spatialindex.NewRtree()
		rt.Build(locations(customers))
		for _, a := range agents {
			hits := rt.Nearest(a.Location, 1)
			if len(hits) == 0 {
				continue
			}
			pairs = append(pairs, newRoutePair(a, customers[hits[0].Index]))
		}
	}
	return pairs
}

func samePairs(a, b []RoutePair) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
