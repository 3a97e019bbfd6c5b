package controllers

import (
	"sync"
	"time"

	"github.com/lintang-b-s/fleetmap/pkg/entity"
	"github.com/lintang-b-s/fleetmap/pkg/geo"
	"github.com/lintang-b-s/fleetmap/pkg/http/usecases"
	"github.com/lintang-b-s/fleetmap/pkg/render"
	"github.com/lintang-b-s/fleetmap/pkg/tracker"
	"github.com/lintang-b-s/fleetmap/pkg/util"
	geojson "github.com/paulmach/go.geojson"
)

type fakeTracker struct {
	mu sync.Mutex

	agents, customers []entity.Entity
	selection         entity.Selection
	interval          time.Duration
	layers            map[render.Layer]bool
	resets            int
	clicks            []render.Handle
	actions           []render.Action
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{layers: map[render.Layer]bool{}}
}

const knownHandle = render.Handle("marker-1")

func (f *fakeTracker) UpdateEntities(agents, customers []entity.Entity) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.agents, f.customers = agents, customers
	return 7
}

func (f *fakeTracker) SetSelection(agentID, customerID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selection = entity.Selection{AgentID: agentID, CustomerID: customerID}
}

func (f *fakeTracker) Selection() entity.Selection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selection
}

func (f *fakeTracker) SetRefreshInterval(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interval = d
}

func (f *fakeTracker) SetLayerVisible(layer render.Layer, visible bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.layers[layer] = visible
}

func (f *fakeTracker) ResetView() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
}

func (f *fakeTracker) Stats() tracker.Stats {
	return tracker.Stats{ActiveAgents: 1, TotalAgents: 2, Customers: 3, Routes: 1}
}

func (f *fakeTracker) Pairs() []tracker.RoutePair {
	return []tracker.RoutePair{{
		AgentID:    "a1",
		CustomerID: "c1",
		Agent:      geo.NewCoordinate(0, 0),
		Customer:   geo.NewCoordinate(0.1, 0),
		Color:      "#3388ff",
		DistanceKm: 11.1,
		TravelTime: "22 mins",
	}}
}

func (f *fakeTracker) Scene() usecases.SceneState {
	fc := geojson.NewFeatureCollection()
	fc.AddFeature(geojson.NewPointFeature([]float64{106.8, -6.2}))
	return usecases.SceneState{
		View:   render.View{Center: geo.NewCoordinate(-6.2, 106.8), Zoom: 13},
		Layers: map[render.Layer]bool{render.LayerAgents: true},
		Scene:  fc,
	}
}

func (f *fakeTracker) Click(h render.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h != knownHandle {
		return util.WrapErrorf(render.ErrUnknownHandle, util.ErrNotFound, "marker not found")
	}
	f.clicks = append(f.clicks, h)
	return nil
}

func (f *fakeTracker) Invoke(h render.Handle, action render.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h != knownHandle {
		return util.WrapErrorf(render.ErrUnknownHandle, util.ErrNotFound, "marker not found")
	}
	if action != render.ActionContactAgent {
		return util.WrapErrorf(render.ErrNotInteractive, util.ErrBadParamInput, "interaction not supported")
	}
	f.actions = append(f.actions, action)
	return nil
}

func (f *fakeTracker) clickCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clicks)
}
