package usecases

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lintang-b-s/fleetmap/pkg/entity"
	"github.com/lintang-b-s/fleetmap/pkg/render"
	"github.com/lintang-b-s/fleetmap/pkg/tracker"
	"github.com/lintang-b-s/fleetmap/pkg/util"
	geojson "github.com/paulmach/go.geojson"
	"go.uber.org/zap"
)

// Event is a viewer interaction with a marker, as reported to websocket clients.
type Event struct {
	Kind   string        `json:"kind"`
	ID     string        `json:"id"`
	Action render.Action `json:"action,omitempty"`
	At     time.Time     `json:"at"`
}

type SceneState struct {
	View   render.View                `json:"view"`
	Layers map[render.Layer]bool      `json:"layers"`
	Scene  *geojson.FeatureCollection `json:"scene"`
}

type TrackerService struct {
	log    *zap.Logger
	engine TrackerEngine
	scene  Scene
	store  EntityStore

	mu        sync.RWMutex
	listeners []func(Event)
}

func NewTrackerService(log *zap.Logger, engine TrackerEngine, scene Scene, store EntityStore) *TrackerService {
	return &TrackerService{
		log:    log,
		engine: engine,
		scene:  scene,
		store:  store,
	}
}

// SetEngine attaches the engine once it exists; the engine needs the service as its EventHandler.
func (ts *TrackerService) SetEngine(engine TrackerEngine) {
	ts.engine = engine
}

// UpdateEntities stores the lists for the next refresh and pushes them to the engine now.
func (ts *TrackerService) UpdateEntities(agents, customers []entity.Entity) uint64 {
	version := ts.store.Set(agents, customers)
	ts.engine.UpdateEntities(agents, customers)
	return version
}

func (ts *TrackerService) SetSelection(agentID, customerID string) {
	ts.engine.SetSelection(agentID, customerID)
}

func (ts *TrackerService) Selection() entity.Selection {
	return ts.engine.Selection()
}

func (ts *TrackerService) SetRefreshInterval(d time.Duration) {
	ts.engine.SetRefreshInterval(d)
}

func (ts *TrackerService) SetLayerVisible(layer render.Layer, visible bool) {
	ts.engine.SetLayerVisible(layer, visible)
}

func (ts *TrackerService) ResetView() {
	ts.engine.ResetView()
}

func (ts *TrackerService) Stats() tracker.Stats {
	return ts.engine.Stats()
}

func (ts *TrackerService) Pairs() []tracker.RoutePair {
	return ts.engine.Pairs()
}

func (ts *TrackerService) Scene() SceneState {
	layers := make(map[render.Layer]bool, 3)
	for _, l := range []render.Layer{render.LayerAgents, render.LayerCustomers, render.LayerRoutes} {
		layers[l] = ts.scene.LayerVisible(l)
	}
	return SceneState{
		View:   ts.scene.View(),
		Layers: layers,
		Scene:  ts.scene.FeatureCollection(),
	}
}

func (ts *TrackerService) Click(h render.Handle) error {
	return wrapSceneError(ts.scene.Click(h))
}

func (ts *TrackerService) Invoke(h render.Handle, action render.Action) error {
	return wrapSceneError(ts.scene.Invoke(h, action))
}

func wrapSceneError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, render.ErrUnknownHandle):
		return util.WrapErrorf(err, util.ErrNotFound, "marker not found")
	case errors.Is(err, render.ErrNotInteractive):
		return util.WrapErrorf(err, util.ErrBadParamInput, "interaction not supported")
	default:
		return util.WrapErrorf(err, util.ErrInternalServerError, "scene interaction")
	}
}

// OnEvent registers fn for every marker interaction.
func (ts *TrackerService) OnEvent(fn func(Event)) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.listeners = append(ts.listeners, fn)
}

func (ts *TrackerService) emit(ev Event) {
	ts.mu.RLock()
	listeners := ts.listeners
	ts.mu.RUnlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

func (ts *TrackerService) MarkerSelected(kind entity.Kind, id string) {
	ts.log.Info("marker selected", zap.Stringer("kind", kind), zap.String("id", id))
	ts.emit(Event{Kind: kind.String(), ID: id, At: time.Now()})
}

func (ts *TrackerService) ActionInvoked(kind entity.Kind, id string, action render.Action) {
	ts.log.Info(fmt.Sprintf("%s requested", action), zap.Stringer("kind", kind), zap.String("id", id))
	ts.emit(Event{Kind: kind.String(), ID: id, Action: action, At: time.Now()})
}
