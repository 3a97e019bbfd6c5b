package usecases

import (
	"time"

	"github.com/lintang-b-s/fleetmap/pkg/entity"
	"github.com/lintang-b-s/fleetmap/pkg/render"
	"github.com/lintang-b-s/fleetmap/pkg/tracker"
	geojson "github.com/paulmach/go.geojson"
)

type TrackerEngine interface {
	UpdateEntities(agents, customers []entity.Entity)
	SetSelection(agentID, customerID string)
	SetRefreshInterval(d time.Duration)
	SetLayerVisible(layer render.Layer, visible bool)
	ResetView()
	Stats() tracker.Stats
	Pairs() []tracker.RoutePair
	Selection() entity.Selection
}

type Scene interface {
	FeatureCollection() *geojson.FeatureCollection
	View() render.View
	LayerVisible(layer render.Layer) bool
	Click(h render.Handle) error
	Invoke(h render.Handle, action render.Action) error
}

type EntityStore interface {
	Set(agents, customers []entity.Entity) uint64
}
