package controllers

import (
	"time"

	"github.com/lintang-b-s/fleetmap/pkg/entity"
	"github.com/lintang-b-s/fleetmap/pkg/http/usecases"
	"github.com/lintang-b-s/fleetmap/pkg/render"
	"github.com/lintang-b-s/fleetmap/pkg/tracker"
)

type TrackerService interface {
	UpdateEntities(agents, customers []entity.Entity) uint64
	SetSelection(agentID, customerID string)
	Selection() entity.Selection
	SetRefreshInterval(d time.Duration)
	SetLayerVisible(layer render.Layer, visible bool)
	ResetView()
	Stats() tracker.Stats
	Pairs() []tracker.RoutePair
	Scene() usecases.SceneState
	Click(h render.Handle) error
	Invoke(h render.Handle, action render.Action) error
}

// SceneFeed streams scene mutations and marker events to websocket viewers.
type SceneFeed interface {
	Subscribe(buffer int) (<-chan render.Op, func())
}
