package tracker

import (
	"time"

	"github.com/lintang-b-s/fleetmap/pkg/entity"
	"github.com/lintang-b-s/fleetmap/pkg/geo"
	"github.com/lintang-b-s/fleetmap/pkg/render"
	"go.uber.org/zap"
)

type markerKey struct {
	kind entity.Kind
	id   string
}

type renderedMarker struct {
	handle render.Handle
	drawn  geo.Coordinate
	target geo.Coordinate
}

// interactions builds the click and popup callbacks handed to the renderer for a marker.
type interactions func(kind entity.Kind, id string) (onClick func(), onAction func(render.Action))

// reconciler owns the entity id to marker table. All methods run on the loop.
type reconciler struct {
	r         render.Renderer
	log       *zap.Logger
	validator *entity.Validator
	anim      *animator
	interact  interactions

	markers map[markerKey]*renderedMarker
	// rejections already logged, per kind, until the entity becomes valid or disappears
	logged map[entity.Kind]map[string]struct{}
}

func newReconciler(r render.Renderer, log *zap.Logger, anim *animator, interact interactions) *reconciler {
	return &reconciler{
		r:         r,
		log:       log,
		validator: entity.NewValidator(),
		anim:      anim,
		interact:  interact,
		markers:   make(map[markerKey]*renderedMarker),
		logged: map[entity.Kind]map[string]struct{}{
			entity.KindAgent:    {},
			entity.KindCustomer: {},
		},
	}
}

/*
reconcile brings the markers of one kind in line with list and returns the valid entities
in input order.

New ids get a marker at their coordinate. Known ids that moved are animated from the
currently drawn position. Ids missing from list lose their marker. An id that is present
but malformed keeps its marker as it is. Style, tooltip and popup are pushed for every
valid entity on every pass.
*/
func (rc *reconciler) reconcile(kind entity.Kind, list []entity.Entity, sel entity.Selection) []entity.Entity {
	valid, present, rejected := rc.validator.Filter(kind, list)
	rc.logRejections(kind, rejected)

	for key, m := range rc.markers {
		if key.kind != kind {
			continue
		}
		if _, ok := present[key.id]; !ok {
			rc.remove(key, m)
		}
	}

	for _, e := range valid {
		key := markerKey{kind: kind, id: e.ID}
		selected := sel.Selects(kind, e.ID)
		style, tooltip, popup := appearance(kind, e, selected)

		m, ok := rc.markers[key]
		if !ok {
			rc.add(key, e, style, tooltip, popup)
			continue
		}

		if m.target != e.Location {
			m.target = e.Location
			rc.anim.animate(key, m.handle, m.drawn, e.Location, func(p geo.Coordinate) { m.drawn = p })
		}
		if err := rc.r.StyleMarker(m.handle, style, tooltip, popup); err != nil {
			rc.log.Warn("style marker", zap.Stringer("kind", kind), zap.String("id", e.ID), zap.Error(err))
		}
	}
	return valid
}

func (rc *reconciler) add(key markerKey, e entity.Entity, style render.MarkerStyle, tooltip string, popup []render.PopupField) {
	spec := render.MarkerSpec{
		Layer:    layerOf(key.kind),
		Position: e.Location,
		Style:    style,
		Tooltip:  tooltip,
		Title:    e.Name,
		Popup:    popup,
		Actions:  actionsOf(key.kind),
	}
	if rc.interact != nil {
		spec.OnClick, spec.OnAction = rc.interact(key.kind, key.id)
	}

	h, err := rc.r.AddMarker(spec)
	if err != nil {
		rc.log.Warn("add marker", zap.Stringer("kind", key.kind), zap.String("id", key.id), zap.Error(err))
		return
	}
	rc.markers[key] = &renderedMarker{handle: h, drawn: e.Location, target: e.Location}
}

func (rc *reconciler) remove(key markerKey, m *renderedMarker) {
	rc.anim.cancel(key)
	delete(rc.markers, key)
	if err := rc.r.RemoveMarker(m.handle); err != nil {
		rc.log.Warn("remove marker", zap.Stringer("kind", key.kind), zap.String("id", key.id), zap.Error(err))
	}
}

func (rc *reconciler) removeAll() {
	for key, m := range rc.markers {
		rc.remove(key, m)
	}
}

func (rc *reconciler) logRejections(kind entity.Kind, rejected []entity.Rejection) {
	current := make(map[string]struct{}, len(rejected))
	for _, rj := range rejected {
		k := rj.Key()
		current[k] = struct{}{}
		if _, seen := rc.logged[kind][k]; seen {
			continue
		}
		rc.log.Warn("skipping malformed entity",
			zap.Stringer("kind", kind), zap.Int("index", rj.Index),
			zap.String("id", rj.ID), zap.String("reason", rj.Reason))
	}
	rc.logged[kind] = current
}

// drawnPosition is where the marker for key currently sits on the map.
func (rc *reconciler) drawnPosition(kind entity.Kind, id string) (geo.Coordinate, bool) {
	m, ok := rc.markers[markerKey{kind: kind, id: id}]
	if !ok {
		return geo.Coordinate{}, false
	}
	return m.drawn, true
}

func (rc *reconciler) count(kind entity.Kind) int {
	n := 0
	for key := range rc.markers {
		if key.kind == kind {
			n++
		}
	}
	return n
}

func layerOf(kind entity.Kind) render.Layer {
	if kind == entity.KindAgent {
		return render.LayerAgents
	}
	return render.LayerCustomers
}

func actionsOf(kind entity.Kind) []render.Action {
	if kind == entity.KindAgent {
		return []render.Action{render.ActionContactAgent}
	}
	return []render.Action{render.ActionViewCustomer, render.ActionAssignAgent}
}

func appearance(kind entity.Kind, e entity.Entity, selected bool) (render.MarkerStyle, string, []render.PopupField) {
	if kind == entity.KindAgent {
		lastUpdate := "N/A"
		if e.LastUpdate != nil {
			lastUpdate = e.LastUpdate.Format(time.RFC3339)
		}
		status := string(e.Status)
		if status == "" {
			status = "Unknown"
		}
		return render.AgentStyle(e.RouteColor, selected), e.Name, []render.PopupField{
			{Label: "Status", Value: status},
			{Label: "Last update", Value: lastUpdate},
		}
	}

	address := e.Address
	if address == "" {
		address = "No address available"
	}
	nextVisit := e.NextVisit
	if nextVisit == "" {
		nextVisit = "Not scheduled"
	}
	popup := []render.PopupField{
		{Label: "Customer ID", Value: e.ID},
		{Label: "Address", Value: address},
		{Label: "Next visit", Value: nextVisit},
	}
	if e.Priority != "" {
		popup = append(popup, render.PopupField{Label: "Priority", Value: e.Priority})
	}
	return render.CustomerStyle(selected), e.Name, popup
}
