package tracker

import (
	"github.com/lintang-b-s/fleetmap/pkg/entity"
	"github.com/lintang-b-s/fleetmap/pkg/geo"
	"github.com/lintang-b-s/fleetmap/pkg/render"
	"github.com/lintang-b-s/fleetmap/pkg/util"
	"go.uber.org/zap"
)

const (
	FocusZoom      = 14
	FitPaddingPx   = 100
	FitMaxZoom     = 14
	DefaultZoom    = 13
	initialAnimate = false
)

/*
viewport moves the camera when the selection changes and only then.

A selection naming an entity that is not known yet stays pending and is applied on the
first pass in which every named id resolves. Each selection moves the camera at most once:
after that, entity passes never touch the camera, even when a selected entity drops out of
a pass and comes back.
*/
type viewport struct {
	r           render.Renderer
	log         *zap.Logger
	defaultZoom float64
	center      *geo.Coordinate

	initialized bool
	sel         entity.Selection
	applied     bool
}

func newViewport(r render.Renderer, log *zap.Logger, defaultZoom float64, center *geo.Coordinate) *viewport {
	if defaultZoom <= 0 {
		defaultZoom = DefaultZoom
	}
	return &viewport{r: r, log: log, defaultZoom: defaultZoom, center: center}
}

func (v *viewport) setSelection(sel entity.Selection) {
	if sel == v.sel {
		return
	}
	v.sel = sel
	v.applied = false
}

// initial places the camera once, on the first pass that has any entity.
func (v *viewport) initial(agents, customers []entity.Entity) {
	if v.initialized {
		return
	}
	if len(agents)+len(customers) == 0 && v.center == nil {
		return
	}
	v.initialized = true
	v.reset(agents, customers)
}

// reset puts the camera back on the configured centre, or the mean of all entities.
func (v *viewport) reset(agents, customers []entity.Entity) {
	var (
		center geo.Coordinate
		ok     bool
	)
	if v.center != nil {
		center, ok = *v.center, true
	} else {
		all := append(locations(agents), locations(customers)...)
		center, ok = geo.Center(all)
	}
	if !ok {
		return
	}
	if err := v.r.SetView(center, v.defaultZoom, initialAnimate); err != nil {
		v.log.Warn("set initial view", zap.Error(err))
	}
}

func (v *viewport) apply(agents, customers []entity.Entity) {
	if v.applied || v.sel.IsEmpty() {
		return
	}
	agent, hasAgent := find(agents, v.sel.AgentID)
	customer, hasCustomer := find(customers, v.sel.CustomerID)
	if hasAgent != v.sel.HasAgent() || hasCustomer != v.sel.HasCustomer() {
		return
	}
	v.applied = true

	var err error
	switch {
	case hasAgent && hasCustomer:
		b, _ := geo.BoundsOf(agent.Location, customer.Location)
		err = v.r.FitBounds(b, FitPaddingPx, FitMaxZoom)
	case hasAgent:
		err = v.focus(agent.Location)
	default:
		err = v.focus(customer.Location)
	}
	if err != nil {
		v.log.Warn("move camera to selection", zap.String("agent", v.sel.AgentID),
			zap.String("customer", v.sel.CustomerID), zap.Error(err))
	}
}

func (v *viewport) focus(c geo.Coordinate) error {
	return v.r.SetView(c, util.MaxG(v.r.Zoom(), float64(FocusZoom)), true)
}
