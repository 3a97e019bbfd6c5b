// Package tracker keeps a live map of agents and customers in sync with the entity lists it
// is fed: it reconciles markers, animates moves, pairs agents with customers, draws routes
// between them and moves the camera on selection changes.
//
// All state lives on the host loop. Public methods only post work to it and may be called
// from any goroutine.
package tracker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lintang-b-s/fleetmap/pkg/entity"
	"github.com/lintang-b-s/fleetmap/pkg/geo"
	"github.com/lintang-b-s/fleetmap/pkg/host"
	"github.com/lintang-b-s/fleetmap/pkg/render"
	"github.com/lintang-b-s/fleetmap/pkg/routing"
	"go.uber.org/zap"
)

const defaultRoutingWorkers = 4

type Config struct {
	Scheduler host.Scheduler
	Renderer  render.Renderer
	Routing   routing.Service
	Source    Source
	Events    EventHandler
	Log       *zap.Logger

	RefreshInterval time.Duration
	DefaultZoom     float64
	// Center overrides the mean entity position as the initial view.
	Center         *geo.Coordinate
	RoutingWorkers int
}

// Stats are the counters shown next to the map.
type Stats struct {
	ActiveAgents int `json:"active_agents"`
	TotalAgents  int `json:"total_agents"`
	Customers    int `json:"customers"`
	Routes       int `json:"routes"`
}

type Engine struct {
	sched  host.Scheduler
	r      render.Renderer
	log    *zap.Logger
	events EventHandler

	ctx      context.Context
	cancel   context.CancelFunc
	disposed atomic.Bool

	markers  *reconciler
	anim     *animator
	routes   *routeRenderer
	viewport *viewport
	refresh  *refresher

	// loop only
	rawAgents    []entity.Entity
	rawCustomers []entity.Entity
	agents       []entity.Entity
	customers    []entity.Entity
	selection    entity.Selection

	mu       sync.RWMutex
	stats    Stats
	pairs    []RoutePair
	selected entity.Selection
}

func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Scheduler == nil {
		return nil, errors.New("tracker: scheduler is required")
	}
	if cfg.Renderer == nil {
		return nil, errors.New("tracker: renderer is required")
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.Events == nil {
		cfg.Events = nopEventHandler{}
	}
	if cfg.RoutingWorkers <= 0 {
		cfg.RoutingWorkers = defaultRoutingWorkers
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		sched:  cfg.Scheduler,
		r:      cfg.Renderer,
		log:    cfg.Log,
		events: cfg.Events,
		ctx:    ctx,
		cancel: cancel,
	}

	e.anim = newAnimator(e.sched, e.r, e.log, e.isDisposed)
	e.markers = newReconciler(e.r, e.log, e.anim, e.interactions)
	e.routes = newRouteRenderer(ctx, e.sched, e.r, cfg.Routing, e.log, cfg.RoutingWorkers, e.isDisposed)
	e.viewport = newViewport(e.r, e.log, cfg.DefaultZoom, cfg.Center)
	e.refresh = newRefresher(ctx, e.sched, e.log, cfg.Source, e.isDisposed, e.update)

	interval := cfg.RefreshInterval
	e.post(func() { e.refresh.setInterval(interval) })
	return e, nil
}

func (e *Engine) isDisposed() bool {
	return e.disposed.Load()
}

// post runs fn on the loop unless the engine has been disposed by then.
func (e *Engine) post(fn func()) {
	e.sched.Post(func() {
		if e.isDisposed() {
			return
		}
		fn()
	})
}

// UpdateEntities replaces the agent and customer lists.
func (e *Engine) UpdateEntities(agents, customers []entity.Entity) {
	agents = append([]entity.Entity(nil), agents...)
	customers = append([]entity.Entity(nil), customers...)
	e.post(func() { e.update(agents, customers) })
}

// SetSelection selects an agent and/or a customer. Empty ids clear that side.
func (e *Engine) SetSelection(agentID, customerID string) {
	sel := entity.Selection{AgentID: agentID, CustomerID: customerID}
	e.post(func() { e.applySelection(sel) })
}

// SetRefreshInterval restarts the refresh ticker; d <= 0 disables it.
func (e *Engine) SetRefreshInterval(d time.Duration) {
	e.post(func() { e.refresh.setInterval(d) })
}

func (e *Engine) SetLayerVisible(layer render.Layer, visible bool) {
	e.post(func() {
		if err := e.r.SetLayerVisible(layer, visible); err != nil {
			e.log.Warn("toggle layer", zap.String("layer", string(layer)), zap.Error(err))
		}
	})
}

// ResetView moves the camera back to the initial view.
func (e *Engine) ResetView() {
	e.post(func() { e.viewport.reset(e.agents, e.customers) })
}

func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}

// Pairs returns the pairs that currently have a route, in draw order.
func (e *Engine) Pairs() []RoutePair {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]RoutePair(nil), e.pairs...)
}

func (e *Engine) Selection() entity.Selection {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.selected
}

/*
Dispose stops the engine: the refresh ticker, animations and route requests are cancelled
and every marker and overlay is removed. Nothing reaches the renderer afterwards. Calling
it more than once, or while work is in flight, is safe.
*/
func (e *Engine) Dispose() {
	if !e.disposed.CompareAndSwap(false, true) {
		return
	}
	e.cancel()
	e.routes.shutdown()

	e.sched.Post(func() {
		e.refresh.stop()
		e.anim.cancelAll()
		e.markers.removeAll()
		e.routes.dispose()

		e.mu.Lock()
		e.stats = Stats{}
		e.pairs = nil
		e.mu.Unlock()
	})
}

func (e *Engine) update(agents, customers []entity.Entity) {
	e.rawAgents, e.rawCustomers = agents, customers
	e.reconcile()
	e.viewport.initial(e.agents, e.customers)
	e.viewport.apply(e.agents, e.customers)
	e.recompute()
}

func (e *Engine) applySelection(sel entity.Selection) {
	if sel == e.selection {
		return
	}
	e.selection = sel
	e.viewport.setSelection(sel)

	// styles depend on the selection
	e.reconcile()
	e.viewport.apply(e.agents, e.customers)
	e.recompute()
}

func (e *Engine) reconcile() {
	e.agents = e.markers.reconcile(entity.KindAgent, e.rawAgents, e.selection)
	e.customers = e.markers.reconcile(entity.KindCustomer, e.rawCustomers, e.selection)
}

func (e *Engine) recompute() {
	e.routes.update(SelectPairs(e.agents, e.customers, e.selection))
	e.publishStats()
}

func (e *Engine) publishStats() {
	active := 0
	for _, a := range e.agents {
		if a.IsActive() {
			active++
		}
	}
	stats := Stats{
		ActiveAgents: active,
		TotalAgents:  len(e.agents),
		Customers:    len(e.customers),
		Routes:       e.routes.count(),
	}

	e.mu.Lock()
	e.stats = stats
	e.pairs = e.routes.snapshot()
	e.selected = e.selection
	e.mu.Unlock()
}

func (e *Engine) interactions(kind entity.Kind, id string) (func(), func(render.Action)) {
	onClick := func() {
		e.post(func() { e.events.MarkerSelected(kind, id) })
	}
	onAction := func(a render.Action) {
		e.post(func() { e.events.ActionInvoked(kind, id, a) })
	}
	return onClick, onAction
}
