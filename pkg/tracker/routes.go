package tracker

import (
	"context"
	"fmt"
	"sync"

	"github.com/lintang-b-s/fleetmap/pkg/concurrent"
	"github.com/lintang-b-s/fleetmap/pkg/geo"
	"github.com/lintang-b-s/fleetmap/pkg/host"
	"github.com/lintang-b-s/fleetmap/pkg/render"
	"github.com/lintang-b-s/fleetmap/pkg/routing"
	"go.uber.org/zap"
)

const (
	// arrowPosition is how far along the fallback segment, towards the customer, the arrow sits.
	arrowPosition  = 0.7
	arrowPixelSize = 15
	arrowWeight    = 3

	routeJobsPerWorker = 4
)

func formatRouteLabel(travelTime string, distanceKm float64) string {
	return fmt.Sprintf("%s (%.1f km)", travelTime, distanceKm)
}

// overlayGroup is everything drawn for one pair. It is removed as a unit.
type overlayGroup struct {
	pair    RoutePair
	label   render.Handle
	line    render.Handle
	arrow   render.Handle
	pending bool
	routed  bool
}

type routeJob struct {
	ctx   context.Context
	gen   uint64
	index int
	pair  RoutePair
}

type routeResult struct {
	gen   uint64
	index int
	path  routing.Path
	err   error
}

/*
routeRenderer owns the route overlays. Paths are fetched on a worker pool and the results
posted back to the loop, tagged with the generation they were requested for. Every pairing
change bumps the generation and cancels the previous requests.
*/
type routeRenderer struct {
	sched    host.Scheduler
	r        render.Renderer
	svc      routing.Service
	log      *zap.Logger
	disposed func() bool
	pool     *concurrent.WorkerPool[routeJob, routeResult]
	stopPool sync.Once

	ctx        context.Context
	cancelGen  context.CancelFunc
	generation uint64
	pairs      []RoutePair
	groups     []*overlayGroup
}

func newRouteRenderer(ctx context.Context, sched host.Scheduler, r render.Renderer, svc routing.Service,
	log *zap.Logger, workers int, disposed func() bool) *routeRenderer {
	if svc == nil {
		svc = routing.Unavailable{}
	}
	if workers < 1 {
		workers = 1
	}
	rr := &routeRenderer{
		sched:     sched,
		r:         r,
		svc:       svc,
		log:       log,
		disposed:  disposed,
		pool:      concurrent.NewWorkerPool[routeJob, routeResult](workers, workers*routeJobsPerWorker),
		ctx:       ctx,
		cancelGen: func() {},
	}
	rr.pool.Start(rr.compute)
	go rr.collect()
	return rr
}

func (rr *routeRenderer) compute(job routeJob) (res routeResult) {
	res = routeResult{gen: job.gen, index: job.index}
	defer func() {
		if p := recover(); p != nil {
			res.err = fmt.Errorf("routing service panicked: %v", p)
		}
	}()
	if err := job.ctx.Err(); err != nil {
		res.err = err
		return res
	}
	res.path, res.err = rr.svc.ComputeRoute(job.ctx, job.pair.Agent, job.pair.Customer)
	return res
}

func (rr *routeRenderer) collect() {
	for res := range rr.pool.CollectResults() {
		res := res
		rr.sched.Post(func() { rr.onResult(res) })
	}
}

// update replaces the drawn routes with pairs. An identical pair set leaves the overlays alone.
func (rr *routeRenderer) update(pairs []RoutePair) {
	if rr.disposed() || samePairs(rr.pairs, pairs) {
		return
	}
	rr.clear()

	rr.generation++
	ctx, cancel := context.WithCancel(rr.ctx)
	rr.cancelGen = cancel
	rr.pairs = pairs

	for i, p := range pairs {
		if rr.disposed() {
			return
		}
		g := &overlayGroup{pair: p}
		rr.groups = append(rr.groups, g)

		h, err := rr.r.AddLabel(render.LabelSpec{
			Layer:       render.LayerRoutes,
			Position:    geo.MidPoint(p.Agent, p.Customer),
			Text:        p.Label(),
			BorderColor: p.Color,
		})
		if err != nil {
			rr.log.Warn("add route label", zap.String("agent", p.AgentID), zap.String("customer", p.CustomerID), zap.Error(err))
		}
		g.label = h

		job := routeJob{ctx: ctx, gen: rr.generation, index: i, pair: p}
		if !rr.pool.TryAddJob(job) {
			rr.log.Debug("routing queue full, drawing straight route",
				zap.String("agent", p.AgentID), zap.String("customer", p.CustomerID))
			rr.drawFallback(g)
			continue
		}
		g.pending = true
	}
}

func (rr *routeRenderer) onResult(res routeResult) {
	if rr.disposed() || res.gen != rr.generation || res.index >= len(rr.groups) {
		return
	}
	g := rr.groups[res.index]
	if !g.pending {
		return
	}
	g.pending = false

	if res.err != nil || len(res.path.Coordinates) < 2 {
		rr.log.Debug("routing failed, drawing straight route",
			zap.String("agent", g.pair.AgentID), zap.String("customer", g.pair.CustomerID), zap.Error(res.err))
		rr.drawFallback(g)
		return
	}
	rr.drawPath(g, res.path.Coordinates)
}

func (rr *routeRenderer) drawPath(g *overlayGroup, path []geo.Coordinate) {
	if rr.disposed() {
		return
	}
	h, err := rr.r.AddPolyline(render.PolylineSpec{
		Layer:  render.LayerRoutes,
		Points: path,
		Style:  render.RouteLineStyle(g.pair.Color),
	})
	if err != nil {
		rr.log.Warn("add route line", zap.String("agent", g.pair.AgentID), zap.Error(err))
		return
	}
	g.line = h
	g.routed = true
}

func (rr *routeRenderer) drawFallback(g *overlayGroup) {
	if rr.disposed() {
		return
	}
	from, to := g.pair.Agent, g.pair.Customer
	h, err := rr.r.AddPolyline(render.PolylineSpec{
		Layer:  render.LayerRoutes,
		Points: []geo.Coordinate{from, to},
		Style:  render.RouteLineStyle(g.pair.Color),
	})
	if err != nil {
		rr.log.Warn("add fallback line", zap.String("agent", g.pair.AgentID), zap.Error(err))
		return
	}
	g.line = h

	h, err = rr.r.AddArrow(render.ArrowSpec{
		Layer:     render.LayerRoutes,
		Position:  geo.Interpolate(from, to, arrowPosition),
		Bearing:   geo.Bearing(from, to),
		PixelSize: arrowPixelSize,
		Style: render.LineStyle{
			Color:   g.pair.Color,
			Weight:  arrowWeight,
			Opacity: 0.7,
		},
	})
	if err != nil {
		rr.log.Warn("add fallback arrow", zap.String("agent", g.pair.AgentID), zap.Error(err))
		return
	}
	g.arrow = h
}

// clear cancels outstanding requests and removes every overlay group.
func (rr *routeRenderer) clear() {
	rr.cancelGen()
	for _, g := range rr.groups {
		for _, h := range []render.Handle{g.line, g.arrow, g.label} {
			if h == "" {
				continue
			}
			if err := rr.r.RemoveOverlay(h); err != nil {
				rr.log.Warn("remove route overlay", zap.String("agent", g.pair.AgentID), zap.Error(err))
			}
		}
	}
	rr.groups = nil
	rr.pairs = nil
}

// shutdown stops the worker pool. Safe from any goroutine.
func (rr *routeRenderer) shutdown() {
	rr.stopPool.Do(func() {
		rr.pool.Close()
		go rr.pool.Wait()
	})
}

func (rr *routeRenderer) dispose() {
	rr.clear()
	rr.generation++
	rr.shutdown()
}

func (rr *routeRenderer) count() int {
	return len(rr.groups)
}

// snapshot returns the live pairs in draw order.
func (rr *routeRenderer) snapshot() []RoutePair {
	out := make([]RoutePair, len(rr.pairs))
	copy(out, rr.pairs)
	return out
}
