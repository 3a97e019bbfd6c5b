package tracker

import (
	"github.com/lintang-b-s/fleetmap/pkg/geo"
	"github.com/lintang-b-s/fleetmap/pkg/host"
	"github.com/lintang-b-s/fleetmap/pkg/render"
	"go.uber.org/zap"
)

// AnimationSteps is the number of frames a marker move is spread over (about half a second at 60 fps).
const AnimationSteps = 30

type animation struct {
	handle     render.Handle
	start, end geo.Coordinate
	step       int
	abandoned  bool
	onDraw     func(geo.Coordinate)
}

// animator interpolates marker moves on frame callbacks. All methods run on the loop.
type animator struct {
	sched    host.Scheduler
	r        render.Renderer
	log      *zap.Logger
	disposed func() bool

	active map[markerKey]*animation
}

func newAnimator(sched host.Scheduler, r render.Renderer, log *zap.Logger, disposed func() bool) *animator {
	return &animator{
		sched:    sched,
		r:        r,
		log:      log,
		disposed: disposed,
		active:   make(map[markerKey]*animation),
	}
}

// animate moves marker h from start to end over AnimationSteps frames, superseding any
// animation already running for key. onDraw sees every drawn position.
func (a *animator) animate(key markerKey, h render.Handle, start, end geo.Coordinate, onDraw func(geo.Coordinate)) {
	a.cancel(key)
	if start == end {
		return
	}
	anim := &animation{handle: h, start: start, end: end, onDraw: onDraw}
	a.active[key] = anim
	a.sched.RequestFrame(func() { a.frame(key, anim) })
}

func (a *animator) frame(key markerKey, anim *animation) {
	if anim.abandoned || a.disposed() {
		return
	}
	anim.step++

	pos := anim.end
	if anim.step < AnimationSteps {
		pos = geo.Interpolate(anim.start, anim.end, float64(anim.step)/AnimationSteps)
	}
	if err := a.r.MoveMarker(anim.handle, pos); err != nil {
		a.log.Warn("move marker", zap.String("id", key.id), zap.Error(err))
	}
	anim.onDraw(pos)

	if anim.step >= AnimationSteps {
		if a.active[key] == anim {
			delete(a.active, key)
		}
		return
	}
	a.sched.RequestFrame(func() { a.frame(key, anim) })
}

func (a *animator) cancel(key markerKey) {
	if anim, ok := a.active[key]; ok {
		anim.abandoned = true
		delete(a.active, key)
	}
}

func (a *animator) cancelAll() {
	for key := range a.active {
		a.cancel(key)
	}
}

func (a *animator) running() int {
	return len(a.active)
}
