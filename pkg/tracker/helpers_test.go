package tracker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lintang-b-s/fleetmap/pkg/entity"
	"github.com/lintang-b-s/fleetmap/pkg/geo"
	"github.com/lintang-b-s/fleetmap/pkg/host"
	"github.com/lintang-b-s/fleetmap/pkg/render"
	"github.com/lintang-b-s/fleetmap/pkg/routing"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type call struct {
	op     string
	handle render.Handle
	pos    geo.Coordinate
	zoom   float64
	text   string
}

type overlay struct {
	kind   string
	points []geo.Coordinate
	arrow  render.ArrowSpec
	label  render.LabelSpec
}

// recordingRenderer is a Renderer that keeps every call for inspection.
type recordingRenderer struct {
	mu       sync.Mutex
	seq      int
	calls    []call
	markers  map[render.Handle]render.MarkerSpec
	overlays map[render.Handle]overlay
	hidden   map[render.Layer]bool
	zoom     float64
	view     geo.Coordinate
}

func newRecordingRenderer() *recordingRenderer {
	return &recordingRenderer{
		markers:  make(map[render.Handle]render.MarkerSpec),
		overlays: make(map[render.Handle]overlay),
		hidden:   make(map[render.Layer]bool),
		zoom:     DefaultZoom,
	}
}

func (f *recordingRenderer) next() render.Handle {
	f.seq++
	return render.Handle(fmt.Sprintf("h%d", f.seq))
}

func (f *recordingRenderer) AddMarker(spec render.MarkerSpec) (render.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.next()
	f.markers[h] = spec
	f.calls = append(f.calls, call{op: "add", handle: h, pos: spec.Position})
	return h, nil
}

func (f *recordingRenderer) MoveMarker(h render.Handle, pos geo.Coordinate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	spec, ok := f.markers[h]
	if !ok {
		return render.ErrUnknownHandle
	}
	spec.Position = pos
	f.markers[h] = spec
	f.calls = append(f.calls, call{op: "move", handle: h, pos: pos})
	return nil
}

func (f *recordingRenderer) StyleMarker(h render.Handle, style render.MarkerStyle, tooltip string, popup []render.PopupField) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	spec, ok := f.markers[h]
	if !ok {
		return render.ErrUnknownHandle
	}
	spec.Style, spec.Tooltip, spec.Popup = style, tooltip, popup
	f.markers[h] = spec
	f.calls = append(f.calls, call{op: "style", handle: h, text: tooltip})
	return nil
}

func (f *recordingRenderer) RemoveMarker(h render.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.markers[h]; !ok {
		return render.ErrUnknownHandle
	}
	delete(f.markers, h)
	f.calls = append(f.calls, call{op: "remove", handle: h})
	return nil
}

func (f *recordingRenderer) AddPolyline(spec render.PolylineSpec) (render.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.next()
	f.overlays[h] = overlay{kind: "line", points: spec.Points}
	f.calls = append(f.calls, call{op: "line", handle: h})
	return h, nil
}

func (f *recordingRenderer) AddArrow(spec render.ArrowSpec) (render.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.next()
	f.overlays[h] = overlay{kind: "arrow", arrow: spec}
	f.calls = append(f.calls, call{op: "arrow", handle: h, pos: spec.Position})
	return h, nil
}

func (f *recordingRenderer) AddLabel(spec render.LabelSpec) (render.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.next()
	f.overlays[h] = overlay{kind: "label", label: spec}
	f.calls = append(f.calls, call{op: "label", handle: h, pos: spec.Position, text: spec.Text})
	return h, nil
}

func (f *recordingRenderer) RemoveOverlay(h render.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.overlays[h]; !ok {
		return render.ErrUnknownHandle
	}
	delete(f.overlays, h)
	f.calls = append(f.calls, call{op: "remove-overlay", handle: h})
	return nil
}

func (f *recordingRenderer) SetView(center geo.Coordinate, zoom float64, animate bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.view, f.zoom = center, zoom
	op := "view"
	if animate {
		op = "view-animated"
	}
	f.calls = append(f.calls, call{op: op, pos: center, zoom: zoom})
	return nil
}

func (f *recordingRenderer) FitBounds(bounds geo.BoundingBox, paddingPx int, maxZoom float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.view = bounds.Center()
	f.calls = append(f.calls, call{op: "fit", pos: bounds.Center(), zoom: maxZoom, text: fmt.Sprintf("%d", paddingPx)})
	return nil
}

func (f *recordingRenderer) Zoom() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.zoom
}

func (f *recordingRenderer) SetLayerVisible(layer render.Layer, visible bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hidden[layer] = !visible
	f.calls = append(f.calls, call{op: "layer", text: string(layer)})
	return nil
}

func (f *recordingRenderer) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.op == op {
			n++
		}
	}
	return n
}

func (f *recordingRenderer) ops(op string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *recordingRenderer) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *recordingRenderer) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *recordingRenderer) liveMarkers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.markers)
}

func (f *recordingRenderer) liveOverlays(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, o := range f.overlays {
		if kind == "" || o.kind == kind {
			n++
		}
	}
	return n
}

func (f *recordingRenderer) labels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, o := range f.overlays {
		if o.kind == "label" {
			out = append(out, o.label.Text)
		}
	}
	return out
}

func (f *recordingRenderer) markerAt(title string) (render.MarkerSpec, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.markers {
		if m.Title == title {
			return m, true
		}
	}
	return render.MarkerSpec{}, false
}

// fakeRouting answers with path, or err, optionally waiting for release first.
type fakeRouting struct {
	mu      sync.Mutex
	path    []geo.Coordinate
	err     error
	panics  bool
	release chan struct{}
	calls   int
}

func (r *fakeRouting) ComputeRoute(ctx context.Context, from, to geo.Coordinate) (routing.Path, error) {
	r.mu.Lock()
	r.calls++
	release, path, err, panics := r.release, r.path, r.err, r.panics
	r.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return routing.Path{}, ctx.Err()
		}
	}
	if panics {
		panic("routing backend exploded")
	}
	if err != nil {
		return routing.Path{}, err
	}
	if path == nil {
		path = []geo.Coordinate{from, geo.MidPoint(from, to), to}
	}
	return routing.Path{Coordinates: path, DistanceKm: geo.DistanceKm(from, to)}, nil
}

func (r *fakeRouting) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type fakeSource struct {
	mu        sync.Mutex
	agents    []entity.Entity
	customers []entity.Entity
	fetches   int
	block     chan struct{}
}

func (s *fakeSource) Fetch(ctx context.Context) ([]entity.Entity, []entity.Entity, error) {
	s.mu.Lock()
	s.fetches++
	block := s.block
	s.mu.Unlock()
	if block != nil {
		<-block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agents, s.customers, nil
}

func (s *fakeSource) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

type recordedEvent struct {
	kind   entity.Kind
	id     string
	action render.Action
}

type recordingEvents struct {
	events []recordedEvent
}

func (r *recordingEvents) MarkerSelected(kind entity.Kind, id string) {
	r.events = append(r.events, recordedEvent{kind: kind, id: id})
}

func (r *recordingEvents) ActionInvoked(kind entity.Kind, id string, action render.Action) {
	r.events = append(r.events, recordedEvent{kind: kind, id: id, action: action})
}

type harness struct {
	loop   *host.Manual
	r      *recordingRenderer
	engine *Engine
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	loop := host.NewManual()
	r := newRecordingRenderer()
	cfg.Scheduler = loop
	cfg.Renderer = r
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	t.Cleanup(e.Dispose)
	loop.Flush()
	return &harness{loop: loop, r: r, engine: e}
}

// settle flushes the loop until cond holds, letting routing workers post their results.
func (h *harness) settle(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		h.loop.Flush()
		return cond()
	}, 2*time.Second, time.Millisecond)
}

func agent(id string, lat, lon float64) entity.Entity {
	return entity.NewAgent(id, "Agent "+id, geo.NewCoordinate(lat, lon), entity.StatusActive, "")
}

func customer(id string, lat, lon float64) entity.Entity {
	return entity.NewCustomer(id, "Customer "+id, geo.NewCoordinate(lat, lon), "")
}
