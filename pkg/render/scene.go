package render

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/lintang-b-s/fleetmap/pkg/geo"
	"github.com/lintang-b-s/fleetmap/pkg/util"
	geojson "github.com/paulmach/go.geojson"
)

var (
	ErrUnknownHandle  = errors.New("unknown render handle")
	ErrNotInteractive = errors.New("element does not accept this interaction")
)

const (
	tileSize        = 256.0
	maxSceneZoom    = 19.0
	defaultWidthPx  = 1024
	defaultHeightPx = 600
)

type elementKind string

const (
	elementMarker elementKind = "marker"
	elementRoute  elementKind = "route"
	elementArrow  elementKind = "arrow"
	elementLabel  elementKind = "label"
)

type element struct {
	seq      uint64
	kind     elementKind
	layer    Layer
	feature  *geojson.Feature
	actions  []Action
	onClick  func()
	onAction func(Action)
}

// View is the camera state of a Scene.
type View struct {
	Center  geo.Coordinate   `json:"center"`
	Zoom    float64          `json:"zoom"`
	Animate bool             `json:"animate"`
	Bounds  *geo.BoundingBox `json:"bounds,omitempty"`
	Padding int              `json:"padding,omitempty"`
}

// OpResync tells a subscriber that ops were lost and the scene has to be reloaded.
const OpResync = "resync"

// Op is one scene mutation as streamed to subscribers.
type Op struct {
	Op      string           `json:"op"`
	Handle  Handle           `json:"handle,omitempty"`
	Feature *geojson.Feature `json:"feature,omitempty"`
	View    *View            `json:"view,omitempty"`
	Layer   Layer            `json:"layer,omitempty"`
	Visible *bool            `json:"visible,omitempty"`
}

/*
Scene is a Renderer that keeps the drawn map as GeoJSON features. It is the model behind
the HTTP scene endpoint and the websocket feed: viewers render the features and send
clicks back through Click and Invoke.
*/
type Scene struct {
	mu       sync.RWMutex
	seq      uint64
	elements map[Handle]*element
	hidden   map[Layer]bool
	view     View
	widthPx  int
	heightPx int

	subMu   sync.Mutex
	nextSub int
	subs    map[int]chan Op
}

func NewScene(initialZoom float64) *Scene {
	return &Scene{
		elements: make(map[Handle]*element),
		hidden:   make(map[Layer]bool),
		view:     View{Zoom: initialZoom},
		widthPx:  defaultWidthPx,
		heightPx: defaultHeightPx,
		subs:     make(map[int]chan Op),
	}
}

// SetViewportSize sets the pixel size used by FitBounds.
func (s *Scene) SetViewportSize(widthPx, heightPx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.widthPx = widthPx
	s.heightPx = heightPx
}

func (s *Scene) insert(kind elementKind, layer Layer, f *geojson.Feature) (Handle, *element) {
	h := Handle(uuid.NewString())
	f.ID = string(h)
	f.SetProperty("kind", string(kind))
	f.SetProperty("layer", string(layer))

	s.seq++
	el := &element{seq: s.seq, kind: kind, layer: layer, feature: f}
	s.elements[h] = el
	return h, el
}

// snapshot copies f deep enough that later scene mutations do not show through.
func snapshot(f *geojson.Feature) *geojson.Feature {
	c := *f
	if f.Geometry != nil {
		g := *f.Geometry
		c.Geometry = &g
	}
	c.Properties = make(map[string]interface{}, len(f.Properties))
	for k, v := range f.Properties {
		c.Properties[k] = v
	}
	return &c
}

func pointOf(c geo.Coordinate) []float64 {
	return []float64{c.Lon, c.Lat}
}

func (s *Scene) AddMarker(spec MarkerSpec) (Handle, error) {
	f := geojson.NewPointFeature(pointOf(spec.Position))
	f.SetProperty("style", spec.Style)
	f.SetProperty("tooltip", spec.Tooltip)
	f.SetProperty("title", spec.Title)
	if len(spec.Popup) > 0 {
		f.SetProperty("popup", spec.Popup)
	}
	if len(spec.Actions) > 0 {
		f.SetProperty("actions", spec.Actions)
	}

	s.mu.Lock()
	h, el := s.insert(elementMarker, spec.Layer, f)
	el.actions = spec.Actions
	el.onClick = spec.OnClick
	el.onAction = spec.OnAction
	f = snapshot(f)
	s.mu.Unlock()

	s.publish(Op{Op: "add", Handle: h, Feature: f})
	return h, nil
}

func (s *Scene) MoveMarker(h Handle, pos geo.Coordinate) error {
	s.mu.Lock()
	el, ok := s.elements[h]
	if !ok || el.kind != elementMarker {
		s.mu.Unlock()
		return fmt.Errorf("move %s: %w", h, ErrUnknownHandle)
	}
	el.feature.Geometry = geojson.NewPointGeometry(pointOf(pos))
	f := snapshot(el.feature)
	s.mu.Unlock()

	s.publish(Op{Op: "move", Handle: h, Feature: f})
	return nil
}

func (s *Scene) StyleMarker(h Handle, style MarkerStyle, tooltip string, popup []PopupField) error {
	s.mu.Lock()
	el, ok := s.elements[h]
	if !ok || el.kind != elementMarker {
		s.mu.Unlock()
		return fmt.Errorf("style %s: %w", h, ErrUnknownHandle)
	}
	el.feature.SetProperty("style", style)
	el.feature.SetProperty("tooltip", tooltip)
	if len(popup) > 0 {
		el.feature.SetProperty("popup", popup)
	} else {
		delete(el.feature.Properties, "popup")
	}
	f := snapshot(el.feature)
	s.mu.Unlock()

	s.publish(Op{Op: "style", Handle: h, Feature: f})
	return nil
}

func (s *Scene) RemoveMarker(h Handle) error {
	return s.remove(h, true)
}

func (s *Scene) RemoveOverlay(h Handle) error {
	return s.remove(h, false)
}

func (s *Scene) remove(h Handle, marker bool) error {
	s.mu.Lock()
	el, ok := s.elements[h]
	if !ok || (el.kind == elementMarker) != marker {
		s.mu.Unlock()
		return fmt.Errorf("remove %s: %w", h, ErrUnknownHandle)
	}
	delete(s.elements, h)
	s.mu.Unlock()

	s.publish(Op{Op: "remove", Handle: h})
	return nil
}

func (s *Scene) AddPolyline(spec PolylineSpec) (Handle, error) {
	if len(spec.Points) < 2 {
		return "", fmt.Errorf("polyline needs at least two points, got %d", len(spec.Points))
	}
	line := make([][]float64, len(spec.Points))
	for i, p := range spec.Points {
		line[i] = pointOf(p)
	}
	f := geojson.NewLineStringFeature(line)
	f.SetProperty("style", spec.Style)
	f.SetProperty("polyline", geo.PolylineFromCoords(spec.Points))

	s.mu.Lock()
	h, _ := s.insert(elementRoute, spec.Layer, f)
	f = snapshot(f)
	s.mu.Unlock()

	s.publish(Op{Op: "add", Handle: h, Feature: f})
	return h, nil
}

func (s *Scene) AddArrow(spec ArrowSpec) (Handle, error) {
	f := geojson.NewPointFeature(pointOf(spec.Position))
	f.SetProperty("bearing", spec.Bearing)
	f.SetProperty("pixel_size", spec.PixelSize)
	f.SetProperty("style", spec.Style)

	s.mu.Lock()
	h, _ := s.insert(elementArrow, spec.Layer, f)
	f = snapshot(f)
	s.mu.Unlock()

	s.publish(Op{Op: "add", Handle: h, Feature: f})
	return h, nil
}

func (s *Scene) AddLabel(spec LabelSpec) (Handle, error) {
	f := geojson.NewPointFeature(pointOf(spec.Position))
	f.SetProperty("text", spec.Text)
	f.SetProperty("border_color", spec.BorderColor)

	s.mu.Lock()
	h, _ := s.insert(elementLabel, spec.Layer, f)
	f = snapshot(f)
	s.mu.Unlock()

	s.publish(Op{Op: "add", Handle: h, Feature: f})
	return h, nil
}

func (s *Scene) SetView(center geo.Coordinate, zoom float64, animate bool) error {
	s.mu.Lock()
	s.view = View{Center: center, Zoom: zoom, Animate: animate}
	v := s.view
	s.mu.Unlock()

	s.publish(Op{Op: "view", View: &v})
	return nil
}

/*
FitBounds centres the view on bounds and picks the largest integer zoom at which the box,
inset by paddingPx on every side, fits the viewport in web-mercator, capped at maxZoom.
*/
func (s *Scene) FitBounds(bounds geo.BoundingBox, paddingPx int, maxZoom float64) error {
	s.mu.Lock()
	zoom := fitZoom(bounds, s.widthPx-2*paddingPx, s.heightPx-2*paddingPx, maxZoom)
	s.view = View{Center: bounds.Center(), Zoom: zoom, Animate: true, Bounds: &bounds, Padding: paddingPx}
	v := s.view
	s.mu.Unlock()

	s.publish(Op{Op: "fit", View: &v})
	return nil
}

func mercatorY(lat float64) float64 {
	lat = util.Clamp(lat, -85.05112878, 85.05112878)
	rad := util.DegreeToRadians(lat)
	return (1 - math.Log(math.Tan(rad)+1/math.Cos(rad))/math.Pi) / 2
}

func fitZoom(b geo.BoundingBox, widthPx, heightPx int, maxZoom float64) float64 {
	if maxZoom <= 0 || maxZoom > maxSceneZoom {
		maxZoom = maxSceneZoom
	}
	if widthPx <= 0 || heightPx <= 0 {
		return 0
	}
	dx := (b.Max.Lon - b.Min.Lon) / 360.0
	dy := math.Abs(mercatorY(b.Min.Lat) - mercatorY(b.Max.Lat))

	zoom := maxZoom
	if dx > 0 {
		zoom = math.Min(zoom, math.Log2(float64(widthPx)/(tileSize*dx)))
	}
	if dy > 0 {
		zoom = math.Min(zoom, math.Log2(float64(heightPx)/(tileSize*dy)))
	}
	return util.Clamp(math.Floor(zoom), 0, maxZoom)
}

func (s *Scene) Zoom() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view.Zoom
}

func (s *Scene) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

func (s *Scene) SetLayerVisible(layer Layer, visible bool) error {
	s.mu.Lock()
	s.hidden[layer] = !visible
	s.mu.Unlock()

	s.publish(Op{Op: "layer", Layer: layer, Visible: &visible})
	return nil
}

func (s *Scene) LayerVisible(layer Layer) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.hidden[layer]
}

// Len is the number of live elements, hidden layers included.
func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.elements)
}

// FeatureCollection snapshots the visible elements in creation order.
func (s *Scene) FeatureCollection() *geojson.FeatureCollection {
	type visible struct {
		seq     uint64
		feature *geojson.Feature
	}
	s.mu.RLock()
	els := make([]visible, 0, len(s.elements))
	for _, el := range s.elements {
		if s.hidden[el.layer] {
			continue
		}
		els = append(els, visible{seq: el.seq, feature: snapshot(el.feature)})
	}
	s.mu.RUnlock()

	sort.Slice(els, func(i, j int) bool { return els[i].seq < els[j].seq })
	fc := geojson.NewFeatureCollection()
	for _, el := range els {
		fc.AddFeature(el.feature)
	}
	return fc
}

// Click delivers a viewer click on marker h.
func (s *Scene) Click(h Handle) error {
	s.mu.RLock()
	el, ok := s.elements[h]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("click %s: %w", h, ErrUnknownHandle)
	}
	if el.onClick == nil {
		return fmt.Errorf("click %s: %w", h, ErrNotInteractive)
	}
	el.onClick()
	return nil
}

// Invoke delivers a popup action on marker h.
func (s *Scene) Invoke(h Handle, action Action) error {
	s.mu.RLock()
	el, ok := s.elements[h]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("invoke %s: %w", h, ErrUnknownHandle)
	}
	if el.onAction == nil || !containsAction(el.actions, action) {
		return fmt.Errorf("invoke %s on %s: %w", action, h, ErrNotInteractive)
	}
	el.onAction(action)
	return nil
}

func containsAction(actions []Action, a Action) bool {
	for _, x := range actions {
		if x == a {
			return true
		}
	}
	return false
}

/*
Subscribe streams scene ops. A subscriber that falls behind never blocks the renderer: when
its buffer is full the queued ops are discarded and replaced by a single OpResync, after
which the subscriber must reload the whole scene.
*/
func (s *Scene) Subscribe(buffer int) (<-chan Op, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Op, buffer)
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// publish is the only sender on subscriber channels, and always under subMu.
func (s *Scene) publish(op Op) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- op:
			continue
		default:
		}
		drain(ch)
		ch <- Op{Op: OpResync}
	}
}

func drain(ch chan Op) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
