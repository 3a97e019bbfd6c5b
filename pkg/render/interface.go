package render

import (
	"github.com/lintang-b-s/fleetmap/pkg/geo"
)

// Handle identifies a visual element created by a Renderer. Callers treat it as opaque.
type Handle string

type Layer string

const (
	LayerAgents    Layer = "agents"
	LayerCustomers Layer = "customers"
	LayerRoutes    Layer = "routes"
)

func ParseLayer(s string) (Layer, bool) {
	switch Layer(s) {
	case LayerAgents, LayerCustomers, LayerRoutes:
		return Layer(s), true
	}
	return "", false
}

type Action string

const (
	ActionContactAgent Action = "contact-agent"
	ActionViewCustomer Action = "view-customer"
	ActionAssignAgent  Action = "assign-agent"
)

type MarkerStyle struct {
	Shape       string  `json:"shape"`
	Color       string  `json:"color"`
	Size        int     `json:"size"`
	BorderWidth int     `json:"border_width"`
	Pulse       bool    `json:"pulse"`
	ZIndex      int     `json:"z_index"`
	Selected    bool    `json:"selected"`
	Opacity     float64 `json:"opacity"`
}

// PopupField is one "label: value" row of a marker popup.
type PopupField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type MarkerSpec struct {
	Layer    Layer
	Position geo.Coordinate
	Style    MarkerStyle
	Tooltip  string
	Title    string
	Popup    []PopupField
	Actions  []Action

	// OnClick and OnAction are invoked by the renderer when the user interacts with the marker.
	// They may be called from any goroutine.
	OnClick  func()
	OnAction func(Action)
}

type LineStyle struct {
	Color     string  `json:"color"`
	Weight    int     `json:"weight"`
	Opacity   float64 `json:"opacity"`
	DashArray string  `json:"dash_array,omitempty"`
}

type PolylineSpec struct {
	Layer  Layer
	Points []geo.Coordinate
	Style  LineStyle
}

type ArrowSpec struct {
	Layer    Layer
	Position geo.Coordinate
	// Bearing in degrees clockwise from north.
	Bearing   float64
	PixelSize int
	Style     LineStyle
}

type LabelSpec struct {
	Layer       Layer
	Position    geo.Coordinate
	Text        string
	BorderColor string
}

// Renderer is the map surface the tracker draws on.
type Renderer interface {
	AddMarker(spec MarkerSpec) (Handle, error)
	MoveMarker(h Handle, pos geo.Coordinate) error
	// StyleMarker replaces the marker's style, tooltip and popup rows in place.
	StyleMarker(h Handle, style MarkerStyle, tooltip string, popup []PopupField) error
	RemoveMarker(h Handle) error

	AddPolyline(spec PolylineSpec) (Handle, error)
	AddArrow(spec ArrowSpec) (Handle, error)
	AddLabel(spec LabelSpec) (Handle, error)
	RemoveOverlay(h Handle) error

	SetView(center geo.Coordinate, zoom float64, animate bool) error
	FitBounds(bounds geo.BoundingBox, paddingPx int, maxZoom float64) error
	Zoom() float64

	SetLayerVisible(layer Layer, visible bool) error
}
