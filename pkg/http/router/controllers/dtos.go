package controllers

import (
	"time"

	"github.com/lintang-b-s/fleetmap/pkg/entity"
	"github.com/lintang-b-s/fleetmap/pkg/geo"
	"github.com/lintang-b-s/fleetmap/pkg/tracker"
)

// Entities are only bounded here; per-entity checks happen in the engine, which skips malformed entries.
type updateEntitiesRequest struct {
	Agents    []entity.Entity `json:"agents" validate:"max=10000"`
	Customers []entity.Entity `json:"customers" validate:"max=10000"`
}

type updateEntitiesResponse struct {
	Version   uint64 `json:"version"`
	Agents    int    `json:"agents"`
	Customers int    `json:"customers"`
}

type selectionRequest struct {
	AgentID    string `json:"agent_id" validate:"max=128"`
	CustomerID string `json:"customer_id" validate:"max=128"`
}

// IntervalMs <= 0 disables the periodic refresh.
type refreshIntervalRequest struct {
	IntervalMs int64 `json:"interval_ms" validate:"max=86400000"`
}

func (r refreshIntervalRequest) Interval() time.Duration {
	return time.Duration(r.IntervalMs) * time.Millisecond
}

type layerRequest struct {
	Visible *bool `json:"visible" validate:"required"`
}

type routePairResponse struct {
	AgentID    string         `json:"agent_id"`
	CustomerID string         `json:"customer_id"`
	Agent      geo.Coordinate `json:"agent"`
	Customer   geo.Coordinate `json:"customer"`
	Color      string         `json:"color"`
	DistanceKm float64        `json:"distance_km"`
	TravelTime string         `json:"travel_time"`
	Label      string         `json:"label"`
}

func NewRoutePairResponses(pairs []tracker.RoutePair) []routePairResponse {
	resp := make([]routePairResponse, 0, len(pairs))
	for _, p := range pairs {
		resp = append(resp, routePairResponse{
			AgentID:    p.AgentID,
			CustomerID: p.CustomerID,
			Agent:      p.Agent,
			Customer:   p.Customer,
			Color:      p.Color,
			DistanceKm: p.DistanceKm,
			TravelTime: p.TravelTime,
			Label:      p.Label(),
		})
	}
	return resp
}

type statsResponse struct {
	tracker.Stats
	Selection entity.Selection    `json:"selection"`
	Pairs     []routePairResponse `json:"pairs"`
}

// wsCommand is a message sent by a websocket viewer.
type wsCommand struct {
	Type       string `json:"type" validate:"required,oneof=click action select"`
	Handle     string `json:"handle" validate:"required_unless=Type select"`
	Action     string `json:"action" validate:"required_if=Type action"`
	AgentID    string `json:"agent_id"`
	CustomerID string `json:"customer_id"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
