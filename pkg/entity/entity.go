package entity

import (
	"time"

	"github.com/lintang-b-s/fleetmap/pkg/geo"
)

type Kind uint8

const (
	KindAgent Kind = iota
	KindCustomer
)

func (k Kind) String() string {
	switch k {
	case KindAgent:
		return "agent"
	case KindCustomer:
		return "customer"
	default:
		return "unknown"
	}
}

type Status string

const (
	StatusActive  Status = "Active"
	StatusIdle    Status = "Idle"
	StatusOffline Status = "Offline"
)

// Entity is an agent or a customer as supplied by the data layer.
// RouteColor is only meaningful for agents; Address, NextVisit and Priority only for customers.
type Entity struct {
	ID         string         `json:"id" validate:"required"`
	Name       string         `json:"name"`
	Location   geo.Coordinate `json:"location"`
	Status     Status         `json:"status"`
	ColorTag   string         `json:"color_tag,omitempty"`
	LastUpdate *time.Time     `json:"last_update,omitempty"`

	RouteColor string `json:"route_color,omitempty"`

	Address   string `json:"address,omitempty"`
	NextVisit string `json:"next_visit,omitempty"`
	Priority  string `json:"priority,omitempty"`
}

func NewAgent(id, name string, loc geo.Coordinate, status Status, routeColor string) Entity {
	return Entity{
		ID:         id,
		Name:       name,
		Location:   loc,
		Status:     status,
		RouteColor: routeColor,
	}
}

func NewCustomer(id, name string, loc geo.Coordinate, address string) Entity {
	return Entity{
		ID:       id,
		Name:     name,
		Location: loc,
		Status:   StatusActive,
		Address:  address,
	}
}

func (e Entity) IsActive() bool {
	return e.Status == StatusActive
}

// Selection is the externally supplied selection tuple. An empty id means nothing selected.
type Selection struct {
	AgentID    string `json:"agent_id"`
	CustomerID string `json:"customer_id"`
}

func (s Selection) HasAgent() bool {
	return s.AgentID != ""
}

func (s Selection) HasCustomer() bool {
	return s.CustomerID != ""
}

func (s Selection) IsEmpty() bool {
	return !s.HasAgent() && !s.HasCustomer()
}

// Selects reports whether the entity of kind k with the given id is the selected one.
func (s Selection) Selects(k Kind, id string) bool {
	switch k {
	case KindAgent:
		return s.AgentID != "" && s.AgentID == id
	case KindCustomer:
		return s.CustomerID != "" && s.CustomerID == id
	}
	return false
}
