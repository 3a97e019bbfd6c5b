package tracker

import (
	"github.com/lintang-b-s/fleetmap/pkg/entity"
	"github.com/lintang-b-s/fleetmap/pkg/render"
)

// EventHandler receives viewer interactions with markers. Methods are called on the loop.
type EventHandler interface {
	MarkerSelected(kind entity.Kind, id string)
	ActionInvoked(kind entity.Kind, id string, action render.Action)
}

type nopEventHandler struct{}

func (nopEventHandler) MarkerSelected(kind entity.Kind, id string) {}

func (nopEventHandler) ActionInvoked(kind entity.Kind, id string, action render.Action) {}

// SelectOnClick turns marker clicks into selection changes on the bound engine: clicking an agent selects
// it while keeping the selected customer, and the same for customers. Actions go to next.
type SelectOnClick struct {
	engine *Engine
	next   EventHandler
}

func NewSelectOnClick(next EventHandler) *SelectOnClick {
	if next == nil {
		next = nopEventHandler{}
	}
	return &SelectOnClick{next: next}
}

// Bind attaches the handler to the engine whose selection it drives.
func (h *SelectOnClick) Bind(e *Engine) {
	h.engine = e
}

func (h *SelectOnClick) MarkerSelected(kind entity.Kind, id string) {
	if h.engine != nil {
		sel := h.engine.Selection()
		switch kind {
		case entity.KindAgent:
			sel.AgentID = id
		case entity.KindCustomer:
			sel.CustomerID = id
		}
		h.engine.SetSelection(sel.AgentID, sel.CustomerID)
	}
	h.next.MarkerSelected(kind, id)
}

func (h *SelectOnClick) ActionInvoked(kind entity.Kind, id string, action render.Action) {
	h.next.ActionInvoked(kind, id, action)
}
