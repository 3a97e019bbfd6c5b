package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/lintang-b-s/fleetmap/pkg/http/usecases"
	"github.com/lintang-b-s/fleetmap/pkg/render"
	"github.com/lintang-b-s/fleetmap/pkg/util"
	"go.uber.org/zap"
)

const (
	writeWait    = 5 * time.Second
	feedBuffer   = 256
	eventsBuffer = 64
)

type wsMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// User is one websocket viewer.
type User struct {
	io   sync.Mutex
	conn io.ReadWriteCloser

	id  uint
	hub *Hub
}

func (u *User) readCommand() (*wsCommand, error) {
	u.io.Lock()
	defer u.io.Unlock()

	h, r, err := wsutil.NextReader(u.conn, ws.StateServerSide)
	if err != nil {
		return nil, err
	}
	if h.OpCode.IsControl() {
		return nil, wsutil.ControlFrameHandler(u.conn, ws.StateServerSide)(h, r)
	}

	cmd := &wsCommand{}
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

// Handle reads one viewer command and applies it. A returned error means the connection is gone.
func (u *User) Handle() error {
	cmd, err := u.readCommand()
	if err != nil {
		u.conn.Close()
		return err
	}
	if cmd == nil {
		return nil
	}

	if err := u.hub.validate.Struct(cmd); err != nil {
		return u.writeError(err)
	}

	switch cmd.Type {
	case "click":
		err = u.hub.service.Click(render.Handle(cmd.Handle))
	case "action":
		err = u.hub.service.Invoke(render.Handle(cmd.Handle), render.Action(cmd.Action))
	case "select":
		u.hub.service.SetSelection(cmd.AgentID, cmd.CustomerID)
	}
	if err != nil {
		return u.writeError(err)
	}
	return nil
}

func (u *User) writeError(err error) error {
	status := http.StatusInternalServerError
	switch util.ErrorCode(err) {
	case util.ErrBadParamInput:
		status = http.StatusBadRequest
	case util.ErrNotFound:
		status = http.StatusNotFound
	}
	return u.write(envelope{"error": map[string]string{
		"code":    http.StatusText(status),
		"message": err.Error(),
	}})
}

func (u *User) write(x interface{}) error {
	w := wsutil.NewWriter(u.conn, ws.StateServerSide, ws.OpText)
	encoder := json.NewEncoder(w)

	u.io.Lock()
	defer u.io.Unlock()

	if err := encoder.Encode(x); err != nil {
		return err
	}

	return w.Flush()
}

func (u *User) writeFrame(payload []byte) error {
	u.io.Lock()
	defer u.io.Unlock()

	if c, ok := u.conn.(net.Conn); ok {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		defer c.SetWriteDeadline(time.Time{})
	}
	return wsutil.WriteServerMessage(u.conn, ws.OpText, payload)
}

// Hub keeps the connected viewers and fans scene ops and marker events out to them.
type Hub struct {
	mu  sync.RWMutex
	seq uint
	us  []*User
	ns  map[uint]*User

	// out orders broadcasts against the scene snapshot a new viewer starts from.
	out sync.Mutex

	service  TrackerService
	validate *requestValidator
	log      *zap.Logger
	events   chan usecases.Event
}

func NewHub(service TrackerService, log *zap.Logger) *Hub {
	hub := &Hub{
		ns:       make(map[uint]*User),
		us:       make([]*User, 0),
		service:  service,
		validate: newRequestValidator(),
		log:      log,
		events:   make(chan usecases.Event, eventsBuffer),
	}

	return hub
}

// Register sends conn the current scene and then adds it as a viewer.
func (h *Hub) Register(conn net.Conn) *User {
	user := &User{
		hub:  h,
		conn: conn,
	}

	h.out.Lock()
	defer h.out.Unlock()

	h.mu.Lock()
	user.id = h.seq
	h.seq++
	h.mu.Unlock()

	if err := user.write(wsMessage{Type: "scene", Data: h.service.Scene()}); err != nil {
		h.log.Info("initial scene write failed", zap.Uint("user", user.id), zap.Error(err))
		conn.Close()
		return user
	}

	h.mu.Lock()
	h.ns[user.id] = user
	h.us = append(h.us, user)
	h.mu.Unlock()

	return user
}

func (h *Hub) Remove(user *User) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.ns[user.id]; !ok {
		return
	}
	delete(h.ns, user.id)

	i := sort.Search(len(h.us), func(i int) bool {
		return h.us[i].id >= user.id
	})

	newUs := make([]*User, len(h.us)-1)
	copy(newUs[:i], h.us[:i])
	copy(newUs[i:], h.us[i+1:])
	h.us = newUs
}

func (h *Hub) RemoveAllUser() {
	h.mu.RLock()
	users := append([]*User(nil), h.us...)
	h.mu.RUnlock()

	for _, user := range users {
		h.Remove(user)
		user.conn.Close()
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.us)
}

// Notify queues a marker event for broadcast. It never blocks; events are dropped when viewers lag.
func (h *Hub) Notify(ev usecases.Event) {
	select {
	case h.events <- ev:
	default:
		h.log.Debug("dropping marker event", zap.String("kind", ev.Kind), zap.String("id", ev.ID))
	}
}

// Broadcast writes msg to every viewer in turn. Viewers whose write fails are dropped.
func (h *Hub) Broadcast(msg interface{}) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("encode broadcast", zap.Error(err))
		return
	}

	h.out.Lock()
	defer h.out.Unlock()

	h.mu.RLock()
	users := append([]*User(nil), h.us...)
	h.mu.RUnlock()

	for _, user := range users {
		if err := user.writeFrame(payload); err != nil {
			h.log.Info("dropping viewer", zap.Uint("user", user.id), zap.Error(err))
			h.Remove(user)
			user.conn.Close()
		}
	}
}

// Run forwards scene ops from feed and queued events until ctx is done. When the feed
// reports that ops were lost, every viewer gets a fresh scene instead.
func (h *Hub) Run(ctx context.Context, feed SceneFeed) {
	ops, cancel := feed.Subscribe(feedBuffer)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case op, ok := <-ops:
			if !ok {
				return
			}
			if op.Op == render.OpResync {
				h.Broadcast(wsMessage{Type: "scene", Data: h.service.Scene()})
				continue
			}
			h.Broadcast(wsMessage{Type: "op", Data: op})
		case ev := <-h.events:
			h.Broadcast(wsMessage{Type: "event", Data: ev})
		}
	}
}
