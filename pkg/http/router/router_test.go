package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lintang-b-s/fleetmap/pkg/entity"
	"github.com/lintang-b-s/fleetmap/pkg/host"
	http_server "github.com/lintang-b-s/fleetmap/pkg/http/server"
	"github.com/lintang-b-s/fleetmap/pkg/http/usecases"
	"github.com/lintang-b-s/fleetmap/pkg/render"
	"github.com/lintang-b-s/fleetmap/pkg/routing"
	"github.com/lintang-b-s/fleetmap/pkg/source"
	"github.com/lintang-b-s/fleetmap/pkg/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stack struct {
	loop    *host.Manual
	scene   *render.Scene
	service *usecases.TrackerService
	engine  *tracker.Engine
	handler http.Handler

	mu     sync.Mutex
	events []usecases.Event
}

func newStack(t *testing.T, config http_server.Config, useRateLimit bool) *stack {
	t.Helper()
	log := zap.NewNop()
	s := &stack{loop: host.NewManual(), scene: render.NewScene(tracker.DefaultZoom)}

	mem := source.NewMemory()
	s.service = usecases.NewTrackerService(log, nil, s.scene, mem)
	engine, err := tracker.NewEngine(tracker.Config{
		Scheduler:       s.loop,
		Renderer:        s.scene,
		Routing:         routing.Unavailable{},
		Source:          mem,
		Events:          s.service,
		Log:             log,
		RefreshInterval: -1,
	})
	require.NoError(t, err)
	t.Cleanup(engine.Dispose)
	s.engine = engine
	s.service.SetEngine(engine)
	s.service.OnEvent(func(ev usecases.Event) {
		s.mu.Lock()
		s.events = append(s.events, ev)
		s.mu.Unlock()
	})

	s.handler = NewAPI(log, s.service, s.scene).Handler(config, useRateLimit)
	s.loop.Flush()
	return s
}

func (s *stack) do(method, path, body, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *stack) eventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type sceneBody struct {
	Data struct {
		Scene struct {
			Features []struct {
				ID         string                 `json:"id"`
				Properties map[string]interface{} `json:"properties"`
			} `json:"features"`
		} `json:"scene"`
	} `json:"data"`
}

func TestAPIEndToEnd(t *testing.T) {
	s := newStack(t, http_server.Config{WebsocketPort: 1}, false)

	rec := s.do(http.MethodPut, "/api/entities", `{
		"agents":[{"id":"a1","name":"Budi","location":{"lat":-6.2,"lon":106.8},"status":"Active"}],
		"customers":[{"id":"c1","name":"Toko Sinar","location":{"lat":-6.21,"lon":106.81}}]}`, "application/json")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	require.Eventually(t, func() bool {
		s.loop.Flush()
		return s.engine.Stats().Routes == 1
	}, 2*time.Second, time.Millisecond)
	assert.Equal(t, tracker.Stats{ActiveAgents: 1, TotalAgents: 1, Customers: 1, Routes: 1}, s.engine.Stats())

	rec = s.do(http.MethodGet, "/api/scene", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body sceneBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	var agentHandle string
	markers := 0
	for _, f := range body.Data.Scene.Features {
		if f.Properties["kind"] == "marker" {
			markers++
		}
		if f.Properties["title"] == "Budi" {
			agentHandle = f.ID
		}
	}
	assert.Equal(t, 2, markers)
	require.NotEmpty(t, agentHandle)

	rec = s.do(http.MethodPost, "/api/markers/"+agentHandle+"/actions/contact-agent", "", "")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, "/api/markers/"+agentHandle+"/actions/assign-agent", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(http.MethodPost, "/api/markers/"+agentHandle+"/click", "", "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	s.loop.Flush()
	require.Equal(t, 2, s.eventCount())
	assert.Equal(t, render.ActionContactAgent, s.events[0].Action)
	assert.Equal(t, "agent", s.events[1].Kind)
	assert.Equal(t, "a1", s.events[1].ID)

	rec = s.do(http.MethodPut, "/api/layers/routes", `{"visible":false}`, "application/json")
	require.Equal(t, http.StatusAccepted, rec.Code)
	s.loop.Flush()
	assert.False(t, s.scene.LayerVisible(render.LayerRoutes))

	rec = s.do(http.MethodPut, "/api/selection", `{"agent_id":"a1"}`, "application/json")
	require.Equal(t, http.StatusAccepted, rec.Code)
	s.loop.Flush()
	assert.Equal(t, entity.Selection{AgentID: "a1"}, s.engine.Selection())

	rec = s.do(http.MethodGet, "/api/stats", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_agents":1`)
}

func TestMiddleware(t *testing.T) {
	s := newStack(t, http_server.Config{WebsocketPort: 1, RateLimit: 1, RateLimitBurst: 2}, true)

	testCases := []struct {
		name        string
		method      string
		path        string
		body        string
		contentType string
		status      int
	}{
		{name: "heartbeat", method: http.MethodGet, path: "/healthz", status: http.StatusOK},
		{name: "missing content type", method: http.MethodPut, path: "/api/selection", body: `{}`, status: http.StatusBadRequest},
		{name: "wrong content type", method: http.MethodPut, path: "/api/selection", body: `{}`, contentType: "text/plain", status: http.StatusUnsupportedMediaType},
		{name: "within burst", method: http.MethodGet, path: "/api/stats", status: http.StatusOK},
		{name: "burst exhausted", method: http.MethodGet, path: "/api/scene", status: http.StatusOK},
		{name: "rate limited", method: http.MethodGet, path: "/api/stats", status: http.StatusTooManyRequests},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(tc.method, tc.path, tc.body, tc.contentType)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestRealIP(t *testing.T) {
	testCases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "x-real-ip", headers: map[string]string{"X-Real-IP": "10.0.0.7"}, want: "10.0.0.7"},
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, want: "203.0.113.9"},
		{name: "garbage ignored", headers: map[string]string{"X-Forwarded-For": "not-an-ip"}, want: "192.0.2.1:1234"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			h := RealIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRecoverPanic(t *testing.T) {
	api := &API{log: zap.NewNop()}
	h := api.recoverPanic(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "close", rec.Header().Get("Connection"))
	assert.Contains(t, rec.Body.String(), "internal server error")
}
