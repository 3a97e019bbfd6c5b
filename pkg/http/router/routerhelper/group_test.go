package routerhelper

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
)

func TestRouteGroup(t *testing.T) {
	router := httprouter.New()
	api := NewRouteGroup(router, "/api")

	handler := func(name string) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
			_, _ = w.Write([]byte(name + ":" + p.ByName("layer")))
		}
	}
	api.GET("/stats", handler("stats"))
	api.PUT("/layers/:layer", handler("layers"))
	api.Group("/view").POST("/reset", handler("reset"))
	api.DELETE("/", handler("root"))

	testCases := []struct {
		name   string
		method string
		path   string
		status int
		body   string
	}{
		{name: "get", method: http.MethodGet, path: "/api/stats", status: http.StatusOK, body: "stats:"},
		{name: "params", method: http.MethodPut, path: "/api/layers/routes", status: http.StatusOK, body: "layers:routes"},
		{name: "nested group", method: http.MethodPost, path: "/api/view/reset", status: http.StatusOK, body: "reset:"},
		{name: "prefix root", method: http.MethodDelete, path: "/api", status: http.StatusOK, body: "root:"},
		{name: "outside prefix", method: http.MethodGet, path: "/stats", status: http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
			assert.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, rec.Body.String())
			}
		})
	}
}
