package routerhelper

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// RouteGroup registers handlers on a shared httprouter under a common path prefix.
type RouteGroup struct {
	router *httprouter.Router
	prefix string
}

func NewRouteGroup(router *httprouter.Router, prefix string) *RouteGroup {
	return &RouteGroup{router: router, prefix: prefix}
}

func (g *RouteGroup) Group(path string) *RouteGroup {
	return &RouteGroup{router: g.router, prefix: g.path(path)}
}

func (g *RouteGroup) path(p string) string {
	if p == "" || p == "/" {
		return g.prefix
	}
	return g.prefix + p
}

func (g *RouteGroup) Handle(method, path string, handle httprouter.Handle) {
	g.router.Handle(method, g.path(path), handle)
}

func (g *RouteGroup) GET(path string, handle httprouter.Handle) {
	g.Handle(http.MethodGet, path, handle)
}

func (g *RouteGroup) POST(path string, handle httprouter.Handle) {
	g.Handle(http.MethodPost, path, handle)
}

func (g *RouteGroup) PUT(path string, handle httprouter.Handle) {
	g.Handle(http.MethodPut, path, handle)
}

func (g *RouteGroup) DELETE(path string, handle httprouter.Handle) {
	g.Handle(http.MethodDelete, path, handle)
}
