package router

import (
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// upstream relays the raw connection to addr, so /ws on the API port reaches the websocket server.
func (api *API) upstream(name, network, addr string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		peer, err := net.Dial(network, addr)
		if err != nil {
			api.log.Error("dial upstream error", zap.String("upstream", name), zap.Error(err))
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if err := r.Write(peer); err != nil {
			api.log.Error("write request to upstream error", zap.String("upstream", name), zap.Error(err))
			peer.Close()
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		hj, ok := w.(http.Hijacker)
		if !ok {
			peer.Close()
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		conn, _, err := hj.Hijack() // get tcp socket
		if err != nil {
			peer.Close()
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		// the server's read/write timeouts must not cut a long-lived feed.
		_ = conn.SetDeadline(time.Time{})

		go func() {
			defer peer.Close()
			defer conn.Close()
			io.Copy(peer, conn)
		}()
		go func() {
			defer peer.Close()
			defer conn.Close()
			io.Copy(conn, peer)
		}()
	}
}
