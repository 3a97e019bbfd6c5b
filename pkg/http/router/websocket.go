package router

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/gobwas/ws"
	"github.com/lintang-b-s/fleetmap/pkg/concurrent"
	http_server "github.com/lintang-b-s/fleetmap/pkg/http/server"
	"github.com/mailru/easygo/netpoll"
	"go.uber.org/zap"
)

const (
	wsPoolSize  = 128
	wsPoolQueue = 16
	wsPoolSpawn = 8
)

// handleWebsocket serves the scene feed on the websocket port until ctx is done.
// Connections are multiplexed with epoll (netpoll) and served from a bounded goroutine pool,
// so idle viewers cost no goroutine. ref: https://sergey.kamardin.org/articles/million-websocket-and-go/
func (api *API) handleWebsocket(ctx context.Context, config http_server.Config) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", config.WebsocketPort))
	if err != nil {
		return err
	}
	api.log.Info(fmt.Sprintf("scene feed websocket run on port %d", config.WebsocketPort))

	acceptDesc, err := netpoll.HandleListener(ln, netpoll.EventRead|netpoll.EventOneShot)
	if err != nil {
		ln.Close()
		return err
	}

	api.poller, err = netpoll.New(nil)
	if err != nil {
		ln.Close()
		return err
	}

	api.pool = concurrent.NewPool(wsPoolSize, wsPoolQueue, wsPoolSpawn)

	// accept is a channel to signal about next incoming connection Accept()
	// results.
	accept := make(chan error, 1)

	err = api.poller.Start(acceptDesc, func(ev netpoll.Event) {
		defer api.poller.Resume(acceptDesc)
		err := api.pool.ScheduleTimeout(time.Millisecond, func() {
			conn, err := ln.Accept()
			if err != nil {
				accept <- err
				return
			}

			accept <- nil
			api.handle(conn)
		})
		if err == nil {
			err = <-accept
		}
		if err != nil {
			// pool saturated or a temporary accept failure: cool down before the next accept.
			var ne net.Error
			if errors.Is(err, concurrent.ErrScheduleTimeout) || (errors.As(err, &ne) && ne.Timeout()) {
				delay := 5 * time.Millisecond
				api.log.Sugar().Infof("accept error: %v; retrying in %s", err, delay)
				time.Sleep(delay)
				return
			}
			api.log.Error("accept error", zap.Error(err))
		}
	})
	if err != nil {
		ln.Close()
		return err
	}

	<-ctx.Done()

	_ = api.poller.Stop(acceptDesc)
	ln.Close()

	api.hub.RemoveAllUser()

	api.pool.Close()

	api.log.Info("websocket server stopped")
	return nil
}

// handle upgrades conn and registers it with the hub. Each readable event schedules one
// command read on the pool.
func (api *API) handle(conn net.Conn) {
	br := bufio.NewReader(conn)

	rw := struct {
		io.Reader
		io.Writer
	}{br, conn}

	hs, err := ws.Upgrade(rw)
	if err != nil {
		api.log.Info("upgrade error", zap.Error(err), zap.String("connection", nameConn(conn)))
		conn.Close()
		return
	}

	api.log.Info("established websocket connection", zap.String("connection", nameConn(conn)),
		zap.String("protocol", hs.Protocol))

	user := api.hub.Register(conn)

	desc, err := netpoll.HandleRead(conn)
	if err != nil {
		api.log.Info("watch connection", zap.Error(err), zap.String("connection", nameConn(conn)))
		api.hub.Remove(user)
		conn.Close()
		return
	}

	_ = api.poller.Start(desc, func(ev netpoll.Event) {
		if ev&(netpoll.EventReadHup|netpoll.EventHup) != 0 {
			api.log.Info("viewer disconnected", zap.String("connection", nameConn(conn)))

			_ = api.poller.Stop(desc)
			api.hub.Remove(user)
			conn.Close()
			return
		}

		api.pool.Schedule(func() {
			if err := user.Handle(); err != nil {
				api.log.Debug("viewer connection closed", zap.Error(err))
				_ = api.poller.Stop(desc)
				api.hub.Remove(user)
			}
		})
	})
}

func nameConn(conn net.Conn) string {
	return conn.LocalAddr().String() + " > " + conn.RemoteAddr().String()
}
