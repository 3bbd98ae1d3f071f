package httpserver

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/tinytelemetry/vwatch/internal/store"
)

// fieldHello is the first event on every stream, sent once the subscription
// is active.
const fieldHello store.Field = "hello"

const (
	streamWriteWait  = 5 * time.Second
	streamPingPeriod = 30 * time.Second
)

// handleStream upgrades to a WebSocket, sends a hello event and then writes
// one JSON store Change per mutation until the client goes away or the server stops. Changes that
// arrive while the client is slow are dropped by the store subscription.
func (s *Server) handleStream(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := s.state.Subscribe(32)
	defer sub.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	if err := conn.WriteJSON(store.Change{Field: fieldHello, At: time.Now()}); err != nil {
		return
	}

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			return
		case <-s.ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(streamWriteWait))
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		case change, ok := <-sub.C:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(change); err != nil {
				s.log.WithError(err).Debug("websocket send failed")
				return
			}
		}
	}
}
