// Package ws is the websocket transport. It turns a socket into a registered
// connector and reports connect, frame and disconnect events to the
// connection lifecycle.
package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/webitel/im-presence-service/config"
	"github.com/webitel/im-presence-service/infra/server/http/interceptors"
	"github.com/webitel/im-presence-service/internal/domain/model"
	"github.com/webitel/im-presence-service/internal/domain/registry"
	wsmarshaller "github.com/webitel/im-presence-service/internal/handler/marshaller/ws"
	"github.com/webitel/im-presence-service/internal/service"
)

type WSHandler struct {
	logger    *slog.Logger
	lifecycle service.Lifecycle
	hub       registry.Hubber
	upgrader  websocket.Upgrader
	cfg       config.WSConfig
}

func NewWSHandler(cfg *config.Config, logger *slog.Logger, lifecycle service.Lifecycle, hub registry.Hubber) *WSHandler {
	policy := newOriginPolicy(cfg.WS.AllowedOrigins)

	h := &WSHandler{
		logger:    logger,
		lifecycle: lifecycle,
		hub:       hub,
		cfg:       withDefaults(cfg.WS),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if policy.check(r) {
				return true
			}
			logger.Warn("WS_ORIGIN_REJECTED", "origin", r.Header.Get("Origin"))
			return false
		},
	}
	return h
}

func withDefaults(c config.WSConfig) config.WSConfig {
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.PongWait {
		c.PingInterval = c.PongWait * 9 / 10
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	return c
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	hs, ok := interceptors.GetHandshake(r.Context())
	if !ok {
		hs = interceptors.ExtractHandshake(r)
	}

	sock, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WS_UPGRADE_FAILED", "err", err)
		return
	}

	// Keep request values, drop its cancellation.
	ctx := context.WithoutCancel(r.Context())
	session := model.NewSessionID()
	conn := registry.NewConnector(ctx, session, registry.ConnectMetadata{
		RemoteIP:  r.RemoteAddr,
		UserAgent: r.UserAgent(),
		Origin:    r.Header.Get("Origin"),
	}, h.cfg.BufferSize)

	h.hub.Register(conn)
	h.lifecycle.OnConnect(ctx, session, hs)
	h.logger.Info("WS_OPENED", "session_id", session, "identity", hs.Identity, "remote_ip", r.RemoteAddr)

	go h.writePump(sock, conn)
	h.readPump(ctx, sock, conn)

	h.lifecycle.OnDisconnect(ctx, session)
	h.hub.Unregister(session)
	conn.Close()
	_ = sock.Close()

	h.logger.Info("WS_CLOSED", "session_id", session, "dropped", conn.DroppedCount())
}

func (h *WSHandler) readPump(ctx context.Context, sock *websocket.Conn, conn registry.Connector) {
	if h.cfg.ReadLimit > 0 {
		sock.SetReadLimit(h.cfg.ReadLimit)
	}
	_ = sock.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	sock.SetPongHandler(func(string) error {
		return sock.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	for {
		_, data, err := sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!errors.Is(err, websocket.ErrCloseSent) {
				h.logger.Debug("WS_READ_FAILED", "session_id", conn.GetID(), "err", err)
			}
			return
		}

		frame, err := wsmarshaller.UnmarshallClientFrame(data)
		if err != nil {
			h.logger.Warn("WS_FRAME_MALFORMED", "session_id", conn.GetID(), "err", err)
			continue
		}

		// Rejections are logged by the lifecycle and never close the socket.
		_ = h.lifecycle.OnClientMessage(ctx, conn.GetID(), frame.Destination, frame.Payload)
	}
}

// writePump is the only writer of sock. It exits when the connector is
// closed or a write fails, and closes the socket so readPump returns too.
func (h *WSHandler) writePump(sock *websocket.Conn, conn registry.Connector) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = sock.Close()
	}()

	for {
		select {
		case <-conn.Done():
			_ = sock.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(h.cfg.WriteWait))
			return

		case <-conn.Ready():
			if !h.flush(sock, conn) {
				conn.Close()
				return
			}

		case <-ticker.C:
			_ = sock.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			if err := sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}

// flush writes every queued envelope in order. It reports false when the
// socket can no longer be written.
func (h *WSHandler) flush(sock *websocket.Conn, conn registry.Connector) bool {
	for {
		env, ok := conn.Next()
		if !ok {
			return true
		}
		data, err := wsmarshaller.MarshallEnvelope(env)
		if err != nil {
			h.logger.Error("WS_MARSHAL_FAILED", "session_id", conn.GetID(), "type", env.Type, "err", err)
			continue
		}
		_ = sock.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
		if err := sock.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debug("WS_WRITE_FAILED", "session_id", conn.GetID(), "err", err)
			return false
		}
	}
}
