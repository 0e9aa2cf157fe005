package registry

import (
	"sync"
	"time"

	"github.com/webitel/im-presence-service/internal/domain/model"
)

// Hubber is the gateway from an identity to its open socket.
type Hubber interface {
	Register(conn Connector)
	Unregister(session model.SessionID)
	// Push resolves identity through presence and enqueues env on its
	// connector. It returns model.ErrSessionNotConnected when there is no
	// live connector and model.ErrDeliveryRejected when the connector shed env.
	Push(identity model.Identity, env *model.Envelope) error
	// Evict closes and forgets the connector of session.
	Evict(session model.SessionID)
	Connections() int
	Shutdown()
}

var _ Hubber = (*Hub)(nil)

type Hub struct {
	presence Presencer
	conns    sync.Map // model.SessionID -> Connector

	config hubConfig
}

type hubConfig struct {
	sendTimeout time.Duration
}

func NewHub(presence Presencer, opts ...Option) *Hub {
	h := &Hub{
		presence: presence,
		config: hubConfig{
			sendTimeout: 2 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) Register(conn Connector) {
	if prev, loaded := h.conns.Swap(conn.GetID(), conn); loaded && prev.(Connector) != conn {
		prev.(Connector).Close()
	}
}

func (h *Hub) Unregister(session model.SessionID) {
	h.conns.Delete(session)
}

func (h *Hub) Push(identity model.Identity, env *model.Envelope) error {
	session, ok := h.presence.SessionOf(identity)
	if !ok {
		return model.ErrSessionNotConnected
	}
	val, ok := h.conns.Load(session)
	if !ok {
		return model.ErrSessionNotConnected
	}
	if !val.(Connector).Send(env, h.config.sendTimeout) {
		return model.ErrDeliveryRejected
	}
	return nil
}

func (h *Hub) Evict(session model.SessionID) {
	if val, ok := h.conns.LoadAndDelete(session); ok {
		val.(Connector).Close()
	}
}

func (h *Hub) Connections() int {
	n := 0
	h.conns.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Shutdown closes every connector. Transports notice through Done.
func (h *Hub) Shutdown() {
	h.conns.Range(func(key, val any) bool {
		val.(Connector).Close()
		h.conns.Delete(key)
		return true
	})
}
