package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webitel/im-presence-service/internal/domain/model"
)

func newTestHub(t *testing.T) (*Hub, *PresenceRegistry) {
	t.Helper()
	p := NewPresenceRegistry()
	h := NewHub(p, WithSendTimeout(20*time.Millisecond))
	t.Cleanup(h.Shutdown)
	return h, p
}

func TestHub_PushToLiveSession(t *testing.T) {
	h, p := newTestHub(t)
	conn := NewConnector(context.Background(), "s1", ConnectMetadata{}, 4)
	h.Register(conn)
	p.Attach("s1", "alice")

	env := model.NewEnvelope(model.EnvelopeChatMessage, "hi")
	require.NoError(t, h.Push("alice", env))

	assert.Same(t, env, receive(t, conn))
}

func TestHub_PushWithoutSession(t *testing.T) {
	h, p := newTestHub(t)

	err := h.Push("alice", model.NewEnvelope(model.EnvelopeChatMessage, nil))
	assert.ErrorIs(t, err, model.ErrSessionNotConnected)

	// presence without a registered connector
	p.Attach("s1", "alice")
	err = h.Push("alice", model.NewEnvelope(model.EnvelopeChatMessage, nil))
	assert.ErrorIs(t, err, model.ErrSessionNotConnected)
}

func TestHub_PushRejectedByClosedConnector(t *testing.T) {
	h, p := newTestHub(t)
	conn := NewConnector(context.Background(), "s1", ConnectMetadata{}, 1)
	h.Register(conn)
	p.Attach("s1", "alice")
	conn.Close()

	err := h.Push("alice", model.NewEnvelope(model.EnvelopeChatMessage, nil))
	assert.ErrorIs(t, err, model.ErrDeliveryRejected)
}

func TestHub_EvictClosesConnector(t *testing.T) {
	h, _ := newTestHub(t)
	conn := NewConnector(context.Background(), "s1", ConnectMetadata{}, 1)
	h.Register(conn)
	assert.Equal(t, 1, h.Connections())

	h.Evict("s1")
	assert.Equal(t, 0, h.Connections())

	select {
	case <-conn.Done():
	default:
		t.Fatal("evicted connector must be closed")
	}
}

func TestHub_Shutdown(t *testing.T) {
	h, _ := newTestHub(t)
	a := NewConnector(context.Background(), "s1", ConnectMetadata{}, 1)
	b := NewConnector(context.Background(), "s2", ConnectMetadata{}, 1)
	h.Register(a)
	h.Register(b)

	h.Shutdown()

	assert.Equal(t, 0, h.Connections())
	assert.Error(t, contextErr(a))
	assert.Error(t, contextErr(b))
}

func contextErr(c Connector) error {
	select {
	case <-c.Done():
		return context.Canceled
	default:
		return nil
	}
}
