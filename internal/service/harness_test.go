package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/webitel/im-presence-service/internal/adapter/store/memory"
	"github.com/webitel/im-presence-service/internal/domain/model"
	"github.com/webitel/im-presence-service/internal/domain/registry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingPublisher struct {
	mu       sync.Mutex
	statuses []model.ActivityStatus
}

func (p *recordingPublisher) PublishStatus(_ context.Context, s model.ActivityStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, s)
	return nil
}

func (p *recordingPublisher) all() []model.ActivityStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.ActivityStatus(nil), p.statuses...)
}

// flakyStore fails Drain or Enqueue on demand.
type flakyStore struct {
	*memory.Store

	mu         sync.Mutex
	drainErr   error
	enqueueErr map[model.Identity]error
}

func (f *flakyStore) Drain(ctx context.Context, id model.Identity) ([]*model.Envelope, error) {
	f.mu.Lock()
	err := f.drainErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Store.Drain(ctx, id)
}

func (f *flakyStore) Enqueue(ctx context.Context, id model.Identity, env *model.Envelope) error {
	f.mu.Lock()
	err := f.enqueueErr[id]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Store.Enqueue(ctx, id, env)
}

func (f *flakyStore) failDrain(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drainErr = err
}

type harness struct {
	t        *testing.T
	ctx      context.Context
	presence *registry.PresenceRegistry
	gate     *registry.AcknowledgmentGate
	hub      *registry.Hub
	db       *memory.Store
	store    *flakyStore
	friends  *CachedFriendResolver
	router   *BroadcastRouter
	chats    *ChatService
	ctrl     *ConnectionLifecycleController
	status   *recordingPublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	presence := registry.NewPresenceRegistry()
	gate := registry.NewAcknowledgmentGate(presence)
	hub := registry.NewHub(presence, registry.WithSendTimeout(50*time.Millisecond))
	db := memory.New()
	store := &flakyStore{Store: db, enqueueErr: map[model.Identity]error{}}
	friends := NewCachedFriendResolver(db, 128, time.Minute)
	router := NewBroadcastRouter(presence, gate, hub, store, friends)
	logger := discardLogger()
	chats := NewChatService(db, db, router, friends, NewParticipantEnricher(db), logger, 20)
	status := &recordingPublisher{}

	ctrl := NewConnectionLifecycleController(LifecycleParams{
		Presence: presence,
		Gate:     gate,
		Hub:      hub,
		Router:   router,
		Users:    db,
		Rooms:    db,
		Store:    store,
		Friends:  friends,
		Chats:    chats,
		Status:   status,
		Logger:   logger,
		Settings: Settings{RecentChats: 10, LastMessages: 20},
	})
	t.Cleanup(hub.Shutdown)

	return &harness{
		t:        t,
		ctx:      context.Background(),
		presence: presence,
		gate:     gate,
		hub:      hub,
		db:       db,
		store:    store,
		friends:  friends,
		router:   router,
		chats:    chats,
		ctrl:     ctrl,
		status:   status,
	}
}

func (h *harness) user(id model.Identity) {
	h.t.Helper()
	require.NoError(h.t, h.db.Save(h.ctx, &model.User{Identity: id, FirstName: string(id)}))
}

func (h *harness) room(id string, members ...model.Identity) {
	h.t.Helper()
	users := make([]model.Participant, 0, len(members))
	for _, m := range members {
		users = append(users, model.Participant{UserID: m})
	}
	require.NoError(h.t, h.db.SaveRoom(h.ctx, &model.ChatRoom{ID: id, Users: users}))
}

func (h *harness) connect(id model.Identity) (model.SessionID, registry.Connector) {
	h.t.Helper()
	session := model.NewSessionID()
	conn := registry.NewConnector(h.ctx, session, registry.ConnectMetadata{}, 64)
	h.hub.Register(conn)
	h.ctrl.OnConnect(h.ctx, session, model.Handshake{Identity: id})
	return session, conn
}

func (h *harness) ack(session model.SessionID, id model.Identity) error {
	return h.ctrl.OnClientMessage(h.ctx, session, DestinationAck, []byte(`{"identity":"`+string(id)+`"}`))
}

// ready connects id, acks and consumes the ALL_CHATS bundle.
func (h *harness) ready(id model.Identity) (model.SessionID, registry.Connector) {
	h.t.Helper()
	session, conn := h.connect(id)
	require.NoError(h.t, h.ack(session, id))
	env := expectEnvelope(h.t, conn)
	require.Equal(h.t, model.EnvelopeAllChats, env.Type)
	return session, conn
}

func receive(conn registry.Connector, within time.Duration) (*model.Envelope, bool) {
	timer := time.NewTimer(within)
	defer timer.Stop()
	for {
		if env, ok := conn.Next(); ok {
			return env, true
		}
		select {
		case <-conn.Ready():
		case <-timer.C:
			return nil, false
		}
	}
}

func expectEnvelope(t *testing.T, conn registry.Connector) *model.Envelope {
	t.Helper()
	env, ok := receive(conn, time.Second)
	if !ok {
		t.Fatal("expected an envelope")
	}
	return env
}

func expectNoEnvelope(t *testing.T, conn registry.Connector) {
	t.Helper()
	if env, ok := receive(conn, 30*time.Millisecond); ok {
		t.Fatalf("unexpected %s envelope", env.Type)
	}
}
