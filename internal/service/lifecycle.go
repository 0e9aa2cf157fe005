package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"

	"github.com/webitel/im-presence-service/internal/domain/model"
	"github.com/webitel/im-presence-service/internal/domain/registry"
	"github.com/webitel/im-presence-service/internal/service/dto"
)

const (
	DestinationAck          = "/ack"
	DestinationLastMessages = "/lastMessage"
	DestinationChatMessage  = "/chat/message"
)

// Lifecycle is the single entry point transports report connection events to.
type Lifecycle interface {
	OnConnect(ctx context.Context, session model.SessionID, hs model.Handshake)
	OnDisconnect(ctx context.Context, session model.SessionID)
	// OnClientMessage dispatches a client frame by destination. Errors are
	// informational; the connection is never torn down because of them.
	OnClientMessage(ctx context.Context, session model.SessionID, destination string, payload json.RawMessage) error
	StateOf(session model.SessionID) model.SessionState
}

type clientHandler func(ctx context.Context, session model.SessionID, identity model.Identity, payload json.RawMessage) error

type LifecycleParams struct {
	fx.In

	Presence registry.Presencer
	Gate     registry.Acknowledger
	Hub      registry.Hubber
	Router   Router
	Users    IdentityDirectory
	Rooms    ChatRoomDirectory
	Store    UndeliveredMessageStore
	Friends  FriendResolver
	Chats    *ChatService
	Status   StatusPublisher `optional:"true"`
	Logger   *slog.Logger
	Settings Settings
}

var _ Lifecycle = (*ConnectionLifecycleController)(nil)

type ConnectionLifecycleController struct {
	presence registry.Presencer
	gate     registry.Acknowledger
	hub      registry.Hubber
	router   Router
	users    IdentityDirectory
	rooms    ChatRoomDirectory
	store    UndeliveredMessageStore
	friends  FriendResolver
	chats    *ChatService
	status   StatusPublisher
	logger   *slog.Logger
	tracer   trace.Tracer

	recentChats int
	states      sync.Map // model.SessionID -> model.SessionState
	handlers    map[string]clientHandler
}

func NewConnectionLifecycleController(p LifecycleParams) *ConnectionLifecycleController {
	c := &ConnectionLifecycleController{
		presence:    p.Presence,
		gate:        p.Gate,
		hub:         p.Hub,
		router:      p.Router,
		users:       p.Users,
		rooms:       p.Rooms,
		store:       p.Store,
		friends:     p.Friends,
		chats:       p.Chats,
		status:      p.Status,
		logger:      p.Logger,
		tracer:      otel.Tracer(instrumentationName),
		recentChats: p.Settings.RecentChats,
	}
	if c.recentChats <= 0 {
		c.recentChats = 10
	}

	c.handlers = map[string]clientHandler{
		DestinationAck:          c.onAck,
		DestinationLastMessages: c.onLastMessages,
		DestinationChatMessage:  c.onChatMessage,
	}
	return c
}

func (c *ConnectionLifecycleController) StateOf(session model.SessionID) model.SessionState {
	if v, ok := c.states.Load(session); ok {
		return v.(model.SessionState)
	}
	return model.StateClosed
}

func (c *ConnectionLifecycleController) OnConnect(ctx context.Context, session model.SessionID, hs model.Handshake) {
	c.states.Store(session, model.StateConnecting)

	if !hs.Resolved() {
		err := hs.Failure
		if err == nil {
			err = model.ErrIdentityMissing
		}
		c.logger.Warn("IDENTITY_EXTRACTION_FAILED", "session_id", session, "err", err)
		c.states.Delete(session)
		return
	}
	identity := hs.Identity

	if superseded, replaced := c.presence.Attach(session, identity); replaced {
		c.logger.Info("SESSION_SUPERSEDED",
			"identity", identity,
			"session_id", session,
			"superseded_id", superseded,
		)
		c.gate.Clear(identity, superseded)
		c.states.Delete(superseded)
		c.hub.Evict(superseded)
	}
	c.states.Store(session, model.StateActiveUnacked)

	c.logger.Info("SESSION_CONNECTED", "identity", identity, "session_id", session)
	c.markActivity(ctx, identity, true)
}

func (c *ConnectionLifecycleController) OnDisconnect(ctx context.Context, session model.SessionID) {
	c.states.Delete(session)

	identity, ok := c.presence.Detach(session)
	if !ok {
		return
	}
	c.gate.Clear(identity, session)

	c.logger.Info("SESSION_DISCONNECTED", "identity", identity, "session_id", session)

	// A reconnect may have landed right after the detach.
	if c.presence.IsLive(identity) {
		return
	}
	c.markActivity(ctx, identity, false)
}

func (c *ConnectionLifecycleController) OnClientMessage(ctx context.Context, session model.SessionID, destination string, payload json.RawMessage) error {
	handler, ok := c.handlers[destination]
	if !ok {
		c.logger.Warn("UNKNOWN_DESTINATION", "session_id", session, "destination", destination)
		return fmt.Errorf("lifecycle: %q: %w", destination, model.ErrUnknownDestination)
	}

	identity, ok := c.presence.IdentityOf(session)
	if !ok {
		c.logger.Warn("CLIENT_MESSAGE_UNTRACKED_SESSION", "session_id", session, "destination", destination)
		return fmt.Errorf("lifecycle: %s: %w", destination, model.ErrSessionNotConnected)
	}

	if err := handler(ctx, session, identity, payload); err != nil {
		c.logger.Warn("CLIENT_MESSAGE_REJECTED",
			"session_id", session,
			"identity", identity,
			"destination", destination,
			"err", err,
		)
		return err
	}
	return nil
}

func (c *ConnectionLifecycleController) onAck(ctx context.Context, session model.SessionID, current model.Identity, payload json.RawMessage) error {
	var req dto.AckRequest
	if err := decode(payload, &req); err != nil {
		return err
	}

	identity := req.Resolve()
	if identity.IsZero() {
		return fmt.Errorf("ack: %w", model.ErrIdentityMissing)
	}
	if identity != current {
		return fmt.Errorf("ack: %s on session of %s: %w", identity, current, model.ErrIdentityMismatch)
	}

	if !c.gate.MarkReady(identity, session) {
		c.logger.Debug("DUPLICATE_ACK", "identity", identity, "session_id", session)
		return nil
	}
	c.states.Store(session, model.StateActiveReady)

	return c.catchUp(ctx, session, identity)
}

func (c *ConnectionLifecycleController) onLastMessages(ctx context.Context, _ model.SessionID, current model.Identity, payload json.RawMessage) error {
	var req dto.LastMessagesRequest
	if err := decode(payload, &req); err != nil {
		return err
	}
	if req.Identity != "" && model.Identity(req.Identity) != current {
		return fmt.Errorf("last messages: %w", model.ErrIdentityMismatch)
	}
	return c.chats.SendLastMessages(ctx, current, req.ChatID)
}

func (c *ConnectionLifecycleController) onChatMessage(ctx context.Context, _ model.SessionID, current model.Identity, payload json.RawMessage) error {
	var req dto.SendMessageRequest
	if err := decode(payload, &req); err != nil {
		return err
	}
	if req.SenderID != "" && model.Identity(req.SenderID) != current {
		return fmt.Errorf("chat message: %w", model.ErrIdentityMismatch)
	}
	_, err := c.chats.PostMessage(ctx, current, req.ChatID, req.Content)
	return err
}

// catchUp drains the undelivered queue and pushes one ALL_CHATS bundle.
// Previews and friend activity degrade to empty. A drain or push failure
// resets readiness so the next ack on the same session retries.
func (c *ConnectionLifecycleController) catchUp(ctx context.Context, session model.SessionID, identity model.Identity) error {
	ctx, span := c.tracer.Start(ctx, "lifecycle.catch_up", trace.WithAttributes(
		attribute.String("identity", identity.String()),
	))
	defer span.End()

	var (
		pending  []*model.Envelope
		previews []model.ChatPreview
		activity map[model.Identity]bool
	)

	var g errgroup.Group
	g.Go(func() error {
		var err error
		pending, err = c.store.Drain(ctx, identity)
		if err != nil {
			return fmt.Errorf("catch-up: drain %s: %w", identity, err)
		}
		return nil
	})
	g.Go(func() error {
		rooms, err := c.rooms.FindRecentRoomsOf(ctx, identity, c.recentChats)
		if err != nil {
			c.logger.Warn("CATCH_UP_PREVIEWS_UNAVAILABLE", "identity", identity, "err", err)
		}
		previews = model.NewChatPreviews(rooms)
		return nil
	})
	g.Go(func() error {
		friends, err := c.friends.Friends(ctx, identity)
		if err != nil {
			c.logger.Warn("CATCH_UP_ACTIVITY_UNAVAILABLE", "identity", identity, "err", err)
		}
		activity = c.activityOf(friends)
		return nil
	})

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		c.resetReadiness(identity, session)
		c.logger.Error("CATCH_UP_DRAIN_FAILED", "identity", identity, "session_id", session, "err", err)
		return err
	}
	if pending == nil {
		pending = []*model.Envelope{}
	}

	bundle := model.CatchUpBundle{
		Chats:               previews,
		UndeliveredMessages: pending,
		FriendsActivity:     activity,
	}
	if err := c.hub.Push(identity, model.NewEnvelope(model.EnvelopeAllChats, bundle)); err != nil {
		err = c.requeue(ctx, identity, pending, err)
		span.RecordError(err)
		c.resetReadiness(identity, session)
		return err
	}

	c.logger.Info("CATCH_UP_DELIVERED",
		"identity", identity,
		"undelivered", len(pending),
		"chats", len(previews),
		"friends", len(activity),
	)
	return nil
}

// requeue puts drained envelopes back in their original order after the
// bundle push failed, so nothing drained is lost.
func (c *ConnectionLifecycleController) requeue(ctx context.Context, identity model.Identity, pending []*model.Envelope, cause error) error {
	errs := []error{fmt.Errorf("catch-up: push bundle to %s: %w", identity, cause)}
	for _, env := range pending {
		if err := c.store.Enqueue(ctx, identity, env); err != nil {
			errs = append(errs, fmt.Errorf("catch-up: requeue: %w", err))
		}
	}

	err := errors.Join(errs...)
	c.logger.Warn("CATCH_UP_REQUEUED", "identity", identity, "count", len(pending), "err", err)
	return err
}

func (c *ConnectionLifecycleController) resetReadiness(identity model.Identity, session model.SessionID) {
	c.gate.Clear(identity, session)
	c.states.CompareAndSwap(session, model.StateActiveReady, model.StateActiveUnacked)
}

func (c *ConnectionLifecycleController) activityOf(friends []model.Identity) map[model.Identity]bool {
	activity := make(map[model.Identity]bool, len(friends))
	for _, f := range friends {
		activity[f] = c.presence.IsLive(f)
	}
	return activity
}

// markActivity flips the durable active flag and tells friends. In-memory
// presence is already final here, so store failures are only logged.
func (c *ConnectionLifecycleController) markActivity(ctx context.Context, identity model.Identity, active bool) {
	user, err := c.users.FindByIdentity(ctx, identity)
	switch {
	case errors.Is(err, model.ErrNotFound):
		c.logger.Warn("USER_NOT_FOUND", "identity", identity, "active", active)
		return
	case err != nil:
		c.logger.Error("ACTIVE_FLAG_LOAD_FAILED", "identity", identity, "err", err)
	default:
		user.Active = active
		if err := c.users.Save(ctx, user); err != nil {
			c.logger.Error("ACTIVE_FLAG_SAVE_FAILED", "identity", identity, "active", active, "err", err)
		}
	}

	if err := c.router.BroadcastActivity(ctx, identity, active); err != nil {
		c.logger.Warn("ACTIVITY_NOT_BROADCAST", "identity", identity, "active", active, "err", err)
	}

	if c.status != nil {
		if err := c.status.PublishStatus(ctx, model.ActivityStatus{Identity: identity, Active: active}); err != nil {
			c.logger.Warn("STATUS_PUBLISH_FAILED", "identity", identity, "err", err)
		}
	}
}

func decode(payload json.RawMessage, into any) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: empty payload", model.ErrMalformedPayload)
	}
	if err := json.Unmarshal(payload, into); err != nil {
		return fmt.Errorf("%w: %v", model.ErrMalformedPayload, err)
	}
	return nil
}
