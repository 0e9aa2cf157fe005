package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/webitel/im-presence-service/internal/domain/model"
)

// ChatService turns chat-domain events into routed envelopes. Events come
// from connected clients and from the bus.
type ChatService struct {
	rooms    ChatRoomDirectory
	messages MessageDirectory
	router   Router
	friends  FriendResolver
	enricher Enricher
	logger   *slog.Logger

	lastMessages int
	now          func() time.Time
}

func NewChatService(
	rooms ChatRoomDirectory,
	messages MessageDirectory,
	router Router,
	friends FriendResolver,
	enricher Enricher,
	logger *slog.Logger,
	lastMessages int,
) *ChatService {
	if lastMessages <= 0 {
		lastMessages = 20
	}
	return &ChatService{
		rooms:        rooms,
		messages:     messages,
		router:       router,
		friends:      friends,
		enricher:     enricher,
		logger:       logger,
		lastMessages: lastMessages,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// PostMessage stores a message sent by a connected client and routes it to
// every participant of the room, the sender included.
func (s *ChatService) PostMessage(ctx context.Context, sender model.Identity, chatID, content string) (*model.ChatMessage, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("chat: post: %w: empty content", model.ErrMalformedPayload)
	}

	room, err := s.participantRoom(ctx, sender, chatID)
	if err != nil {
		return nil, err
	}

	msg := &model.ChatMessage{
		ID:        uuid.NewString(),
		ChatID:    room.ID,
		SenderID:  sender,
		Content:   content,
		Timestamp: s.now(),
	}
	if err := s.messages.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("chat: save message: %w", err)
	}
	if err := s.rooms.SetLastMessage(ctx, room.ID, msg); err != nil {
		s.logger.Warn("LAST_MESSAGE_UPDATE_FAILED", "chat_id", room.ID, "err", err)
	}

	env := model.NewEnvelope(model.EnvelopeChatMessage, msg)
	if err := s.router.Route(ctx, room.ParticipantIDs(), env); err != nil {
		return msg, fmt.Errorf("chat: route message: %w", err)
	}
	return msg, nil
}

// AnnounceMessage routes a message that was already stored by its producer.
func (s *ChatService) AnnounceMessage(ctx context.Context, msg *model.ChatMessage) error {
	room, err := s.rooms.FindRoom(ctx, msg.ChatID)
	if err != nil {
		return fmt.Errorf("chat: announce message %s: %w", msg.ID, err)
	}

	env := model.NewEnvelope(model.EnvelopeChatMessage, msg)
	return s.router.Route(ctx, room.ParticipantIDs(), env)
}

// AnnounceRoom records a newly created room and sends NEW_CHAT to its participants.
func (s *ChatService) AnnounceRoom(ctx context.Context, room *model.ChatRoom) error {
	if room.ID == "" || len(room.Users) == 0 {
		return fmt.Errorf("chat: announce room: %w: chat id and users are required", model.ErrMalformedPayload)
	}

	users, err := s.enricher.ResolveParticipants(ctx, room.Users)
	if err != nil {
		s.logger.Warn("ROOM_PARTICIPANTS_UNRESOLVED", "chat_id", room.ID, "err", err)
	}
	room.Users = users
	room.Active = true

	if err := s.rooms.SaveRoom(ctx, room); err != nil {
		return fmt.Errorf("chat: save room %s: %w", room.ID, err)
	}

	ids := room.ParticipantIDs()
	s.friends.Invalidate(ids...)

	return s.router.Route(ctx, ids, model.NewEnvelope(model.EnvelopeNewChat, room))
}

// SendLastMessages routes the newest messages of chatID back to requester.
func (s *ChatService) SendLastMessages(ctx context.Context, requester model.Identity, chatID string) error {
	room, err := s.participantRoom(ctx, requester, chatID)
	if err != nil {
		return err
	}

	msgs, err := s.messages.FindRecentMessages(ctx, room.ID, s.lastMessages)
	if err != nil {
		return fmt.Errorf("chat: recent messages of %s: %w", room.ID, err)
	}
	if msgs == nil {
		msgs = []*model.ChatMessage{}
	}

	env := model.NewEnvelope(model.EnvelopeLastMessages, msgs)
	return s.router.Route(ctx, []model.Identity{requester}, env)
}

func (s *ChatService) participantRoom(ctx context.Context, identity model.Identity, chatID string) (*model.ChatRoom, error) {
	if chatID == "" {
		return nil, fmt.Errorf("chat: %w: chat id is required", model.ErrMalformedPayload)
	}

	room, err := s.rooms.FindRoom(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("chat: find room %s: %w", chatID, err)
	}
	if !room.HasParticipant(identity) {
		return nil, fmt.Errorf("chat: room %s: %w", chatID, model.ErrNotParticipant)
	}
	return room, nil
}
