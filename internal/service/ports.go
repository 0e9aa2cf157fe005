package service

import (
	"context"

	"github.com/webitel/im-presence-service/internal/domain/model"
)

// UndeliveredMessageStore is the durable per-identity fallback queue.
type UndeliveredMessageStore interface {
	Enqueue(ctx context.Context, identity model.Identity, env *model.Envelope) error
	// Drain returns every envelope held for identity in enqueue order and
	// removes them. An empty store yields an empty slice.
	Drain(ctx context.Context, identity model.Identity) ([]*model.Envelope, error)
}

// IdentityDirectory resolves users and their durable presence flag.
type IdentityDirectory interface {
	FindByIdentity(ctx context.Context, identity model.Identity) (*model.User, error)
	FindChatRoomsOf(ctx context.Context, identity model.Identity) ([]*model.ChatRoom, error)
	Save(ctx context.Context, user *model.User) error
}

type ChatRoomDirectory interface {
	FindRoom(ctx context.Context, chatID string) (*model.ChatRoom, error)
	FindRoomsOf(ctx context.Context, identity model.Identity) ([]*model.ChatRoom, error)
	// FindRecentRoomsOf lists at most limit rooms, most recently active first.
	FindRecentRoomsOf(ctx context.Context, identity model.Identity, limit int) ([]*model.ChatRoom, error)
	// SaveRoom upserts the room by its id.
	SaveRoom(ctx context.Context, room *model.ChatRoom) error
	SetLastMessage(ctx context.Context, chatID string, msg *model.ChatMessage) error
}

type MessageDirectory interface {
	SaveMessage(ctx context.Context, msg *model.ChatMessage) error
	// FindRecentMessages lists at most limit messages, newest first.
	FindRecentMessages(ctx context.Context, chatID string, limit int) ([]*model.ChatMessage, error)
}

// Pusher performs a live push to the identity's current session.
type Pusher interface {
	Push(identity model.Identity, env *model.Envelope) error
}

// StatusPublisher announces presence transitions to other services.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, status model.ActivityStatus) error
}
