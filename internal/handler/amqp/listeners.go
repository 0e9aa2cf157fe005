package amqp

import (
	"context"
	"fmt"

	"github.com/webitel/im-presence-service/internal/domain/model"
	"github.com/webitel/im-presence-service/internal/service/dto"
)

// OnMessageCreatedV1 delivers a message persisted by the chat backend to
// every participant of its room.
func (h *MessageHandler) OnMessageCreatedV1(ctx context.Context, raw *dto.ChatMessageV1) error {
	if raw.MessageID == "" || raw.ChatID == "" {
		return fmt.Errorf("message created: %w: message_id and chat_id are required", model.ErrMalformedPayload)
	}
	return h.chats.AnnounceMessage(ctx, raw.ToDomain())
}

// OnRoomCreatedV1 records the room and announces NEW_CHAT to its participants.
func (h *MessageHandler) OnRoomCreatedV1(ctx context.Context, raw *dto.ChatRoomV1) error {
	return h.chats.AnnounceRoom(ctx, raw.ToDomain())
}
