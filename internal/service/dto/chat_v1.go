package dto

import (
	"time"

	"github.com/webitel/im-presence-service/internal/domain/model"
)

// ChatMessageV1 is the bus payload of im_chat.message.created.v1.
type ChatMessageV1 struct {
	MessageID  string `json:"message_id"`
	ChatID     string `json:"chat_id"`
	SenderID   string `json:"sender_id"`
	Content    string `json:"content"`
	OccurredAt string `json:"occurred_at"`
}

func (d *ChatMessageV1) ToDomain() *model.ChatMessage {
	return &model.ChatMessage{
		ID:        d.MessageID,
		ChatID:    d.ChatID,
		SenderID:  model.Identity(d.SenderID),
		Content:   d.Content,
		Timestamp: parseRFC3339(d.OccurredAt),
	}
}

type ParticipantV1 struct {
	UserID    string `json:"user_id"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Photo     string `json:"photo,omitempty"`
}

// ChatRoomV1 is the bus payload of im_chat.room.created.v1. Participant
// names may be omitted; they are resolved from the user directory.
type ChatRoomV1 struct {
	ChatID     string          `json:"chat_id"`
	Users      []ParticipantV1 `json:"users"`
	Photo      string          `json:"photo,omitempty"`
	OccurredAt string          `json:"occurred_at"`
}

func (d *ChatRoomV1) ToDomain() *model.ChatRoom {
	users := make([]model.Participant, 0, len(d.Users))
	for _, u := range d.Users {
		users = append(users, model.Participant{
			UserID:    model.Identity(u.UserID),
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Photo:     u.Photo,
		})
	}
	return &model.ChatRoom{
		ID:        d.ChatID,
		Users:     users,
		Photo:     d.Photo,
		CreatedAt: parseRFC3339(d.OccurredAt),
	}
}

func parseRFC3339(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Now().UTC()
	}
	return t
}
