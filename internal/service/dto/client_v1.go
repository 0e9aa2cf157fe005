package dto

import "github.com/webitel/im-presence-service/internal/domain/model"

// AckRequest is sent to /ack. Older clients send userId.
type AckRequest struct {
	Identity string `json:"identity"`
	UserID   string `json:"userId"`
}

func (r AckRequest) Resolve() model.Identity {
	if r.Identity != "" {
		return model.Identity(r.Identity)
	}
	return model.Identity(r.UserID)
}

// LastMessagesRequest is sent to /lastMessage.
type LastMessagesRequest struct {
	ChatID   string `json:"chatId"`
	Identity string `json:"identity"`
}

// SendMessageRequest is sent to /chat/message.
type SendMessageRequest struct {
	ChatID   string `json:"chatId"`
	SenderID string `json:"senderId"`
	Content  string `json:"content"`
}
