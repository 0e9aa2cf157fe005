package model

import (
	"slices"
	"time"
)

// Participant is a user as embedded into a chat room.
type Participant struct {
	UserID    Identity `json:"userId"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Photo     string   `json:"photo,omitempty"`
}

type ChatMessage struct {
	ID        string    `json:"messageId"`
	ChatID    string    `json:"chatId"`
	SenderID  Identity  `json:"senderId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type ChatRoom struct {
	ID          string        `json:"chatId"`
	Users       []Participant `json:"users"`
	Photo       string        `json:"photo,omitempty"`
	Active      bool          `json:"active"`
	LastMessage *ChatMessage  `json:"lastMessage,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}

func (r *ChatRoom) ParticipantIDs() []Identity {
	ids := make([]Identity, 0, len(r.Users))
	for _, u := range r.Users {
		ids = append(ids, u.UserID)
	}
	return ids
}

func (r *ChatRoom) HasParticipant(id Identity) bool {
	return slices.ContainsFunc(r.Users, func(p Participant) bool { return p.UserID == id })
}

// ChatPreview is the compact room summary shipped in the catch-up bundle.
type ChatPreview struct {
	ChatID              string        `json:"chatId"`
	Users               []Participant `json:"users"`
	Active              bool          `json:"active"`
	Photo               string        `json:"photo,omitempty"`
	LastMessageContent  string        `json:"lastMessageContent,omitempty"`
	LastMessageAuthorID Identity      `json:"lastMessageAuthorId,omitempty"`
	LastMessageTime     *time.Time    `json:"lastMessageTime,omitempty"`
	LastMessageID       string        `json:"lastMessageId,omitempty"`
}

func NewChatPreview(r *ChatRoom) ChatPreview {
	p := ChatPreview{
		ChatID: r.ID,
		Users:  r.Users,
		Active: r.Active,
		Photo:  r.Photo,
	}
	if p.Users == nil {
		p.Users = []Participant{}
	}
	if m := r.LastMessage; m != nil {
		ts := m.Timestamp
		p.LastMessageContent = m.Content
		p.LastMessageAuthorID = m.SenderID
		p.LastMessageTime = &ts
		p.LastMessageID = m.ID
	}
	return p
}

func NewChatPreviews(rooms []*ChatRoom) []ChatPreview {
	out := make([]ChatPreview, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, NewChatPreview(r))
	}
	return out
}

// ActivityStatus is the content of ACTIVITY_STATUS_UPDATE and of the
// presence event published to the bus.
type ActivityStatus struct {
	Identity Identity `json:"identity"`
	Active   bool     `json:"active"`
}

// CatchUpBundle is the content of the ALL_CHATS envelope sent once per
// acknowledged connection.
type CatchUpBundle struct {
	Chats               []ChatPreview     `json:"chats"`
	UndeliveredMessages []*Envelope       `json:"undeliveredMessages"`
	FriendsActivity     map[Identity]bool `json:"friendsActivity"`
}
