package mongostore

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/webitel/im-presence-service/internal/domain/model"
)

type userDoc struct {
	ID        string   `bson:"_id"`
	FirstName string   `bson:"first_name"`
	LastName  string   `bson:"last_name"`
	Email     string   `bson:"email,omitempty"`
	Photo     string   `bson:"photo,omitempty"`
	Active    bool     `bson:"active"`
	ChatIDs   []string `bson:"chat_ids,omitempty"`
}

func newUserDoc(u *model.User) userDoc {
	return userDoc{
		ID:        u.Identity.String(),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Photo:     u.Photo,
		Active:    u.Active,
		ChatIDs:   u.ChatIDs,
	}
}

func (d userDoc) toDomain() *model.User {
	return &model.User{
		Identity:  model.Identity(d.ID),
		FirstName: d.FirstName,
		LastName:  d.LastName,
		Email:     d.Email,
		Photo:     d.Photo,
		Active:    d.Active,
		ChatIDs:   d.ChatIDs,
	}
}

type participantDoc struct {
	UserID    string `bson:"userId"`
	FirstName string `bson:"first_name,omitempty"`
	LastName  string `bson:"last_name,omitempty"`
	Photo     string `bson:"photo,omitempty"`
}

type messageDoc struct {
	ID        string    `bson:"_id"`
	ChatID    string    `bson:"chat_id"`
	SenderID  string    `bson:"sender_id"`
	Content   string    `bson:"content"`
	Timestamp time.Time `bson:"timestamp"`
}

func newMessageDoc(m *model.ChatMessage) messageDoc {
	return messageDoc{
		ID:        m.ID,
		ChatID:    m.ChatID,
		SenderID:  m.SenderID.String(),
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
}

func (d messageDoc) toDomain() *model.ChatMessage {
	return &model.ChatMessage{
		ID:        d.ID,
		ChatID:    d.ChatID,
		SenderID:  model.Identity(d.SenderID),
		Content:   d.Content,
		Timestamp: d.Timestamp.UTC(),
	}
}

type roomDoc struct {
	ID          string           `bson:"_id"`
	Users       []participantDoc `bson:"users"`
	Photo       string           `bson:"photo,omitempty"`
	Active      bool             `bson:"active"`
	LastMessage *messageDoc      `bson:"last_message,omitempty"`
	CreatedAt   time.Time        `bson:"created_at"`
}

func newRoomDoc(r *model.ChatRoom) roomDoc {
	users := make([]participantDoc, 0, len(r.Users))
	for _, u := range r.Users {
		users = append(users, participantDoc{
			UserID:    u.UserID.String(),
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Photo:     u.Photo,
		})
	}
	doc := roomDoc{
		ID:        r.ID,
		Users:     users,
		Photo:     r.Photo,
		Active:    r.Active,
		CreatedAt: r.CreatedAt,
	}
	if r.LastMessage != nil {
		m := newMessageDoc(r.LastMessage)
		doc.LastMessage = &m
	}
	return doc
}

func (d roomDoc) toDomain() *model.ChatRoom {
	users := make([]model.Participant, 0, len(d.Users))
	for _, u := range d.Users {
		users = append(users, model.Participant{
			UserID:    model.Identity(u.UserID),
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Photo:     u.Photo,
		})
	}
	r := &model.ChatRoom{
		ID:        d.ID,
		Users:     users,
		Photo:     d.Photo,
		Active:    d.Active,
		CreatedAt: d.CreatedAt.UTC(),
	}
	if d.LastMessage != nil {
		r.LastMessage = d.LastMessage.toDomain()
	}
	return r
}

// undeliveredDoc orders by _id: ObjectIDs from one process increase monotonically.
type undeliveredDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	EnvelopeID string             `bson:"envelope_id"`
	UserID     string             `bson:"user_id"`
	Type       string             `bson:"type"`
	Content    []byte             `bson:"content"`
	CreatedAt  time.Time          `bson:"created_at"`
}
