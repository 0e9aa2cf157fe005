package model

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type EventPriority int32

const (
	PriorityLow    EventPriority = 10
	PriorityNormal EventPriority = 20
	PriorityHigh   EventPriority = 30
)

// EnvelopeType is the discriminator the client switches on.
type EnvelopeType string

const (
	EnvelopeChatMessage          EnvelopeType = "CHAT_MESSAGE"
	EnvelopeNewChat              EnvelopeType = "NEW_CHAT"
	EnvelopeActivityStatusUpdate EnvelopeType = "ACTIVITY_STATUS_UPDATE"
	EnvelopeAllChats             EnvelopeType = "ALL_CHATS"
	EnvelopeLastMessages         EnvelopeType = "LAST_MESSAGES"
)

func (t EnvelopeType) Valid() bool {
	switch t {
	case EnvelopeChatMessage, EnvelopeNewChat, EnvelopeActivityStatusUpdate,
		EnvelopeAllChats, EnvelopeLastMessages:
		return true
	}
	return false
}

// Durable reports whether an envelope of this type must survive the
// recipient being offline. Ephemeral types are dropped instead of stored.
func (t EnvelopeType) Durable() bool {
	return t == EnvelopeChatMessage || t == EnvelopeNewChat
}

// Priority is used by the connector to pick a victim when the send buffer is full.
func (t EnvelopeType) Priority() EventPriority {
	switch t {
	case EnvelopeChatMessage, EnvelopeNewChat, EnvelopeAllChats:
		return PriorityHigh
	case EnvelopeLastMessages:
		return PriorityNormal
	default:
		return PriorityLow
	}
}

// Envelope is the server-to-client frame. Content is the type-specific
// payload and may be a domain struct or already-encoded json.RawMessage.
type Envelope struct {
	ID         string       `json:"-"`
	Type       EnvelopeType `json:"type"`
	Content    any          `json:"content"`
	OccurredAt int64        `json:"-"`

	cached atomic.Pointer[[]byte]
}

func NewEnvelope(t EnvelopeType, content any) *Envelope {
	return &Envelope{
		ID:         uuid.NewString(),
		Type:       t,
		Content:    content,
		OccurredAt: time.Now().UnixMilli(),
	}
}

func (e *Envelope) GetPriority() EventPriority { return e.Type.Priority() }

// GetCached returns the wire bytes produced by a previous marshal, if any.
// One envelope fanned out to several sessions is encoded once.
func (e *Envelope) GetCached() []byte {
	if p := e.cached.Load(); p != nil {
		return *p
	}
	return nil
}

func (e *Envelope) SetCached(b []byte) {
	e.cached.Store(&b)
}
