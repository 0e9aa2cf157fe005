package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const EventSource = "im-presence-service"

// OutboundEventer defines the contract for events published from this
// service to the bus.
type OutboundEventer interface {
	GetID() string
	GetTopic() string
	ToJSON() ([]byte, error)
}

type OutboundEvent struct {
	ID        string   `json:"id"`
	Source    string   `json:"source"`
	Topic     string   `json:"-"`
	Identity  Identity `json:"identity"`
	Payload   any      `json:"payload"`
	Timestamp int64    `json:"timestamp"`
}

func NewOutboundEvent(topic string, identity Identity, payload any) *OutboundEvent {
	return &OutboundEvent{
		ID:        uuid.NewString(),
		Source:    EventSource,
		Topic:     topic,
		Identity:  identity,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

func (e *OutboundEvent) GetID() string    { return e.ID }
func (e *OutboundEvent) GetTopic() string { return e.Topic }

func (e *OutboundEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
