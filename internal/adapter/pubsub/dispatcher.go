package pubsub

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/webitel/im-presence-service/internal/domain/model"
)

// TopicPresenceStatus carries every presence transition of a user.
const TopicPresenceStatus = "im_presence.status.v1"

// EventDispatcher is the outgoing side of the bus. Callers stay agnostic of
// the broker behind the publisher.
type EventDispatcher interface {
	Publish(ctx context.Context, ev model.OutboundEventer) error
	Publisher() message.Publisher
}

type eventDispatcher struct {
	publisher message.Publisher
	logger    *slog.Logger
}

func NewEventDispatcher(pub message.Publisher, logger *slog.Logger) EventDispatcher {
	return &eventDispatcher{publisher: pub, logger: logger}
}

func (d *eventDispatcher) Publish(ctx context.Context, ev model.OutboundEventer) error {
	if ev == nil {
		return fmt.Errorf("event dispatcher: cannot publish nil event")
	}

	payload, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("event dispatcher: marshal failure: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_id", ev.GetID())
	msg.SetContext(ctx)

	if err := d.publisher.Publish(ev.GetTopic(), msg); err != nil {
		return fmt.Errorf("event dispatcher: failed to publish to topic %s: %w", ev.GetTopic(), err)
	}

	d.logger.Debug("EVENT_PUBLISHED", "topic", ev.GetTopic(), "event_id", ev.GetID())
	return nil
}

func (d *eventDispatcher) Publisher() message.Publisher {
	return d.publisher
}

// StatusDispatcher announces presence transitions on TopicPresenceStatus.
type StatusDispatcher struct {
	dispatcher EventDispatcher
}

func NewStatusDispatcher(d EventDispatcher) *StatusDispatcher {
	return &StatusDispatcher{dispatcher: d}
}

func (s *StatusDispatcher) PublishStatus(ctx context.Context, status model.ActivityStatus) error {
	return s.dispatcher.Publish(ctx, model.NewOutboundEvent(TopicPresenceStatus, status.Identity, status))
}
