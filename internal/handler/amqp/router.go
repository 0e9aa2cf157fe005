package amqp

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/webitel/im-presence-service/config"
	"github.com/webitel/im-presence-service/internal/adapter/pubsub"
	"github.com/webitel/im-presence-service/internal/service"
)

const (
	// Topics published by the chat backend.
	TopicMessageCreated = "im_chat.message.created.v1"
	TopicRoomCreated    = "im_chat.room.created.v1"

	PoisonTopic = "im_presence.incoming.v1.poison"
)

type MessageHandler struct {
	chats      *service.ChatService
	logger     *slog.Logger
	dispatcher pubsub.EventDispatcher
	provider   pubsub.Provider
	cfg        config.BrokerConfig
}

func NewMessageHandler(
	chats *service.ChatService,
	logger *slog.Logger,
	dispatcher pubsub.EventDispatcher,
	provider pubsub.Provider,
	cfg *config.Config,
) *MessageHandler {
	return &MessageHandler{
		chats:      chats,
		logger:     logger,
		dispatcher: dispatcher,
		provider:   provider,
		cfg:        cfg.Broker,
	}
}

func NewWatermillRouter(logger watermill.LoggerAdapter) (*message.Router, error) {
	r, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, logger)
	if err != nil {
		return nil, fmt.Errorf("amqp: new router: %w", err)
	}
	r.AddMiddleware(middleware.Recoverer)
	return r, nil
}

// RegisterHandlers attaches one consumer per ingress topic. Every consumer
// reads from its own queue under the configured queue prefix.
func (h *MessageHandler) RegisterHandlers(router *message.Router) error {
	poison, err := middleware.PoisonQueue(h.dispatcher.Publisher(), PoisonTopic)
	if err != nil {
		return fmt.Errorf("amqp: poison queue setup: %w", err)
	}

	configs := []struct {
		name    string
		topic   string
		handler message.NoPublishHandlerFunc
	}{
		{"ON_MESSAGE_CREATED", TopicMessageCreated, Bind(h, h.OnMessageCreatedV1)},
		{"ON_ROOM_CREATED", TopicRoomCreated, Bind(h, h.OnRoomCreatedV1)},
	}

	throttle := h.cfg.ThrottlePerSecond
	if throttle <= 0 {
		throttle = 100
	}
	timeout := h.cfg.HandlerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	for _, c := range configs {
		sub, err := h.provider.Subscriber(fmt.Sprintf("%s.%s", h.cfg.AMQP.Queue, c.name))
		if err != nil {
			return err
		}

		router.AddConsumerHandler(c.name, c.topic, sub, c.handler).AddMiddleware(
			TraceIDMiddleware,
			LoggingMiddleware(h.logger),
			poison,
			NewRetryMiddleware(h.cfg.MaxRetries, h.logger).Middleware,
			middleware.NewThrottle(throttle, time.Second).Middleware,
			middleware.Timeout(timeout),
		)
	}

	h.logger.Info("AMQP_PIPELINE_READY", "queue", h.cfg.AMQP.Queue, "handlers", len(configs))
	return nil
}
