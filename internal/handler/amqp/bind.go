package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"runtime/debug"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/webitel/im-presence-service/internal/domain/model"
)

// DomainHandler is the business side of one bus subscription.
type DomainHandler[T any] func(ctx context.Context, payload *T) error

// Bind connects a watermill consumer to a DomainHandler. Undecodable
// payloads and events that can never succeed are acknowledged and logged;
// every other failure is returned so the retry and poison middlewares apply.
func Bind[T any](h *MessageHandler, fn DomainHandler[T]) message.NoPublishHandlerFunc {
	return func(msg *message.Message) (err error) {
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("PANIC_RECOVERED",
					"err", r,
					"stack", string(debug.Stack()),
					"msg_id", msg.UUID)
				err = nil
			}
		}()

		payload := new(T)
		if err := json.Unmarshal(msg.Payload, payload); err != nil {
			h.logger.Error("DECODE_FAILED", "err", err, "msg_id", msg.UUID)
			return nil
		}

		if err := fn(msg.Context(), payload); err != nil {
			if isTerminal(err) {
				h.logger.Warn("EVENT_DISCARDED", "err", err, "msg_id", msg.UUID)
				return nil
			}
			return err
		}
		return nil
	}
}

func isTerminal(err error) bool {
	return errors.Is(err, model.ErrMalformedPayload) || errors.Is(err, model.ErrNotFound)
}
