package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/webitel/im-presence-service/internal/domain/model"
)

// RouterMiddleware decorates a Router with outcome logging.
type RouterMiddleware struct {
	Next   Router
	Logger *slog.Logger
}

func NewRouterMiddleware(next Router, logger *slog.Logger) Router {
	return &RouterMiddleware{
		Next:   next,
		Logger: logger,
	}
}

func (m *RouterMiddleware) Route(ctx context.Context, recipients []model.Identity, env *model.Envelope) error {
	start := time.Now()
	err := m.Next.Route(ctx, recipients, env)

	if err != nil {
		m.Logger.Error("ROUTE_FAILED",
			"err", err,
			"type", env.Type,
			"envelope_id", env.ID,
			"recipients", len(recipients),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	} else {
		m.Logger.Debug("ROUTE_COMPLETED",
			"type", env.Type,
			"envelope_id", env.ID,
			"recipients", len(recipients),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	return err
}

func (m *RouterMiddleware) BroadcastActivity(ctx context.Context, identity model.Identity, active bool) error {
	err := m.Next.BroadcastActivity(ctx, identity, active)
	if err != nil {
		m.Logger.Warn("ACTIVITY_BROADCAST_FAILED",
			"identity", identity,
			"active", active,
			"err", err,
		)
	}
	return err
}
