package registry

import (
	"context"

	"github.com/webitel/im-presence-service/config"
	"go.uber.org/fx"
)

var Module = fx.Module("registry",
	fx.Provide(
		fx.Annotate(NewPresenceRegistry, fx.As(new(Presencer))),
		fx.Annotate(NewAcknowledgmentGate, fx.As(new(Acknowledger))),
		fx.Annotate(
			func(cfg *config.Config, presence Presencer) *Hub {
				return NewHub(presence, WithSendTimeout(cfg.WS.SendTimeout))
			},
			fx.As(new(Hubber)),
		),
	),
	fx.Invoke(func(lc fx.Lifecycle, h Hubber) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				h.Shutdown()
				return nil
			},
		})
	}),
)
