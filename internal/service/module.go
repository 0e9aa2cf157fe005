package service

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/webitel/im-presence-service/config"
	"github.com/webitel/im-presence-service/internal/domain/registry"
)

// Settings carries the delivery tunables the controller needs.
type Settings struct {
	RecentChats  int
	LastMessages int
}

var Module = fx.Module(
	"service",

	fx.Provide(
		func(cfg *config.Config) Settings {
			return Settings{
				RecentChats:  cfg.Delivery.RecentChats,
				LastMessages: cfg.Delivery.LastMessages,
			}
		},
		func(h registry.Hubber) Pusher { return h },

		fx.Annotate(
			func(cfg *config.Config, users IdentityDirectory) *CachedFriendResolver {
				return NewCachedFriendResolver(users, cfg.Delivery.FriendCacheSize, cfg.Delivery.FriendCacheTTL)
			},
			fx.As(new(FriendResolver)),
		),
		fx.Annotate(NewParticipantEnricher, fx.As(new(Enricher))),
		fx.Annotate(NewBroadcastRouter, fx.As(new(Router))),
		func(rooms ChatRoomDirectory, messages MessageDirectory, router Router, friends FriendResolver,
			enricher Enricher, logger *slog.Logger, s Settings,
		) *ChatService {
			return NewChatService(rooms, messages, router, friends, enricher, logger, s.LastMessages)
		},
		fx.Annotate(NewConnectionLifecycleController, fx.As(new(Lifecycle))),
		fx.Annotate(NewStats, fx.As(new(StatsProvider))),
	),

	// Cross-cutting logging around the core services.
	fx.Decorate(NewRouterMiddleware),
	fx.Decorate(NewEnricherMiddleware),
)
