// Package store selects the persistence driver and exposes it as the
// service ports.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/fx"

	"github.com/webitel/im-presence-service/config"
	"github.com/webitel/im-presence-service/internal/adapter/store/memory"
	"github.com/webitel/im-presence-service/internal/adapter/store/mongostore"
	"github.com/webitel/im-presence-service/internal/service"
)

// Backend is everything a driver has to implement.
type Backend interface {
	service.UndeliveredMessageStore
	service.IdentityDirectory
	service.ChatRoomDirectory
	service.MessageDirectory
}

var (
	_ Backend = (*memory.Store)(nil)
	_ Backend = (*mongostore.Store)(nil)
)

var Module = fx.Module(
	"store",

	fx.Provide(
		NewBackend,
		func(b Backend) service.UndeliveredMessageStore { return b },
		func(b Backend) service.IdentityDirectory { return b },
		func(b Backend) service.ChatRoomDirectory { return b },
		func(b Backend) service.MessageDirectory { return b },
	),
)

// NewBackend builds the configured driver. The mongo driver connects eagerly
// and is closed with the app.
func NewBackend(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (Backend, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory, "":
		logger.Info("STORE_DRIVER_SELECTED", "driver", config.DriverMemory)
		return memory.New(), nil

	case config.DriverMongo:
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Storage.Mongo.Timeout)
		defer cancel()

		s, err := mongostore.Connect(ctx, cfg.Storage.Mongo, logger)
		if err != nil {
			return nil, err
		}

		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return s.EnsureIndexes(ctx)
			},
			OnStop: func(ctx context.Context) error {
				return s.Close(ctx)
			},
		})
		logger.Info("STORE_DRIVER_SELECTED",
			"driver", config.DriverMongo,
			"database", cfg.Storage.Mongo.Database,
		)
		return s, nil
	}

	return nil, fmt.Errorf("store: unknown driver %q", cfg.Storage.Driver)
}
