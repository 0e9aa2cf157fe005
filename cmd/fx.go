package cmd

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/webitel/im-presence-service/config"
	"github.com/webitel/im-presence-service/internal/adapter/pubsub"
	"github.com/webitel/im-presence-service/internal/adapter/store"
	"github.com/webitel/im-presence-service/internal/domain/registry"
	amqpdi "github.com/webitel/im-presence-service/internal/handler/amqp"
	httphandler "github.com/webitel/im-presence-service/internal/handler/http"
	"github.com/webitel/im-presence-service/internal/service"
)

// Options is the whole application graph. Module order is the start order;
// stop runs in reverse, so the HTTP server stops accepting before the hub
// closes the live sessions.
func Options(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvideWatermillLogger,
			ProvideTracerProvider,
		),
		fx.WithLogger(func(l *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: l}
		}),
		// Tracing is installed globally before any instrumented component starts.
		fx.Invoke(func(trace.TracerProvider) {}),
		fx.Invoke(watchConfig),

		store.Module,
		pubsub.Module,
		registry.Module,
		service.Module,
		amqpdi.Module,
		httphandler.Module,
	)
}

func NewApp(cfg *config.Config) *fx.App {
	return fx.New(Options(cfg))
}

// watchConfig applies hot-reloadable settings when the config file changes.
func watchConfig(cfg *config.Config, level *slog.LevelVar, logger *slog.Logger) {
	cfg.Watch(
		func(next *config.Config) {
			level.Set(ParseLevel(next.Log.Level))
			logger.Info("CONFIG_RELOADED", "log_level", level.Level().String())
		},
		func(err error) {
			logger.Warn("CONFIG_RELOAD_FAILED", "err", err)
		},
	)
}
