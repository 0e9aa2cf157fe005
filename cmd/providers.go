package cmd

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx"

	"github.com/webitel/im-presence-service/config"
)

func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// ProvideLogger builds the process logger. The returned LevelVar is the
// single level knob, moved by config reloads.
func ProvideLogger(cfg *config.Config) (*slog.Logger, *slog.LevelVar) {
	level := new(slog.LevelVar)
	level.Set(ParseLevel(cfg.Log.Level))

	opts := &slog.HandlerOptions{Level: level}
	var console slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.Log.JSON {
		console = slog.NewJSONHandler(os.Stdout, opts)
	}

	handlers := []slog.Handler{console}
	if cfg.Log.OTel {
		handlers = append(handlers, gateLevel(level, otelslog.NewHandler(cfg.Service.Name)))
	}

	logger := slog.New(slogmulti.Fanout(handlers...)).With(
		"service", cfg.Service.Name,
		"version", version,
	)
	slog.SetDefault(logger)
	return logger, level
}

// gateLevel applies the shared level to a handler that has no level option
// of its own.
func gateLevel(level slog.Leveler, h slog.Handler) slog.Handler {
	return slogmulti.
		Pipe(slogmulti.NewEnabledInlineMiddleware(func(ctx context.Context, l slog.Level, next func(context.Context, slog.Level) bool) bool {
			return l >= level.Level() && next(ctx, l)
		})).
		Handler(h)
}

func ProvideWatermillLogger(logger *slog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logger)
}

// ProvideTracerProvider installs the SDK tracer provider as the global one.
// Disabled tracing keeps a noop provider so instrumented code stays cheap.
func ProvideTracerProvider(lc fx.Lifecycle, cfg *config.Config) trace.TracerProvider {
	if !cfg.Trace.Enabled {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return tp
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Trace.SampleRatio))),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.Service.Name),
			attribute.String("service.namespace", ServiceNamespace),
			attribute.String("service.version", version),
		)),
	)
	otel.SetTracerProvider(tp)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})
	return tp
}
