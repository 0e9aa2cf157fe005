package httphandler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"

	"github.com/webitel/im-presence-service/config"
	"github.com/webitel/im-presence-service/internal/handler/ws"
)

var Module = fx.Module("http",
	fx.Provide(
		ws.NewWSHandler,
		NewRouter,
		NewServer,
	),
	fx.Invoke(func(*http.Server) {}),
)

// NewServer binds the listener on start so a busy port fails startup.
// Hijacked websocket connections are not tracked by Shutdown; the hub closes
// them when the registry stops.
func NewServer(lc fx.Lifecycle, cfg *config.Config, router *chi.Mux, logger *slog.Logger) *http.Server {
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return fmt.Errorf("http: listen %s: %w", srv.Addr, err)
			}
			logger.Info("HTTP_SERVER_STARTED", "addr", ln.Addr().String())

			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("HTTP_SERVER_FAILED", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cfg.HTTP.ShutdownTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.HTTP.ShutdownTimeout)
				defer cancel()
			}
			return srv.Shutdown(ctx)
		},
	})
	return srv
}
