// Package httphandler mounts the websocket endpoint and the operational
// routes on one chi router.
package httphandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/webitel/im-presence-service/config"
	"github.com/webitel/im-presence-service/infra/server/http/interceptors"
	"github.com/webitel/im-presence-service/internal/handler/ws"
	"github.com/webitel/im-presence-service/internal/service"
)

const (
	PathHealth = "/healthz"
	PathStats  = "/debug/stats"
)

// StatsResponse is the body of GET /debug/stats.
type StatsResponse struct {
	TotalUsers       int    `json:"total_users"`
	ReadyUsers       int    `json:"ready_users"`
	TotalConnections int    `json:"total_connections"`
	Uptime           string `json:"uptime"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
}

func NewRouter(cfg *config.Config, logger *slog.Logger, wsHandler *ws.WSHandler, stats service.StatsProvider) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	path := cfg.WS.Path
	if path == "" {
		path = "/ws"
	}
	r.With(interceptors.NewHandshakeInterceptor).Get(path, wsHandler.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SetHeader("Content-Type", "application/json"))

		r.Get(PathHealth, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, logger, map[string]string{"status": "ok"})
		})
		r.Get(PathStats, func(w http.ResponseWriter, _ *http.Request) {
			s := stats.Stats()
			writeJSON(w, logger, StatsResponse{
				TotalUsers:       s.TotalUsers,
				ReadyUsers:       s.ReadyUsers,
				TotalConnections: s.TotalConnections,
				Uptime:           s.Uptime.Truncate(time.Second).String(),
				UptimeSeconds:    int64(s.Uptime / time.Second),
			})
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("HTTP_RESPONSE_WRITE_FAILED", "err", err)
	}
}
