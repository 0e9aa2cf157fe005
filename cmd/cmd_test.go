package cmd

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	slogmulti "github.com/samber/slog-multi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/webitel/im-presence-service/config"
	httphandler "github.com/webitel/im-presence-service/internal/handler/http"
)

func TestOptions_GraphIsComplete(t *testing.T) {
	cfg, err := config.LoadConfig("", nil)
	require.NoError(t, err)

	require.NoError(t, fx.ValidateApp(Options(cfg)))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" WARN "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}

func TestGateLevel_FollowsLevelVar(t *testing.T) {
	var console, gated bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)

	logger := slog.New(slogmulti.Fanout(
		slog.NewTextHandler(&console, &slog.HandlerOptions{Level: level}),
		gateLevel(level, slog.NewJSONHandler(&gated, &slog.HandlerOptions{Level: slog.LevelDebug})),
	)).With("component", "test")

	logger.Info("IGNORED")
	logger.Warn("KEPT", "k", 1)

	assert.NotContains(t, console.String(), "IGNORED")
	assert.NotContains(t, gated.String(), "IGNORED")
	assert.Contains(t, console.String(), "component=test")
	assert.Contains(t, gated.String(), `"msg":"KEPT"`)
	assert.Contains(t, gated.String(), `"component":"test"`)

	level.Set(slog.LevelDebug)
	logger.Debug("NOW_VISIBLE")
	assert.Contains(t, console.String(), "NOW_VISIBLE")
	assert.Contains(t, gated.String(), "NOW_VISIBLE")
}

func TestFetchStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != httphandler.PathStats {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"total_users":2,"ready_users":1,"total_connections":3,"uptime":"5s","uptime_seconds":5}`)
	}))
	t.Cleanup(srv.Close)

	stats, err := fetchStats(context.Background(), srv.Client(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 3, stats.TotalConnections)

	rows := statsRows(stats, nil, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, []string{"ready users", "1"}, rows[2])
	assert.Equal(t, []string{"updated", "12:00:00"}, rows[len(rows)-1])

	_, err = fetchStats(context.Background(), srv.Client(), srv.URL+"/missing")
	require.Error(t, err)
	assert.Len(t, statsRows(stats, err, time.Now()), 7)
}
