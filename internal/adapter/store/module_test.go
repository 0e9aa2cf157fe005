package store

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"

	"github.com/webitel/im-presence-service/config"
	"github.com/webitel/im-presence-service/internal/adapter/store/memory"
)

func TestNewBackend(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("memory", func(t *testing.T) {
		cfg := &config.Config{Storage: config.StorageConfig{Driver: config.DriverMemory}}
		b, err := NewBackend(fxtest.NewLifecycle(t), cfg, logger)
		require.NoError(t, err)
		assert.IsType(t, &memory.Store{}, b)
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := &config.Config{Storage: config.StorageConfig{Driver: "cassandra"}}
		_, err := NewBackend(fxtest.NewLifecycle(t), cfg, logger)
		assert.ErrorContains(t, err, "cassandra")
	})
}
