package service

import (
	"time"

	"github.com/webitel/im-presence-service/internal/domain/model"
	"github.com/webitel/im-presence-service/internal/domain/registry"
)

type StatsProvider interface {
	Stats() model.HubStats
}

type Stats struct {
	presence  registry.Presencer
	gate      registry.Acknowledger
	hub       registry.Hubber
	startedAt time.Time
}

func NewStats(presence registry.Presencer, gate registry.Acknowledger, hub registry.Hubber) *Stats {
	return &Stats{
		presence:  presence,
		gate:      gate,
		hub:       hub,
		startedAt: time.Now(),
	}
}

func (s *Stats) Stats() model.HubStats {
	return model.HubStats{
		TotalUsers:       s.presence.Count(),
		ReadyUsers:       s.gate.Count(),
		TotalConnections: s.hub.Connections(),
		Uptime:           time.Since(s.startedAt).Truncate(time.Second),
	}
}
